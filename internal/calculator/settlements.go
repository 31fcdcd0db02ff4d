// Package calculator holds the pure computation over balances: the greedy
// settlement optimizer and the even-split rounding helper. No I/O, no
// clock, deterministic for a given input.
package calculator

import (
	"math"
	"sort"

	"github.com/reparte/backend/internal/models"
)

// epsilon is the currency-minor-unit tolerance. Residuals below it count
// as settled and are never emitted as transfers.
const epsilon = 0.01

// Settle computes a set of suggested transfers that drives every member's
// net balance to within epsilon of zero.
//
// Algorithm (greedy two-cursor matching, not a guaranteed-minimal solver):
//   - debtors (net < 0) sorted most negative first, creditors (net > 0)
//     sorted most positive first; both sorts are stable so ties keep the
//     caller's order
//   - match current debtor with current creditor for
//     min(|debtor|, creditor), emit if above epsilon, then advance
//     whichever side dropped below epsilon
//
// The emitted count is bounded by debtors+creditors-1. True minimality
// would need subset matching; good enough for suggested transfers.
func Settle(balances []*models.Balance) []models.Settlement {
	var debtors, creditors []*models.Balance
	for _, b := range balances {
		// Copy working balances so the caller's slice stays intact.
		work := *b
		switch {
		case work.NetBalance < -epsilon:
			debtors = append(debtors, &work)
		case work.NetBalance > epsilon:
			creditors = append(creditors, &work)
		}
	}

	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].NetBalance < debtors[j].NetBalance
	})
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].NetBalance > creditors[j].NetBalance
	})

	var settlements []models.Settlement
	i, j := 0, 0

	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i]
		creditor := creditors[j]

		amount := math.Min(math.Abs(debtor.NetBalance), creditor.NetBalance)

		if amount > epsilon {
			settlements = append(settlements, models.Settlement{
				FromMemberID:   debtor.MemberID,
				FromMemberName: debtor.MemberName,
				ToMemberID:     creditor.MemberID,
				ToMemberName:   creditor.MemberName,
				Amount:         round2(amount),
			})

			debtor.NetBalance += amount
			creditor.NetBalance -= amount
		}

		if math.Abs(debtor.NetBalance) < epsilon {
			i++
		}
		if math.Abs(creditor.NetBalance) < epsilon {
			j++
		}
	}

	return settlements
}

// round2 rounds to 2 decimal places.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
