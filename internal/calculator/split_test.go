package calculator

import (
	"math"
	"testing"
)

func TestEvenSplit(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		n       int
		want    []float64
		wantErr bool
	}{
		{
			name:   "divides evenly",
			amount: 100.0,
			n:      4,
			want:   []float64{25.00, 25.00, 25.00, 25.00},
		},
		{
			name:   "last share absorbs the remainder cent",
			amount: 100.0,
			n:      3,
			want:   []float64{33.33, 33.33, 33.34},
		},
		{
			name:   "single participant takes it all",
			amount: 42.55,
			n:      1,
			want:   []float64{42.55},
		},
		{
			name:    "zero participants",
			amount:  10.0,
			n:       0,
			wantErr: true,
		},
		{
			name:    "negative amount",
			amount:  -5.0,
			n:       2,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EvenSplit(tt.amount, tt.n)
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("EvenSplit failed: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("Got %d shares, want %d", len(got), len(tt.want))
			}
			total := 0.0
			for i := range got {
				if math.Abs(got[i]-tt.want[i]) > 0.001 {
					t.Errorf("Share %d = %v, want %v", i, got[i], tt.want[i])
				}
				total += got[i]
			}
			if math.Abs(total-tt.amount) > 0.001 {
				t.Errorf("Shares sum to %v, want %v", total, tt.amount)
			}
		})
	}
}

func TestSumWithinTolerance(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		splits []float64
		want   bool
	}{
		{name: "exact", amount: 30.0, splits: []float64{10, 10, 10}, want: true},
		{name: "sub-cent residue accepted", amount: 100.0, splits: []float64{33.33, 33.33, 33.335}, want: true},
		{name: "two cents off rejected", amount: 100.0, splits: []float64{33.33, 33.33, 33.32}, want: false},
		{name: "rounding remainder accepted", amount: 100.0, splits: []float64{33.33, 33.33, 33.34}, want: true},
		{name: "off by a euro", amount: 30.0, splits: []float64{10, 10, 11}, want: false},
		{name: "no splits against nonzero amount", amount: 5.0, splits: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SumWithinTolerance(tt.amount, tt.splits); got != tt.want {
				t.Errorf("SumWithinTolerance(%v, %v) = %v, want %v", tt.amount, tt.splits, got, tt.want)
			}
		})
	}
}
