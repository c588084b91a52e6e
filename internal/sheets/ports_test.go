package sheets

import (
	"testing"
	"time"

	"dtmoney/internal/core"
)

func TestRow(t *testing.T) {
	tx := core.Transaction{
		ID:          9,
		Description: "Lunch",
		Type:        core.Outcome,
		Price:       25.5,
		Category:    "Food",
		CreatedAt:   time.Date(2024, 2, 3, 4, 5, 6, 0, time.FixedZone("BRT", -3*60*60)),
	}
	row := Row(tx)
	if len(row) != len(Header) {
		t.Fatalf("row has %d cells, header %d", len(row), len(Header))
	}
	if row[0] != int64(9) || row[1] != "2024-02-03T07:05:06Z" || row[3] != "outcome" || row[5] != 25.5 {
		t.Fatalf("unexpected row %v", row)
	}
}

func TestFindRow(t *testing.T) {
	values := [][]any{
		{"ID"},
		{},
		{"3"},
		{float64(12)},
		{int64(40)},
	}
	tests := []struct {
		id   int64
		want int
	}{
		{3, 2},
		{12, 3},
		{40, 4},
		{1, -1},
	}
	for _, tt := range tests {
		if got := FindRow(values, tt.id); got != tt.want {
			t.Errorf("FindRow(%d) = %d, want %d", tt.id, got, tt.want)
		}
	}
}
