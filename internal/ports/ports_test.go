package ports

import (
	"testing"

	"dtmoney/internal/core"
)

func TestListQueryNormalize(t *testing.T) {
	cases := []struct {
		in   ListQuery
		want ListQuery
	}{
		{ListQuery{}, ListQuery{Sort: SortCreatedAt, Order: OrderAsc}},
		{ListQuery{Sort: "price", Order: "DESC"}, ListQuery{Sort: SortPrice, Order: OrderDesc}},
		{ListQuery{Sort: "drop table", Order: "sideways", Search: "  coffee "}, ListQuery{Sort: SortCreatedAt, Order: OrderAsc, Search: "coffee"}},
	}
	for i, tc := range cases {
		if got := tc.in.Normalize(); got != tc.want {
			t.Fatalf("case %d: got %+v, want %+v", i, got, tc.want)
		}
	}
}

func TestListQueryKey(t *testing.T) {
	a := ListQuery{Search: "Coffee"}.Key()
	b := ListQuery{Search: " coffee", Sort: SortCreatedAt, Order: "asc"}.Key()
	if a != b {
		t.Fatalf("expected equal keys, got %q and %q", a, b)
	}
	if a == (ListQuery{Search: "tea"}).Key() {
		t.Fatalf("different searches must not share a key")
	}
}

func TestListQueryMatches(t *testing.T) {
	tx := core.Transaction{Description: "Morning Coffee", Category: "Food", Type: core.Outcome}
	cases := []struct {
		q    ListQuery
		want bool
	}{
		{ListQuery{}, true},
		{ListQuery{Search: "coffee"}, true},
		{ListQuery{Search: "FOOD"}, true},
		{ListQuery{Search: "salary"}, false},
		{ListQuery{Type: core.Outcome}, true},
		{ListQuery{Type: core.Income}, false},
		{ListQuery{Type: core.Outcome, Search: "tea"}, false},
	}
	for i, tc := range cases {
		if got := tc.q.Matches(tx); got != tc.want {
			t.Fatalf("case %d: Matches(%+v) = %v, want %v", i, tc.q, got, tc.want)
		}
	}
}
