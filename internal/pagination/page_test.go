package pagination

import (
	"testing"
	"time"
)

type pageRow struct {
	id uint64
	ts time.Time
}

func rowCursor(r pageRow) Cursor { return Cursor{Ts: r.ts, ID: r.id} }

func TestPage(t *testing.T) {
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	row := func(id uint64) pageRow { return pageRow{id: id, ts: base.Add(time.Duration(id) * time.Minute)} }

	cases := []struct {
		name     string
		rows     []pageRow
		limit    int
		wantIDs  []uint64
		wantNext *uint64
	}{
		{"empty", nil, 3, nil, nil},
		{"short page", []pageRow{row(3), row(2)}, 3, []uint64{3, 2}, nil},
		{"exactly full", []pageRow{row(3), row(2), row(1)}, 3, []uint64{3, 2, 1}, nil},
		{"extra row trimmed", []pageRow{row(4), row(3), row(2), row(1)}, 3, []uint64{4, 3, 2}, ptr(uint64(2))},
		{"limit one", []pageRow{row(2), row(1)}, 1, []uint64{2}, ptr(uint64(2))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, next := Page(tc.rows, tc.limit, rowCursor)
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("page has %d items, want %d", len(got), len(tc.wantIDs))
			}
			for i, id := range tc.wantIDs {
				if got[i].id != id {
					t.Fatalf("item %d has id %d, want %d", i, got[i].id, id)
				}
			}
			if (next == nil) != (tc.wantNext == nil) {
				t.Fatalf("next cursor = %+v, want present=%v", next, tc.wantNext != nil)
			}
			if next != nil && next.ID != *tc.wantNext {
				t.Fatalf("next cursor pins id %d, want %d", next.ID, *tc.wantNext)
			}
		})
	}
}

func ptr[T any](v T) *T { return &v }

// fetchPage mirrors the repositories' keyset query over an in-memory
// row set: rows are held in (ts DESC, id DESC) order, the cursor
// filters to strictly-older pairs, and limit+1 rows are read before
// Page trims them.
func fetchPage(rows []pageRow, limit int, cur *Cursor) ([]pageRow, *Cursor) {
	matched := make([]pageRow, 0, limit+1)
	for _, r := range rows {
		if cur != nil && !(r.ts.Before(cur.Ts) || (r.ts.Equal(cur.Ts) && r.id < cur.ID)) {
			continue
		}
		matched = append(matched, r)
		if len(matched) == limit+1 {
			break
		}
	}
	return Page(matched, limit, rowCursor)
}

// Rows inserted while a client is paging must not shift the pages it
// has yet to fetch: every pre-existing row is seen exactly once and the
// newer inserts never resurface mid-scan.
func TestPagingStableUnderNewerInserts(t *testing.T) {
	base := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	// ids 2 and 3 share a timestamp so the id tie-break is exercised.
	rows := []pageRow{
		{id: 5, ts: base.Add(4 * time.Minute)},
		{id: 4, ts: base.Add(3 * time.Minute)},
		{id: 3, ts: base.Add(2 * time.Minute)},
		{id: 2, ts: base.Add(2 * time.Minute)},
		{id: 1, ts: base},
	}

	page1, next := fetchPage(rows, 2, nil)
	if got := ids(page1); got[0] != 5 || got[1] != 4 {
		t.Fatalf("page 1 = %v, want [5 4]", got)
	}
	if next == nil {
		t.Fatal("page 1 must produce a next cursor")
	}

	// Two newer entries arrive between page fetches.
	rows = append([]pageRow{
		{id: 7, ts: base.Add(6 * time.Minute)},
		{id: 6, ts: base.Add(5 * time.Minute)},
	}, rows...)

	// The cursor crosses the wire between fetches; round-trip it the
	// way a client would.
	cur := DecodeOrFirstPage(Encode(*next))
	page2, next := fetchPage(rows, 2, cur)
	if got := ids(page2); got[0] != 3 || got[1] != 2 {
		t.Fatalf("page 2 = %v, want [3 2]; newer inserts leaked into the scan", got)
	}
	if next == nil {
		t.Fatal("page 2 must produce a next cursor")
	}

	cur = DecodeOrFirstPage(Encode(*next))
	page3, next := fetchPage(rows, 2, cur)
	if got := ids(page3); len(got) != 1 || got[0] != 1 {
		t.Fatalf("page 3 = %v, want [1]", got)
	}
	if next != nil {
		t.Fatalf("final page produced a cursor pinning id %d", next.ID)
	}

	seen := map[uint64]int{}
	for _, id := range append(append(ids(page1), ids(page2)...), ids(page3)...) {
		seen[id]++
	}
	for id, n := range seen {
		if n != 1 {
			t.Fatalf("id %d returned %d times across the scan", id, n)
		}
	}
	for _, id := range []uint64{6, 7} {
		if seen[id] != 0 {
			t.Fatalf("id %d inserted mid-scan must not appear", id)
		}
	}
}

func ids(rows []pageRow) []uint64 {
	out := make([]uint64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.id)
	}
	return out
}
