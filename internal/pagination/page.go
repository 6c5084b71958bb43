package pagination

// Page applies the limit+1 read contract to a fetched row set.  rows is
// what a repository read back after asking for limit+1 items in page
// order: when the extra row is present a further page exists, so the
// slice is trimmed to limit and the returned cursor pins the last item
// actually handed to the client.  A nil cursor means paging is done.
//
// cursorOf extracts the (sort timestamp, id) pair from one row; it is
// only called for the item the next cursor will point at.
func Page[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, *Cursor) {
	if len(rows) <= limit {
		return rows, nil
	}
	rows = rows[:limit]
	next := cursorOf(rows[len(rows)-1])
	return rows, &next
}
