package pagination

// SortField names a timestamp column a listing can be ordered by.  The
// values are the literal column names, so repositories may interpolate
// them into queries directly; ParseSort is the only producer.
type SortField string

// Sort fields accepted by the paginated listings.
const (
	SortCreatedAt SortField = "created_at"
	SortUpdatedAt SortField = "updated_at"
)

// ParseSort maps the client-facing sort parameter onto a column.  Both
// snake_case and camelCase spellings are accepted; anything else falls
// back to created_at.
func ParseSort(s string) SortField {
	switch s {
	case "updated_at", "updatedAt":
		return SortUpdatedAt
	default:
		return SortCreatedAt
	}
}
