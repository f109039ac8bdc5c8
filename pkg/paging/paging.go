// Package paging provides stable offset-based pagination math shared by
// every list view. Repositories assemble the filtered, sorted SQL; this
// package owns page-index clamping and page metadata so the behavior is
// identical across entity types.
package paging

// Page size bounds. A non-positive requested size falls back to
// DefaultSize; anything above MaxSize is capped.
const (
	DefaultSize = 10
	MaxSize     = 100
)

// Page is one slice of a filtered, sorted collection plus the metadata a
// list view needs to render pager controls.
type Page[T any] struct {
	Items       []T  `json:"items"`
	TotalCount  int  `json:"total_count"`
	PageIndex   int  `json:"page_index"` // 1-based
	PageSize    int  `json:"page_size"`
	TotalPages  int  `json:"total_pages"`
	HasPrevious bool `json:"has_previous"`
	HasNext     bool `json:"has_next"`
}

// NormalizeSize clamps a requested page size into [1, MaxSize], mapping
// non-positive values to DefaultSize.
func NormalizeSize(size int) int {
	if size <= 0 {
		return DefaultSize
	}
	if size > MaxSize {
		return MaxSize
	}
	return size
}

// TotalPages returns ceil(total/size). Zero when total is zero.
func TotalPages(total, size int) int {
	if total <= 0 {
		return 0
	}
	return (total + size - 1) / size
}

// ClampIndex clamps a 1-based page index into the valid range for the
// given total. An index past the last page clamps to the last page; when
// there are no records at all the index is 1 (an empty first page).
func ClampIndex(index, total, size int) int {
	if index < 1 {
		index = 1
	}
	last := TotalPages(total, size)
	if last == 0 {
		return 1
	}
	if index > last {
		return last
	}
	return index
}

// Offset returns the SQL OFFSET for a clamped 1-based page index.
func Offset(index, size int) int {
	if index < 1 {
		index = 1
	}
	return (index - 1) * size
}

// New assembles a Page from an already-fetched slice. index must have been
// clamped via ClampIndex and size normalized via NormalizeSize.
func New[T any](items []T, total, index, size int) Page[T] {
	if items == nil {
		items = []T{}
	}
	totalPages := TotalPages(total, size)
	return Page[T]{
		Items:       items,
		TotalCount:  total,
		PageIndex:   index,
		PageSize:    size,
		TotalPages:  totalPages,
		HasPrevious: index > 1,
		HasNext:     index < totalPages,
	}
}
