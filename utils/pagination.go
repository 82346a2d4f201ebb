package utils

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// GetPaginationParams resolves optional offset/limit query values. Negative offsets
// fall back to 0 and limits are clamped to (0, MaxPageSize].
func GetPaginationParams(offset *int, limit *int) (int, int) {
	finalOffset := 0
	finalLimit := DefaultPageSize

	if offset != nil && *offset >= 0 {
		finalOffset = *offset
	}

	if limit != nil && *limit > 0 {
		finalLimit = min(*limit, MaxPageSize)
	}

	return finalOffset, finalLimit
}

// HasMore reports whether a page of size n read at offset leaves rows behind.
func HasMore(offset, n int, total int64) bool {
	return n > 0 && int64(offset+n) < total
}
