package gallery

// PageSize is the fixed number of records per gallery page.
const PageSize = 8

// TotalPages returns how many 1-indexed pages count records occupy.
func TotalPages(count int) int {
	if count <= 0 {
		return 0
	}
	return (count + PageSize - 1) / PageSize
}

// Page slices the 1-indexed page n out of records. Pages beyond the end are
// empty; callers are expected to clamp n first (see ClampPage).
func Page(records []Record, n int) []Record {
	if n < 1 {
		return nil
	}
	start := (n - 1) * PageSize
	if start >= len(records) {
		return nil
	}
	end := start + PageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// ClampPage forces n into [1, totalPages]. A gallery with no pages still
// clamps to page 1 so callers always have a valid current page.
func ClampPage(n, totalPages int) int {
	if totalPages < 1 || n < 1 {
		return 1
	}
	if n > totalPages {
		return totalPages
	}
	return n
}
