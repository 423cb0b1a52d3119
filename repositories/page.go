package repositories

import "math"

const MaxPageSize = 100

// Page is an offset-based pagination window.
type Page struct {
	Number int
	Size   int
}

// NewPage clamps page to >= 1 and falls back to defaultSize when size is
// outside 1..MaxPageSize. Page numbers whose offset would overflow int are
// capped so they resolve to an empty window.
func NewPage(page, size, defaultSize int) Page {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > MaxPageSize {
		size = defaultSize
	}
	if size > 0 && page > math.MaxInt/size {
		page = math.MaxInt / size
	}
	return Page{Number: page, Size: size}
}

// Skip is the offset of the first item; never negative.
func (p Page) Skip() int {
	if p.Number < 1 || p.Size < 1 {
		return 0
	}
	if p.Number-1 > math.MaxInt/p.Size {
		return math.MaxInt
	}
	return (p.Number - 1) * p.Size
}

// Pages returns the number of pages needed for total items.
func (p Page) Pages(total int64) int64 {
	if p.Size <= 0 {
		return 0
	}
	return (total + int64(p.Size) - 1) / int64(p.Size)
}

// Window returns the [start, end) bounds of the page inside n items.
func (p Page) Window(n int) (int, int) {
	start := p.Skip()
	if start < 0 || start > n {
		start = n
	}
	end := n
	if p.Size >= 0 && p.Size < n-start {
		end = start + p.Size
	}
	return start, end
}
