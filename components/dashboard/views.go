package dashboard

import (
	"fmt"
	"slices"
)

// ViewMode selects how the details grid groups its first column.
type ViewMode string

const (
	ViewModeProduct ViewMode = "product"
	ViewModeBlogger ViewMode = "blogger"
)

// ParseViewMode validates a view mode, defaulting empty input to product.
func ParseViewMode(value string) (ViewMode, error) {
	switch ViewMode(value) {
	case "", ViewModeProduct:
		return ViewModeProduct, nil
	case ViewModeBlogger:
		return ViewModeBlogger, nil
	default:
		return ViewModeProduct, fmt.Errorf("%w: unknown view mode %q", ErrInvalidInput, value)
	}
}

// FilterDetailRows narrows detail rows by ASIN, and by blogger only in
// blogger mode. Campaign, link and date selections do not apply.
func FilterDetailRows(rows []DetailRow, state FilterState, mode ViewMode) []DetailRow {
	out := make([]DetailRow, 0, len(rows))
	for _, row := range rows {
		if state.ASIN != "" && row.ASIN != state.ASIN {
			continue
		}
		if mode == ViewModeBlogger && state.Blogger != "" && row.Blogger != state.Blogger {
			continue
		}
		out = append(out, row)
	}
	return out
}

// FilterContentRows applies every selection, with the date range inclusive by day.
func FilterContentRows(rows []ContentRow, state FilterState) []ContentRow {
	out := make([]ContentRow, 0, len(rows))
	for _, row := range rows {
		if state.Campaign != "" && row.Campaign != state.Campaign {
			continue
		}
		if state.Blogger != "" && row.Blogger != state.Blogger {
			continue
		}
		if state.ASIN != "" && row.ASIN != state.ASIN {
			continue
		}
		if state.Link != "" && row.Link != state.Link {
			continue
		}
		if !state.DateRange.Contains(row.Date) {
			continue
		}
		out = append(out, row)
	}
	return out
}

// PageSizes are the page sizes offered by the grids.
var PageSizes = []int{10, 20, 50, 100}

// DefaultPageSize is used when no valid size is requested.
const DefaultPageSize = 10

// Page describes one page of a grid.
type Page struct {
	Number int   `json:"page"`
	Size   int   `json:"page_size"`
	Total  int   `json:"total"`
	Pages  int   `json:"pages"`
	Offset int   `json:"-"`
	End    int   `json:"-"`
	Sizes  []int `json:"page_sizes"`
}

// Paginate clamps page (1-based) and size into a valid window over total rows.
func Paginate(total, page, size int) Page {
	if !slices.Contains(PageSizes, size) {
		size = DefaultPageSize
	}
	pages := (total + size - 1) / size
	if pages == 0 {
		pages = 1
	}
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	offset := (page - 1) * size
	end := min(offset+size, total)
	return Page{
		Number: page,
		Size:   size,
		Total:  total,
		Pages:  pages,
		Offset: offset,
		End:    end,
		Sizes:  slices.Clone(PageSizes),
	}
}
