package models

// SortDir is the direction of a sort applied to a collection listing.
type SortDir string

const (
	SortAsc  SortDir = "asc"
	SortDesc SortDir = "desc"
)

// Pagination describes the server window a collection's cached items
// came from. TotalItems is always the last server-reported total;
// optimistic operations never adjust it locally.
type Pagination struct {
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalItems int     `json:"total_items"`
	Search     string  `json:"search,omitempty"`
	SortField  string  `json:"sort_field,omitempty"`
	SortDir    SortDir `json:"sort_dir,omitempty"`
}

// PageRequest names the page a fetch should retrieve.
type PageRequest struct {
	Page      int
	PageSize  int
	Search    string
	SortField string
	SortDir   SortDir
}

// Offset returns the zero-based item offset of the requested page.
func (r PageRequest) Offset() int {
	if r.Page <= 1 {
		return 0
	}
	return (r.Page - 1) * r.PageSize
}

// Pagination converts the request into cache pagination metadata with
// the given server-reported total.
func (r PageRequest) Pagination(total int) Pagination {
	return Pagination{
		Page:       r.Page,
		PageSize:   r.PageSize,
		TotalItems: total,
		Search:     r.Search,
		SortField:  r.SortField,
		SortDir:    r.SortDir,
	}
}

// Request returns the page request that produced this pagination state.
func (p Pagination) Request() PageRequest {
	return PageRequest{
		Page:      p.Page,
		PageSize:  p.PageSize,
		Search:    p.Search,
		SortField: p.SortField,
		SortDir:   p.SortDir,
	}
}
