package inventio

import (
	"fmt"
	"sort"
)

// Page is one company of an endpoint.
type Page struct {
	Company string
	Token   string
}

// CompanyPaginator walks the companies configured for an endpoint. Inventio
// has no paging of its own; each company is fetched with a single request.
type CompanyPaginator struct {
	pages []Page
	next  int
}

// NewCompanyPaginator orders companies by name.
func NewCompanyPaginator(companies map[string]string) (*CompanyPaginator, error) {
	if len(companies) == 0 {
		return nil, fmt.Errorf("no companies configured")
	}
	pages := make([]Page, 0, len(companies))
	for company, token := range companies {
		pages = append(pages, Page{Company: company, Token: token})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Company < pages[j].Company })
	return &CompanyPaginator{pages: pages}, nil
}

// Next returns the following page, or false once every company was visited.
func (p *CompanyPaginator) Next() (Page, bool) {
	if p.next >= len(p.pages) {
		return Page{}, false
	}
	page := p.pages[p.next]
	p.next++
	return page, true
}

// Len is the total number of pages.
func (p *CompanyPaginator) Len() int {
	return len(p.pages)
}
