package pagination

import (
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Params holds pagination parameters extracted from a request.
type Params struct {
	Page   int
	Limit  int
	Offset int
	Search string
}

// FromRequest reads page, per_page and search from the query string.
// Out of range values fall back to page 1 and DefaultLimit.
func FromRequest(r *http.Request) Params {
	q := r.URL.Query()

	limit, _ := strconv.Atoi(q.Get("per_page"))
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	page, _ := strconv.Atoi(q.Get("page"))
	if page <= 0 {
		page = 1
	}

	return Params{
		Page:   page,
		Limit:  limit,
		Offset: (page - 1) * limit,
		Search: strings.TrimSpace(q.Get("search")),
	}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int64) bool {
	return int64(p.Offset+p.Limit) < total
}
