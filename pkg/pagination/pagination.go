package pagination

import "github.com/gin-gonic/gin"

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params is the page window of a listing request. Repositories apply it
// through their paginate scope.
type Params struct {
	Page  int `form:"page"`
	Limit int `form:"limit"`
}

// Parse reads ?page= and ?limit=. Missing or malformed values fall back to
// the defaults and limit is capped at MaxLimit, so listings never fail on
// paging input.
func Parse(c *gin.Context) Params {
	var p Params
	if err := c.ShouldBindQuery(&p); err != nil {
		p = Params{}
	}
	return p.normalize()
}

func (p Params) normalize() Params {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	switch {
	case p.Limit < 1:
		p.Limit = DefaultLimit
	case p.Limit > MaxLimit:
		p.Limit = MaxLimit
	}
	return p
}
