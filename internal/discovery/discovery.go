// Package discovery finds prospective vendors in an external directory.
// Every lookup is bounded by a timeout and degrades to a static list.
package discovery

import (
	"context"
	"log"
	"strings"
	"time"
)

// Candidate is a prospective vendor; it is not persisted until a buyer onboards it.
type Candidate struct {
	Name        string   `json:"name" mapstructure:"name"`
	Email       string   `json:"email,omitempty" mapstructure:"email"`
	Phone       string   `json:"phone,omitempty" mapstructure:"phone"`
	Address     string   `json:"address,omitempty" mapstructure:"address"`
	Location    string   `json:"location,omitempty" mapstructure:"location"`
	Website     string   `json:"website,omitempty" mapstructure:"website"`
	LogoURL     string   `json:"logo_url,omitempty" mapstructure:"logo_url"`
	Description string   `json:"description,omitempty" mapstructure:"description"`
	Categories  []string `json:"categories,omitempty" mapstructure:"categories"`
}

type Request struct {
	Query    string
	Location string
	Category string
	Limit    int
}

// Result carries the candidates and where they came from
type Result struct {
	Vendors  []Candidate `json:"vendors"`
	Source   string      `json:"source"` // "directory" or "fallback"
	Degraded bool        `json:"degraded"`
}

const (
	SourceDirectory = "directory"
	SourceFallback  = "fallback"
)

// Searcher is a vendor directory backend
type Searcher interface {
	Search(ctx context.Context, req Request) ([]Candidate, error)
}

type Service struct {
	searcher Searcher
	timeout  time.Duration
	fallback []Candidate
}

// NewService builds a discovery service. searcher may be nil, in which case
// every call is answered from the fallback list.
func NewService(searcher Searcher, timeout time.Duration, fallback []Candidate) *Service {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if fallback == nil {
		fallback = DefaultFallback
	}
	return &Service{searcher: searcher, timeout: timeout, fallback: fallback}
}

func (s *Service) Discover(ctx context.Context, req Request) Result {
	if req.Limit <= 0 || req.Limit > 50 {
		req.Limit = 10
	}

	if s.searcher != nil {
		sctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		vendors, err := s.searcher.Search(sctx, req)
		if err == nil && len(vendors) > 0 {
			if len(vendors) > req.Limit {
				vendors = vendors[:req.Limit]
			}
			return Result{Vendors: vendors, Source: SourceDirectory}
		}
		if err != nil {
			log.Printf("vendor discovery degraded to fallback: %v", err)
		}
	}

	return Result{Vendors: s.matchFallback(req), Source: SourceFallback, Degraded: s.searcher != nil}
}

// matchFallback filters the static list by query and category; when
// nothing matches the whole list is returned.
func (s *Service) matchFallback(req Request) []Candidate {
	q := strings.ToLower(strings.TrimSpace(req.Query))
	cat := strings.ToLower(strings.TrimSpace(req.Category))

	var out []Candidate
	for _, c := range s.fallback {
		if cat != "" && cat != "all" && !containsFold(c.Categories, cat) {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(c.Name+" "+c.Description+" "+strings.Join(c.Categories, " ")), q) {
			continue
		}
		out = append(out, c)
	}
	if len(out) == 0 {
		out = append(out, s.fallback...)
	}
	if len(out) > req.Limit {
		out = out[:req.Limit]
	}
	return out
}

func containsFold(list []string, want string) bool {
	for _, v := range list {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}

// DefaultFallback is served when the directory is unreachable
var DefaultFallback = []Candidate{
	{
		Name:        "Bharat Industrial Supplies",
		Email:       "sales@bharatindustrial.example",
		Phone:       "+91 22 4000 1000",
		Location:    "Mumbai",
		Description: "MRO consumables, fasteners and industrial hardware",
		Categories:  []string{"industrial", "hardware"},
	},
	{
		Name:        "Deccan IT Solutions",
		Email:       "contact@deccanit.example",
		Phone:       "+91 80 4100 2200",
		Location:    "Bengaluru",
		Description: "Laptops, servers and networking equipment",
		Categories:  []string{"it", "electronics"},
	},
	{
		Name:        "Ganga Packaging Pvt Ltd",
		Email:       "info@gangapack.example",
		Phone:       "+91 120 455 7788",
		Location:    "Noida",
		Description: "Corrugated boxes and protective packaging",
		Categories:  []string{"packaging"},
	},
	{
		Name:        "Sahyadri Office Furniture",
		Email:       "orders@sahyadrifurniture.example",
		Phone:       "+91 20 2600 3300",
		Location:    "Pune",
		Description: "Modular workstations and office seating",
		Categories:  []string{"furniture", "office"},
	},
}
