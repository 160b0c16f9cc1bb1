package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestParse(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		query string
		want  Params
	}{
		{"", Params{Page: 1, Limit: 20}},
		{"page=3&limit=50", Params{Page: 3, Limit: 50}},
		{"page=0&limit=0", Params{Page: 1, Limit: 20}},
		{"page=-2&limit=5000", Params{Page: 1, Limit: MaxLimit}},
		{"page=two&limit=10", Params{Page: 1, Limit: 20}},
	}
	for _, tt := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("GET", "/api/vendors?"+tt.query, nil)
		if got := Parse(c); got != tt.want {
			t.Errorf("Parse(%q) = %+v, want %+v", tt.query, got, tt.want)
		}
	}
}
