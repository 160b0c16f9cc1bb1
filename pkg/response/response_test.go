package response

import "testing"

func TestSuccessWithPagination(t *testing.T) {
	r := SuccessWithPagination(200, []int{1, 2}, 2, 20, 41)
	if r.Meta == nil || r.Meta.TotalPages != 3 {
		t.Fatalf("meta = %+v, want 3 pages", r.Meta)
	}
	if r.Status != "success" || r.StatusCode != 200 {
		t.Errorf("unexpected envelope %+v", r)
	}
}

func TestErrorMessage(t *testing.T) {
	r := Error(409, "conflict", "BOM already exists")
	if r.Error != "conflict" || r.Message != "BOM already exists" {
		t.Errorf("got %+v", r)
	}
	if Error(500, "internal").Message != "" {
		t.Error("message should be empty when not given")
	}
}
