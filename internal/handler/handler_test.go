package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"procurement/internal/middleware"
	"procurement/internal/model"
	"procurement/internal/service"
	"procurement/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

func init() { gin.SetMode(gin.TestMode) }

type tokens map[string]service.Actor

func (t tokens) ParseToken(s string) (service.Actor, error) {
	if a, ok := t[s]; ok {
		return a, nil
	}
	return service.Actor{}, service.ErrUnauthenticated
}

var (
	buyer  = service.Actor{UserID: uuid.New(), Role: model.RoleBuyerUser}
	admin  = service.Actor{UserID: uuid.New(), Role: model.RoleBuyerAdmin}
	vendor = service.Actor{UserID: uuid.New(), Role: model.RoleVendor}
	parser = tokens{"buyer": buyer, "admin": admin, "vendor": vendor}
)

func protected(register func(*gin.RouterGroup)) *gin.Engine {
	r := gin.New()
	g := r.Group("")
	g.Use(middleware.RequireAuth(parser))
	register(g)
	return r
}

func call(r http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, response.Response) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var res response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &res)
	return w, res
}

func TestRespondErrorMapping(t *testing.T) {
	tests := []struct {
		err   error
		code  int
		class string
	}{
		{fmt.Errorf("amount: %w", service.ErrValidation), http.StatusBadRequest, "validation_error"},
		{&service.FieldError{Field: "hsn_code", Message: "required"}, http.StatusBadRequest, "validation_error"},
		{fmt.Errorf("rfq: %w", service.ErrInvalidTransition), http.StatusBadRequest, "invalid_transition"},
		{service.ErrAlreadyDecided, http.StatusBadRequest, "already_decided"},
		{service.ErrUnauthenticated, http.StatusUnauthorized, "unauthenticated"},
		{fmt.Errorf("creator only: %w", service.ErrPermissionDenied), http.StatusForbidden, "permission_denied"},
		{fmt.Errorf("auction %w", service.ErrNotFound), http.StatusNotFound, "not_found"},
		{fmt.Errorf("po number: %w", service.ErrConflict), http.StatusConflict, "conflict"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.class, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
			respondError(c, tt.err)

			if w.Code != tt.code {
				t.Fatalf("code = %d, want %d", w.Code, tt.code)
			}
			var res response.Response
			if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
				t.Fatal(err)
			}
			if res.Status != "error" || res.StatusCode != tt.code || res.Error != tt.class {
				t.Errorf("payload = %+v", res)
			}
			if tt.code == http.StatusInternalServerError && strings.Contains(res.Message, "connection reset") {
				t.Error("internal error detail leaked to client")
			}
		})
	}
}

type stubPO struct {
	service.PurchaseOrderService
	gotActor  service.Actor
	gotSource string
	gotReq    service.CreatePORequest
	err       error
}

func (s *stubPO) DeriveFromRFx(_ context.Context, actor service.Actor, id string, req service.CreatePORequest) (service.PurchaseOrderResponse, error) {
	s.gotActor, s.gotSource, s.gotReq = actor, id, req
	if s.err != nil {
		return service.PurchaseOrderResponse{}, s.err
	}
	return service.PurchaseOrderResponse{PONumber: "PO-TEST-1", Status: string(model.POPendingApproval)}, nil
}

func TestCreatePOFromRFx(t *testing.T) {
	stub := &stubPO{}
	r := protected(NewPurchaseOrderHandler(stub).RegisterRoutes)

	w, _ := call(r, http.MethodPost, "/api/rfx/abc/create_po", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous create_po = %d, want 401", w.Code)
	}

	w, res := call(r, http.MethodPost, "/api/rfx/abc/create_po", "buyer", `{"vendor_id":"v1","total_amount":"100.00"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create_po = %d: %s", w.Code, w.Body.String())
	}
	if stub.gotActor != buyer || stub.gotSource != "abc" || stub.gotReq.VendorID != "v1" || stub.gotReq.TotalAmount != "100.00" {
		t.Errorf("service got actor=%v source=%q req=%+v", stub.gotActor, stub.gotSource, stub.gotReq)
	}
	data, _ := res.Data.(map[string]interface{})
	if data["po_number"] != "PO-TEST-1" {
		t.Errorf("data = %v", res.Data)
	}

	// empty body is allowed
	w, _ = call(r, http.MethodPost, "/api/rfx/abc/create_po", "buyer", "")
	if w.Code != http.StatusCreated {
		t.Fatalf("empty body create_po = %d", w.Code)
	}

	stub.err = fmt.Errorf("only the creator may derive: %w", service.ErrPermissionDenied)
	w, res = call(r, http.MethodPost, "/api/rfx/abc/create_po", "vendor", "")
	if w.Code != http.StatusForbidden || res.Error != "permission_denied" {
		t.Fatalf("denied create_po = %d %+v", w.Code, res)
	}
}

type stubApprovals struct {
	service.ApprovalService
	decided map[string]bool
}

func (s *stubApprovals) Approve(_ context.Context, actor service.Actor, id string, req service.DecisionRequest) (service.ApprovalResponse, error) {
	if s.decided[id] {
		return service.ApprovalResponse{}, fmt.Errorf("approval %s: %w", id, service.ErrAlreadyDecided)
	}
	s.decided[id] = true
	return service.ApprovalResponse{ID: id, Status: string(model.ApprovalApproved), Comments: req.Comments}, nil
}

func TestApproveTwice(t *testing.T) {
	stub := &stubApprovals{decided: map[string]bool{}}
	r := protected(NewApprovalHandler(stub).RegisterRoutes)

	w, _ := call(r, http.MethodPost, "/api/approvals/a1/approve", "vendor", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("vendor approve = %d, want 403", w.Code)
	}

	w, res := call(r, http.MethodPost, "/api/approvals/a1/approve", "admin", `{"comments":"ok"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("approve = %d: %s", w.Code, w.Body.String())
	}
	if data, _ := res.Data.(map[string]interface{}); data["comments"] != "ok" {
		t.Errorf("data = %v", res.Data)
	}

	w, res = call(r, http.MethodPost, "/api/approvals/a1/approve", "admin", "")
	if w.Code != http.StatusBadRequest || res.Error != "already_decided" {
		t.Fatalf("second approve = %d %+v", w.Code, res)
	}
}

type stubTax struct {
	service.TaxService
}

func (stubTax) Calculate(_ context.Context, req service.CalculateTaxRequest) (service.TaxCalculationResponse, error) {
	if req.HSNCode != "8471" {
		return service.TaxCalculationResponse{}, fmt.Errorf("tax rule for %s %w", req.HSNCode, service.ErrNotFound)
	}
	return service.TaxCalculationResponse{RuleID: "r1"}, nil
}

func TestCalculateTax(t *testing.T) {
	r := protected(NewTaxHandler(stubTax{}).RegisterRoutes)

	if w, _ := call(r, http.MethodPost, "/api/tax-rules/calculate_tax", "buyer", `{"amount":"1000"}`); w.Code != http.StatusBadRequest {
		t.Fatalf("missing hsn_code = %d, want 400", w.Code)
	}
	if w, _ := call(r, http.MethodPost, "/api/tax-rules/calculate_tax", "buyer", `{"hsn_code":"9999","amount":"1000"}`); w.Code != http.StatusNotFound {
		t.Fatalf("unknown hsn = %d, want 404", w.Code)
	}
	if w, _ := call(r, http.MethodPost, "/api/tax-rules/calculate_tax", "buyer", `{"hsn_code":"8471","amount":"1000"}`); w.Code != http.StatusOK {
		t.Fatalf("calculate = %d", w.Code)
	}
}

func TestActiveConfigurationsRejectsBadDate(t *testing.T) {
	r := protected(NewTaxHandler(stubTax{}).RegisterRoutes)
	w, res := call(r, http.MethodGet, "/api/tax-rules/active_configurations?date=yesterday", "buyer", "")
	if w.Code != http.StatusBadRequest || res.Error != "validation_error" {
		t.Fatalf("bad date = %d %+v", w.Code, res)
	}
}
