package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"procurement/internal/discovery"
	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateVendorRequest struct {
	CompanyName       string   `json:"company_name" binding:"required"`
	ContactPerson     string   `json:"contact_person"`
	Email             string   `json:"email"`
	Phone             string   `json:"phone"`
	PANNumber         string   `json:"pan_number"`
	GSTNumber         string   `json:"gst_number"`
	TANNumber         string   `json:"tan_number"`
	Address           string   `json:"address"`
	Categories        []string `json:"categories"`
	Certifications    []string `json:"certifications"`
	Tags              []string `json:"tags"`
	YearsOfExperience int      `json:"years_of_experience" binding:"min=0"`
	UserID            string   `json:"user_id"` // buyers may link an existing vendor login
}

type UpdateVendorRequest struct {
	CompanyName       *string   `json:"company_name"`
	ContactPerson     *string   `json:"contact_person"`
	Email             *string   `json:"email"`
	Phone             *string   `json:"phone"`
	PANNumber         *string   `json:"pan_number"`
	GSTNumber         *string   `json:"gst_number"`
	TANNumber         *string   `json:"tan_number"`
	Address           *string   `json:"address"`
	Categories        *[]string `json:"categories"`
	Certifications    *[]string `json:"certifications"`
	Tags              *[]string `json:"tags"`
	YearsOfExperience *int      `json:"years_of_experience"`
	PerformanceScore  *string   `json:"performance_score"`
	Status            *string   `json:"status"` // suspend / reinstate only
}

type DiscoverVendorsRequest struct {
	Query    string `json:"query" binding:"required"`
	Location string `json:"location"`
	Category string `json:"category"`
	Limit    int    `json:"limit"`
}

type VendorResponse struct {
	ID                uuid.UUID `json:"id"`
	CompanyName       string    `json:"company_name"`
	ContactPerson     string    `json:"contact_person"`
	Email             string    `json:"email"`
	Phone             string    `json:"phone"`
	PANNumber         string    `json:"pan_number"`
	GSTNumber         string    `json:"gst_number"`
	TANNumber         string    `json:"tan_number"`
	Address           string    `json:"address"`
	Categories        []string  `json:"categories"`
	Certifications    []string  `json:"certifications"`
	Tags              []string  `json:"tags"`
	YearsOfExperience int       `json:"years_of_experience"`
	Status            string    `json:"status"`
	PerformanceScore  *string   `json:"performance_score"`
	UserID            *string   `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// --- Interface ---

type VendorService interface {
	CreateVendor(ctx context.Context, actor Actor, req CreateVendorRequest) (VendorResponse, error)
	UpdateVendor(ctx context.Context, actor Actor, id string, req UpdateVendorRequest) (VendorResponse, error)
	DeleteVendor(ctx context.Context, actor Actor, id string) error
	GetVendor(ctx context.Context, actor Actor, id string) (VendorResponse, error)
	GetVendors(ctx context.Context, actor Actor, status, search string, page, limit int) ([]VendorResponse, int64, error)
	Discover(ctx context.Context, actor Actor, req DiscoverVendorsRequest) (discovery.Result, error)
}

// --- Implementation ---

type vendorService struct {
	vendorRepo   repository.VendorRepository
	approvalRepo repository.ApprovalRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	discovery    *discovery.Service
}

func NewVendorService(vendorRepo repository.VendorRepository, approvalRepo repository.ApprovalRepository, auditRepo repository.AuditRepository, txManager repository.TransactionManager, disc *discovery.Service) VendorService {
	if disc == nil {
		disc = discovery.NewService(nil, 0, nil)
	}
	return &vendorService{vendorRepo: vendorRepo, approvalRepo: approvalRepo, auditRepo: auditRepo, txManager: txManager, discovery: disc}
}

// CreateVendor registers a vendor in pending status and opens its
// onboarding approval. A vendor login registers its own profile.
func (s *vendorService) CreateVendor(ctx context.Context, actor Actor, req CreateVendorRequest) (VendorResponse, error) {
	if err := actor.require(); err != nil {
		return VendorResponse{}, err
	}
	if req.Email != "" {
		if _, err := mail.ParseAddress(req.Email); err != nil {
			return VendorResponse{}, invalid("email", "invalid email format")
		}
	}

	var owner *uuid.UUID
	switch {
	case actor.IsVendor():
		uid := actor.UserID
		owner = &uid
	case actor.HasRole(buyerRoles...):
		id, err := parseOptionalID("user_id", req.UserID)
		if err != nil {
			return VendorResponse{}, err
		}
		owner = id
	default:
		return VendorResponse{}, denied("role %q may not create vendors", actor.Role)
	}

	vendor := &model.Vendor{
		CompanyName:       req.CompanyName,
		ContactPerson:     req.ContactPerson,
		Email:             req.Email,
		Phone:             req.Phone,
		PANNumber:         req.PANNumber,
		GSTNumber:         req.GSTNumber,
		TANNumber:         req.TANNumber,
		Address:           req.Address,
		Categories:        jsonValue(req.Categories),
		Certifications:    jsonValue(req.Certifications),
		Tags:              jsonValue(req.Tags),
		YearsOfExperience: req.YearsOfExperience,
		Status:            model.VendorPending,
		UserID:            owner,
		CreatedBy:         actor.UserID,
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if owner != nil {
			_, err := s.vendorRepo.FindByUserID(txCtx, *owner)
			if err == nil {
				return fmt.Errorf("a vendor profile is already linked to this user: %w", ErrConflict)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("failed to check vendor owner: %w", err)
			}
		}
		if err := s.vendorRepo.Create(txCtx, vendor); err != nil {
			return dbError("vendor", err)
		}
		requester := actor.UserID
		approval := &model.ApprovalRecord{
			EntityType:  model.ApprovalEntityVendor,
			EntityID:    vendor.ID,
			RequestedBy: &requester,
			Status:      model.ApprovalPending,
		}
		if err := s.approvalRepo.Create(txCtx, approval); err != nil {
			return fmt.Errorf("failed to open vendor approval: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateVendor, vendor.ID.String(), vendor.CompanyName, req)
	})
	if err != nil {
		return VendorResponse{}, err
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) UpdateVendor(ctx context.Context, actor Actor, id string, req UpdateVendorRequest) (VendorResponse, error) {
	if err := actor.require(); err != nil {
		return VendorResponse{}, err
	}
	vid, err := parseID("id", id)
	if err != nil {
		return VendorResponse{}, err
	}

	var vendor *model.Vendor
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err = s.vendorRepo.FindByIDForUpdate(txCtx, vid)
		if err != nil {
			return dbError("vendor", err)
		}
		if err := s.canEdit(actor, vendor); err != nil {
			return err
		}

		if req.CompanyName != nil {
			if *req.CompanyName == "" {
				return invalid("company_name", "cannot be empty")
			}
			vendor.CompanyName = *req.CompanyName
		}
		if req.Email != nil && *req.Email != "" {
			if _, err := mail.ParseAddress(*req.Email); err != nil {
				return invalid("email", "invalid email format")
			}
			vendor.Email = *req.Email
		}
		if req.ContactPerson != nil {
			vendor.ContactPerson = *req.ContactPerson
		}
		if req.Phone != nil {
			vendor.Phone = *req.Phone
		}
		if req.PANNumber != nil {
			vendor.PANNumber = *req.PANNumber
		}
		if req.GSTNumber != nil {
			vendor.GSTNumber = *req.GSTNumber
		}
		if req.TANNumber != nil {
			vendor.TANNumber = *req.TANNumber
		}
		if req.Address != nil {
			vendor.Address = *req.Address
		}
		if req.Categories != nil {
			vendor.Categories = jsonValue(*req.Categories)
		}
		if req.Certifications != nil {
			vendor.Certifications = jsonValue(*req.Certifications)
		}
		if req.Tags != nil {
			vendor.Tags = jsonValue(*req.Tags)
		}
		if req.YearsOfExperience != nil {
			if *req.YearsOfExperience < 0 {
				return invalid("years_of_experience", "must not be negative")
			}
			vendor.YearsOfExperience = *req.YearsOfExperience
		}
		if req.PerformanceScore != nil {
			if actor.IsVendor() {
				return denied("vendors cannot rate themselves")
			}
			score, err := parseOptionalAmount("performance_score", *req.PerformanceScore)
			if err != nil {
				return err
			}
			vendor.PerformanceScore = score
		}
		if req.Status != nil && model.VendorStatus(*req.Status) != vendor.Status {
			if err := actor.require(approverRoles...); err != nil {
				return err
			}
			next := model.VendorStatus(*req.Status)
			// onboarding decisions belong to the approval gate
			if vendor.Status == model.VendorPending && next != model.VendorSuspended {
				return fmt.Errorf("pending vendors are approved or rejected through approvals: %w", ErrInvalidTransition)
			}
			if err := workflow.Vendor.Check(vendor.Status, next); err != nil {
				return err
			}
			vendor.Status = next
		}

		if err := s.vendorRepo.Update(txCtx, vendor); err != nil {
			return dbError("vendor", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateVendor, vendor.ID.String(), vendor.CompanyName, req)
	})
	if err != nil {
		return VendorResponse{}, err
	}
	return toVendorResponse(*vendor), nil
}

func (s *vendorService) DeleteVendor(ctx context.Context, actor Actor, id string) error {
	if err := actor.require(model.RoleBuyerAdmin); err != nil {
		return err
	}
	vid, err := parseID("id", id)
	if err != nil {
		return err
	}
	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := s.vendorRepo.FindByIDForUpdate(txCtx, vid)
		if err != nil {
			return dbError("vendor", err)
		}
		if err := s.vendorRepo.Delete(txCtx, vid); err != nil {
			return fmt.Errorf("failed to delete vendor: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionDeleteVendor, vid.String(), vendor.CompanyName, nil)
	})
}

func (s *vendorService) GetVendor(ctx context.Context, actor Actor, id string) (VendorResponse, error) {
	if err := actor.require(); err != nil {
		return VendorResponse{}, err
	}
	vid, err := parseID("id", id)
	if err != nil {
		return VendorResponse{}, err
	}
	vendor, err := s.vendorRepo.FindByID(ctx, vid)
	if err != nil {
		return VendorResponse{}, dbError("vendor", err)
	}
	if actor.IsVendor() && !ownsVendor(actor, vendor) {
		return VendorResponse{}, denied("vendors can only view their own profile")
	}
	return toVendorResponse(*vendor), nil
}

// GetVendors lists vendors; a vendor login only ever sees its own profile.
func (s *vendorService) GetVendors(ctx context.Context, actor Actor, status, search string, page, limit int) ([]VendorResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	f := repository.VendorFilter{Status: status, Search: search}
	if actor.IsVendor() {
		uid := actor.UserID
		f.UserID = &uid
	}
	vendors, total, err := s.vendorRepo.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch vendors: %w", err)
	}
	res := make([]VendorResponse, 0, len(vendors))
	for _, v := range vendors {
		res = append(res, toVendorResponse(v))
	}
	return res, total, nil
}

func (s *vendorService) Discover(ctx context.Context, actor Actor, req DiscoverVendorsRequest) (discovery.Result, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return discovery.Result{}, err
	}
	return s.discovery.Discover(ctx, discovery.Request{
		Query:    req.Query,
		Location: req.Location,
		Category: req.Category,
		Limit:    req.Limit,
	}), nil
}

func (s *vendorService) canEdit(actor Actor, vendor *model.Vendor) error {
	if actor.IsVendor() {
		if !ownsVendor(actor, vendor) {
			return denied("vendors can only edit their own profile")
		}
		return nil
	}
	return actor.require(buyerRoles...)
}

func ownsVendor(actor Actor, vendor *model.Vendor) bool {
	return vendor.UserID != nil && *vendor.UserID == actor.UserID
}

// vendorFor returns the vendor profile linked to a vendor login
func vendorFor(ctx context.Context, repo repository.VendorRepository, actor Actor) (*model.Vendor, error) {
	vendor, err := repo.FindByUserID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, denied("no vendor profile is linked to this user")
		}
		return nil, fmt.Errorf("failed to load vendor profile: %w", err)
	}
	return vendor, nil
}

func toVendorResponse(v model.Vendor) VendorResponse {
	return VendorResponse{
		ID:                v.ID,
		CompanyName:       v.CompanyName,
		ContactPerson:     v.ContactPerson,
		Email:             v.Email,
		Phone:             v.Phone,
		PANNumber:         v.PANNumber,
		GSTNumber:         v.GSTNumber,
		TANNumber:         v.TANNumber,
		Address:           v.Address,
		Categories:        stringList(v.Categories),
		Certifications:    stringList(v.Certifications),
		Tags:              stringList(v.Tags),
		YearsOfExperience: v.YearsOfExperience,
		Status:            string(v.Status),
		PerformanceScore:  nullString(v.PerformanceScore),
		UserID:            optionalID(v.UserID),
		CreatedAt:         v.CreatedAt,
		UpdatedAt:         v.UpdatedAt,
	}
}
