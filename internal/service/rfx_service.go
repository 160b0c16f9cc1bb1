package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRFxRequest struct {
	Title                string                 `json:"title" binding:"required"`
	Type                 string                 `json:"type" binding:"required,oneof=rfi rfp rfq"`
	Scope                string                 `json:"scope"`
	Criteria             string                 `json:"criteria"`
	DueDate              string                 `json:"due_date"`
	EvaluationParameters map[string]interface{} `json:"evaluation_parameters"`
	BOMID                string                 `json:"bom_id"`
	ContactPerson        string                 `json:"contact_person"`
	Budget               string                 `json:"budget"`
	VendorIDs            []string               `json:"vendor_ids"`
}

type InviteVendorsRequest struct {
	VendorIDs []string `json:"vendor_ids" binding:"required,min=1"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type SubmitRFxResponseRequest struct {
	QuotedPrice   string `json:"quoted_price" binding:"required"`
	DeliveryTerms string `json:"delivery_terms"`
	PaymentTerms  string `json:"payment_terms"`
	LeadTimeDays  int    `json:"lead_time_days" binding:"min=0"`
	Notes         string `json:"notes"`
}

type InvitationResponse struct {
	VendorID    uuid.UUID  `json:"vendor_id"`
	VendorName  string     `json:"vendor_name,omitempty"`
	Status      string     `json:"status"`
	RespondedAt *time.Time `json:"responded_at"`
}

type RFxEventResponse struct {
	ID                   uuid.UUID            `json:"id"`
	Title                string               `json:"title"`
	Type                 string               `json:"type"`
	Scope                string               `json:"scope"`
	Criteria             string               `json:"criteria"`
	DueDate              *time.Time           `json:"due_date"`
	Status               string               `json:"status"`
	EvaluationParameters interface{}          `json:"evaluation_parameters"`
	BOMID                *string              `json:"bom_id"`
	ContactPerson        string               `json:"contact_person"`
	Budget               *string              `json:"budget"`
	ParentRFxID          *string              `json:"parent_rfx_id"`
	CreatedBy            uuid.UUID            `json:"created_by"`
	Invitations          []InvitationResponse `json:"invitations,omitempty"`
	AllowedTransitions   []string             `json:"allowed_transitions"`
	CreatedAt            time.Time            `json:"created_at"`
}

type RFxOfferResponse struct {
	ID            uuid.UUID `json:"id"`
	RFxID         uuid.UUID `json:"rfx_id"`
	VendorID      uuid.UUID `json:"vendor_id"`
	QuotedPrice   string    `json:"quoted_price"`
	DeliveryTerms string    `json:"delivery_terms"`
	PaymentTerms  string    `json:"payment_terms"`
	LeadTimeDays  int       `json:"lead_time_days"`
	Notes         string    `json:"notes"`
	SubmittedAt   time.Time `json:"submitted_at"`
}

// --- Interface ---

type RFxService interface {
	CreateRFx(ctx context.Context, actor Actor, req CreateRFxRequest) (RFxEventResponse, error)
	GetRFx(ctx context.Context, actor Actor, id string) (RFxEventResponse, error)
	GetRFxEvents(ctx context.Context, actor Actor, rfxType, status string, page, limit int) ([]RFxEventResponse, int64, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (RFxEventResponse, error)
	InviteVendors(ctx context.Context, actor Actor, id string, req InviteVendorsRequest) (int64, error)
	SubmitResponse(ctx context.Context, actor Actor, id string, req SubmitRFxResponseRequest) (RFxOfferResponse, error)
	GetResponses(ctx context.Context, actor Actor, id string) ([]RFxOfferResponse, error)
	CreateNextStage(ctx context.Context, actor Actor, id string) (RFxEventResponse, error)
}

type rfxService struct {
	rfxRepo    repository.RFxRepository
	vendorRepo repository.VendorRepository
	bomRepo    repository.BOMRepository
	auditRepo  repository.AuditRepository
	txManager  repository.TransactionManager
	notifier   *notifier
	now        func() time.Time
}

func NewRFxService(rfxRepo repository.RFxRepository, vendorRepo repository.VendorRepository, bomRepo repository.BOMRepository, auditRepo repository.AuditRepository, notificationRepo repository.NotificationRepository, txManager repository.TransactionManager, pusher Pusher) RFxService {
	return &rfxService{
		rfxRepo:    rfxRepo,
		vendorRepo: vendorRepo,
		bomRepo:    bomRepo,
		auditRepo:  auditRepo,
		txManager:  txManager,
		notifier:   newNotifier(notificationRepo, pusher),
		now:        time.Now,
	}
}

// --- Implementation ---

func (s *rfxService) CreateRFx(ctx context.Context, actor Actor, req CreateRFxRequest) (RFxEventResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return RFxEventResponse{}, err
	}
	if !model.ValidRFxType(req.Type) {
		return RFxEventResponse{}, invalid("type", "must be one of rfi, rfp, rfq")
	}
	bomID, err := parseOptionalID("bom_id", req.BOMID)
	if err != nil {
		return RFxEventResponse{}, err
	}
	budget, err := parseOptionalAmount("budget", req.Budget)
	if err != nil {
		return RFxEventResponse{}, err
	}
	var due *time.Time
	if req.DueDate != "" {
		t, err := parseTimestamp("due_date", req.DueDate)
		if err != nil {
			return RFxEventResponse{}, err
		}
		due = &t
	}
	vendorIDs, err := parseIDList("vendor_ids", req.VendorIDs)
	if err != nil {
		return RFxEventResponse{}, err
	}

	rfx := &model.RFxEvent{
		Title:                req.Title,
		Type:                 model.RFxType(req.Type),
		Scope:                req.Scope,
		Criteria:             req.Criteria,
		DueDate:              due,
		Status:               model.RFxDraft,
		EvaluationParameters: jsonValue(req.EvaluationParameters),
		BOMID:                bomID,
		ContactPerson:        req.ContactPerson,
		Budget:               budget,
		CreatedBy:            actor.UserID,
	}

	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if bomID != nil {
			if _, err := s.bomRepo.FindByID(txCtx, *bomID); err != nil {
				return dbError("BOM", err)
			}
		}
		if err := s.rfxRepo.Create(txCtx, rfx); err != nil {
			return dbError("RFx", err)
		}
		if sent, err = s.invite(txCtx, rfx, vendorIDs); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateRFx, rfx.ID.String(), rfx.Title, req)
	})
	if err != nil {
		return RFxEventResponse{}, err
	}
	s.notifier.push(sent...)
	return s.GetRFx(ctx, actor, rfx.ID.String())
}

// GetRFx returns an event. Vendors only see events they are invited to;
// the first view moves their invitation to "viewed".
func (s *rfxService) GetRFx(ctx context.Context, actor Actor, id string) (RFxEventResponse, error) {
	if err := actor.require(); err != nil {
		return RFxEventResponse{}, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return RFxEventResponse{}, err
	}
	rfx, err := s.rfxRepo.FindByID(ctx, rid)
	if err != nil {
		return RFxEventResponse{}, dbError("RFx", err)
	}
	if !actor.IsVendor() {
		return toRFxResponse(*rfx, true), nil
	}

	vendor, err := vendorFor(ctx, s.vendorRepo, actor)
	if err != nil {
		return RFxEventResponse{}, err
	}
	inv, err := s.rfxRepo.FindInvitation(ctx, rid, vendor.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return RFxEventResponse{}, fmt.Errorf("RFx %w", ErrNotFound)
		}
		return RFxEventResponse{}, fmt.Errorf("failed to load invitation: %w", err)
	}
	if inv.Status == model.InvitationInvited {
		inv.Status = model.InvitationViewed
		inv.Vendor = nil
		if err := s.rfxRepo.UpdateInvitation(ctx, inv); err != nil {
			return RFxEventResponse{}, fmt.Errorf("failed to update invitation: %w", err)
		}
	}
	return toRFxResponse(*rfx, false), nil
}

func (s *rfxService) GetRFxEvents(ctx context.Context, actor Actor, rfxType, status string, page, limit int) ([]RFxEventResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	f := repository.RFxFilter{Type: rfxType, Status: status}
	if actor.IsVendor() {
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return nil, 0, err
		}
		f.VendorID = &vendor.ID
	}
	events, total, err := s.rfxRepo.List(ctx, f, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch RFx events: %w", err)
	}
	res := make([]RFxEventResponse, 0, len(events))
	for _, e := range events {
		res = append(res, toRFxResponse(e, false))
	}
	return res, total, nil
}

func (s *rfxService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (RFxEventResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return RFxEventResponse{}, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return RFxEventResponse{}, err
	}
	next := model.RFxStatus(req.Status)
	if !workflow.RFx.Known(next) {
		return RFxEventResponse{}, invalid("status", "unknown RFx status %q", req.Status)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rfx, err := s.rfxRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return dbError("RFx", err)
		}
		if rfx.CreatedBy != actor.UserID {
			return denied("only the creator can change the status of this RFx")
		}
		if err := workflow.RFx.Check(rfx.Status, next); err != nil {
			return err
		}
		if err := s.rfxRepo.UpdateStatus(txCtx, rid, next); err != nil {
			return fmt.Errorf("failed to update RFx status: %w", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionUpdateRFxStatus, rid.String(), rfx.Title,
			map[string]string{"from": string(rfx.Status), "to": string(next)})
	})
	if err != nil {
		return RFxEventResponse{}, err
	}
	return s.GetRFx(ctx, actor, id)
}

// InviteVendors adds approved vendors to an open event and returns how many
// were newly invited.
func (s *rfxService) InviteVendors(ctx context.Context, actor Actor, id string, req InviteVendorsRequest) (int64, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return 0, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return 0, err
	}
	vendorIDs, err := parseIDList("vendor_ids", req.VendorIDs)
	if err != nil {
		return 0, err
	}

	var sent []*model.Notification
	var added int64
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		rfx, err := s.rfxRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return dbError("RFx", err)
		}
		if rfx.CreatedBy != actor.UserID {
			return denied("only the creator can invite vendors to this RFx")
		}
		if workflow.RFx.Terminal(rfx.Status) || rfx.Status == model.RFxClosed {
			return fmt.Errorf("RFx is %s: %w", rfx.Status, ErrInvalidTransition)
		}
		before, err := s.rfxRepo.ListInvitations(txCtx, rid)
		if err != nil {
			return fmt.Errorf("failed to load invitations: %w", err)
		}
		if sent, err = s.invite(txCtx, rfx, vendorIDs); err != nil {
			return err
		}
		after, err := s.rfxRepo.ListInvitations(txCtx, rid)
		if err != nil {
			return fmt.Errorf("failed to load invitations: %w", err)
		}
		added = int64(len(after) - len(before))
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionInviteVendors, rid.String(), rfx.Title, req)
	})
	if err != nil {
		return 0, err
	}
	s.notifier.push(sent...)
	return added, nil
}

// SubmitResponse records a vendor's offer while the event is published or active
func (s *rfxService) SubmitResponse(ctx context.Context, actor Actor, id string, req SubmitRFxResponseRequest) (RFxOfferResponse, error) {
	if err := actor.require(model.RoleVendor); err != nil {
		return RFxOfferResponse{}, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return RFxOfferResponse{}, err
	}
	price, err := parseAmount("quoted_price", req.QuotedPrice)
	if err != nil {
		return RFxOfferResponse{}, err
	}

	var offer *model.RFxResponse
	var sent *model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := vendorFor(txCtx, s.vendorRepo, actor)
		if err != nil {
			return err
		}
		rfx, err := s.rfxRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return dbError("RFx", err)
		}
		inv, err := s.rfxRepo.FindInvitation(txCtx, rid, vendor.ID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return denied("vendor is not invited to this RFx")
			}
			return fmt.Errorf("failed to load invitation: %w", err)
		}
		if rfx.Status != model.RFxPublished && rfx.Status != model.RFxActive {
			return invalid("status", "RFx is %s and no longer accepts responses", rfx.Status)
		}
		if inv.Status == model.InvitationDeclined {
			return invalid("status", "invitation was declined")
		}

		now := s.now()
		offer = &model.RFxResponse{
			RFxID:         rid,
			VendorID:      vendor.ID,
			QuotedPrice:   price,
			DeliveryTerms: req.DeliveryTerms,
			PaymentTerms:  req.PaymentTerms,
			LeadTimeDays:  req.LeadTimeDays,
			Notes:         req.Notes,
			SubmittedAt:   now,
		}
		if err := s.rfxRepo.CreateResponse(txCtx, offer); err != nil {
			return dbError("RFx response", err)
		}
		inv.Status = model.InvitationResponded
		inv.RespondedAt = &now
		inv.Vendor = nil
		if err := s.rfxRepo.UpdateInvitation(txCtx, inv); err != nil {
			return fmt.Errorf("failed to update invitation: %w", err)
		}
		if err := writeAudit(txCtx, s.auditRepo, &actor, model.ActionSubmitRFxResponse, rid.String(), rfx.Title,
			map[string]string{"vendor_id": vendor.ID.String(), "quoted_price": price.StringFixed(2)}); err != nil {
			return err
		}
		sent, err = s.notifier.notify(txCtx, rfx.CreatedBy, model.NotificationInfo, "New RFx response",
			fmt.Sprintf("%s quoted %s on %s", vendor.CompanyName, price.StringFixed(2), rfx.Title),
			"rfx", &rfx.ID)
		return err
	})
	if err != nil {
		return RFxOfferResponse{}, err
	}
	s.notifier.push(sent)
	return toRFxOfferResponse(*offer), nil
}

// GetResponses lists offers; vendors only see their own
func (s *rfxService) GetResponses(ctx context.Context, actor Actor, id string) ([]RFxOfferResponse, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.rfxRepo.FindByID(ctx, rid); err != nil {
		return nil, dbError("RFx", err)
	}
	var vendorID *uuid.UUID
	if actor.IsVendor() {
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return nil, err
		}
		vendorID = &vendor.ID
	}
	offers, err := s.rfxRepo.ListResponses(ctx, rid, vendorID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch RFx responses: %w", err)
	}
	res := make([]RFxOfferResponse, 0, len(offers))
	for _, o := range offers {
		res = append(res, toRFxOfferResponse(o))
	}
	return res, nil
}

// CreateNextStage opens the follow-up event (rfi -> rfp -> rfq) of a closed
// RFx, carrying over its content and invitation list.
func (s *rfxService) CreateNextStage(ctx context.Context, actor Actor, id string) (RFxEventResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return RFxEventResponse{}, err
	}
	rid, err := parseID("id", id)
	if err != nil {
		return RFxEventResponse{}, err
	}

	var next *model.RFxEvent
	var sent []*model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		parent, err := s.rfxRepo.FindByIDForUpdate(txCtx, rid)
		if err != nil {
			return dbError("RFx", err)
		}
		if parent.CreatedBy != actor.UserID {
			return denied("only the creator can open the next stage of this RFx")
		}
		if parent.Status != model.RFxClosed {
			return fmt.Errorf("next stage requires a closed RFx, got %s: %w", parent.Status, ErrInvalidTransition)
		}
		nextType, ok := parent.Type.Next()
		if !ok {
			return fmt.Errorf("%s is the final RFx stage: %w", parent.Type, ErrInvalidTransition)
		}

		next = &model.RFxEvent{
			Title:                parent.Title,
			Type:                 nextType,
			Scope:                parent.Scope,
			Criteria:             parent.Criteria,
			Status:               model.RFxDraft,
			EvaluationParameters: parent.EvaluationParameters,
			BOMID:                parent.BOMID,
			ContactPerson:        parent.ContactPerson,
			Budget:               parent.Budget,
			ParentRFxID:          &parent.ID,
			CreatedBy:            actor.UserID,
		}
		if err := s.rfxRepo.Create(txCtx, next); err != nil {
			return dbError("RFx", err)
		}

		invitations, err := s.rfxRepo.ListInvitations(txCtx, parent.ID)
		if err != nil {
			return fmt.Errorf("failed to load invitations: %w", err)
		}
		carried := make([]uuid.UUID, 0, len(invitations))
		for _, inv := range invitations {
			if inv.Status != model.InvitationDeclined {
				carried = append(carried, inv.VendorID)
			}
		}
		// vendors suspended or removed since the last stage drop out
		vendors, err := s.vendorRepo.FindByIDs(txCtx, carried)
		if err != nil {
			return fmt.Errorf("failed to load vendors: %w", err)
		}
		vendorIDs := make([]uuid.UUID, 0, len(vendors))
		for _, v := range vendors {
			if v.Status == model.VendorApproved {
				vendorIDs = append(vendorIDs, v.ID)
			}
		}
		if sent, err = s.invite(txCtx, next, vendorIDs); err != nil {
			return err
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateNextStage, next.ID.String(), next.Title,
			map[string]string{"parent_rfx_id": parent.ID.String(), "type": string(nextType)})
	})
	if err != nil {
		return RFxEventResponse{}, err
	}
	s.notifier.push(sent...)
	return s.GetRFx(ctx, actor, next.ID.String())
}

// invite creates invitations for approved vendors and queues a notification
// for each vendor login. Already-invited vendors are skipped.
func (s *rfxService) invite(ctx context.Context, rfx *model.RFxEvent, vendorIDs []uuid.UUID) ([]*model.Notification, error) {
	if len(vendorIDs) == 0 {
		return nil, nil
	}
	vendors, err := s.vendorRepo.FindByIDs(ctx, vendorIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load vendors: %w", err)
	}
	byID := make(map[uuid.UUID]model.Vendor, len(vendors))
	for _, v := range vendors {
		byID[v.ID] = v
	}

	existing, err := s.rfxRepo.ListInvitations(ctx, rfx.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load invitations: %w", err)
	}
	invited := make(map[uuid.UUID]bool, len(existing))
	for _, inv := range existing {
		invited[inv.VendorID] = true
	}

	var rows []model.RFxInvitation
	var fresh []model.Vendor
	for _, vid := range vendorIDs {
		v, ok := byID[vid]
		if !ok {
			return nil, fmt.Errorf("vendor %s %w", vid, ErrNotFound)
		}
		if v.Status != model.VendorApproved {
			return nil, invalid("vendor_ids", "vendor %s is %s, only approved vendors can be invited", v.CompanyName, v.Status)
		}
		if invited[vid] {
			continue
		}
		invited[vid] = true
		rows = append(rows, model.RFxInvitation{RFxID: rfx.ID, VendorID: vid, Status: model.InvitationInvited})
		fresh = append(fresh, v)
	}
	if _, err := s.rfxRepo.CreateInvitations(ctx, rows); err != nil {
		return nil, fmt.Errorf("failed to create invitations: %w", err)
	}

	var sent []*model.Notification
	for _, v := range fresh {
		if v.UserID == nil {
			continue
		}
		n, err := s.notifier.notify(ctx, *v.UserID, model.NotificationInfo, "RFx invitation",
			fmt.Sprintf("You have been invited to %s: %s", rfx.Type, rfx.Title), "rfx", &rfx.ID)
		if err != nil {
			return nil, err
		}
		sent = append(sent, n)
	}
	return sent, nil
}

func parseIDList(field string, raw []string) ([]uuid.UUID, error) {
	out := make([]uuid.UUID, 0, len(raw))
	for i, r := range raw {
		id, err := parseID(fmt.Sprintf("%s[%d]", field, i), r)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

func toRFxResponse(r model.RFxEvent, withInvitations bool) RFxEventResponse {
	res := RFxEventResponse{
		ID:                   r.ID,
		Title:                r.Title,
		Type:                 string(r.Type),
		Scope:                r.Scope,
		Criteria:             r.Criteria,
		DueDate:              r.DueDate,
		Status:               string(r.Status),
		EvaluationParameters: r.EvaluationParameters,
		BOMID:                optionalID(r.BOMID),
		ContactPerson:        r.ContactPerson,
		Budget:               nullString(r.Budget),
		ParentRFxID:          optionalID(r.ParentRFxID),
		CreatedBy:            r.CreatedBy,
		CreatedAt:            r.CreatedAt,
	}
	for _, st := range workflow.RFx.Next(r.Status) {
		res.AllowedTransitions = append(res.AllowedTransitions, string(st))
	}
	if withInvitations {
		for _, inv := range r.Invitations {
			ir := InvitationResponse{VendorID: inv.VendorID, Status: string(inv.Status), RespondedAt: inv.RespondedAt}
			if inv.Vendor != nil {
				ir.VendorName = inv.Vendor.CompanyName
			}
			res.Invitations = append(res.Invitations, ir)
		}
	}
	return res
}

func toRFxOfferResponse(o model.RFxResponse) RFxOfferResponse {
	return RFxOfferResponse{
		ID:            o.ID,
		RFxID:         o.RFxID,
		VendorID:      o.VendorID,
		QuotedPrice:   o.QuotedPrice.StringFixed(2),
		DeliveryTerms: o.DeliveryTerms,
		PaymentTerms:  o.PaymentTerms,
		LeadTimeDays:  o.LeadTimeDays,
		Notes:         o.Notes,
		SubmittedAt:   o.SubmittedAt,
	}
}
