package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"
	"procurement/internal/workflow"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateAuctionRequest struct {
	Name         string `json:"name" binding:"required"`
	Description  string `json:"description"`
	BOMID        string `json:"bom_id"`
	StartTime    string `json:"start_time" binding:"required"` // RFC3339
	EndTime      string `json:"end_time" binding:"required"`
	ReservePrice string `json:"reserve_price"`
}

type RegisterAuctionRequest struct {
	VendorID string `json:"vendor_id"` // required when a buyer registers a vendor
}

type PlaceBidRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type AuctionResponse struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	Description        string    `json:"description"`
	BOMID              *string   `json:"bom_id"`
	StartTime          time.Time `json:"start_time"`
	EndTime            time.Time `json:"end_time"`
	ReservePrice       *string   `json:"reserve_price"`
	CurrentBid         *string   `json:"current_bid"`
	Status             string    `json:"status"`
	WinnerID           *string   `json:"winner_id"`
	WinningBid         *string   `json:"winning_bid"`
	CreatedBy          uuid.UUID `json:"created_by"`
	AllowedTransitions []string  `json:"allowed_transitions"`
	CreatedAt          time.Time `json:"created_at"`
}

type BidResponse struct {
	ID        uuid.UUID `json:"id"`
	AuctionID uuid.UUID `json:"auction_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Amount    string    `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	PlacedAt  time.Time `json:"placed_at"`
}

// PlaceBidResponse reports whether the bid took the lead
type PlaceBidResponse struct {
	Bid        BidResponse `json:"bid"`
	Leading    bool        `json:"leading"`
	CurrentBid *string     `json:"current_bid"`
}

type ParticipantResponse struct {
	AuctionID    uuid.UUID `json:"auction_id"`
	VendorID     uuid.UUID `json:"vendor_id"`
	RegisteredAt time.Time `json:"registered_at"`
}

// --- Interface ---

type AuctionService interface {
	CreateAuction(ctx context.Context, actor Actor, req CreateAuctionRequest) (AuctionResponse, error)
	GetAuction(ctx context.Context, actor Actor, id string) (AuctionResponse, error)
	GetAuctions(ctx context.Context, actor Actor, status string, page, limit int) ([]AuctionResponse, int64, error)
	Register(ctx context.Context, actor Actor, id string, req RegisterAuctionRequest) (ParticipantResponse, error)
	PlaceBid(ctx context.Context, actor Actor, id string, req PlaceBidRequest) (PlaceBidResponse, error)
	GetBids(ctx context.Context, actor Actor, id string) ([]BidResponse, error)
	UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (AuctionResponse, error)
	DeclareWinner(ctx context.Context, actor Actor, id string) (AuctionResponse, error)
	// AdvanceSchedule moves auctions along their time window and returns
	// how many changed status.
	AdvanceSchedule(ctx context.Context, now time.Time) (int, error)
}

type auctionService struct {
	auctionRepo repository.AuctionRepository
	vendorRepo  repository.VendorRepository
	bomRepo     repository.BOMRepository
	auditRepo   repository.AuditRepository
	txManager   repository.TransactionManager
	notifier    *notifier
	now         func() time.Time
}

func NewAuctionService(auctionRepo repository.AuctionRepository, vendorRepo repository.VendorRepository, bomRepo repository.BOMRepository, auditRepo repository.AuditRepository, notificationRepo repository.NotificationRepository, txManager repository.TransactionManager, pusher Pusher) AuctionService {
	return &auctionService{
		auctionRepo: auctionRepo,
		vendorRepo:  vendorRepo,
		bomRepo:     bomRepo,
		auditRepo:   auditRepo,
		txManager:   txManager,
		notifier:    newNotifier(notificationRepo, pusher),
		now:         time.Now,
	}
}

// --- Implementation ---

func (s *auctionService) CreateAuction(ctx context.Context, actor Actor, req CreateAuctionRequest) (AuctionResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return AuctionResponse{}, err
	}
	start, err := parseTimestamp("start_time", req.StartTime)
	if err != nil {
		return AuctionResponse{}, err
	}
	end, err := parseTimestamp("end_time", req.EndTime)
	if err != nil {
		return AuctionResponse{}, err
	}
	if !end.After(start) {
		return AuctionResponse{}, invalid("end_time", "must be after start_time")
	}
	reserve, err := parseOptionalAmount("reserve_price", req.ReservePrice)
	if err != nil {
		return AuctionResponse{}, err
	}
	bomID, err := parseOptionalID("bom_id", req.BOMID)
	if err != nil {
		return AuctionResponse{}, err
	}

	auction := &model.Auction{
		Name:         req.Name,
		Description:  req.Description,
		BOMID:        bomID,
		StartTime:    start,
		EndTime:      end,
		ReservePrice: reserve,
		Status:       model.AuctionScheduled,
		CreatedBy:    actor.UserID,
	}
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if bomID != nil {
			if _, err := s.bomRepo.FindByID(txCtx, *bomID); err != nil {
				return dbError("BOM", err)
			}
		}
		if err := s.auctionRepo.Create(txCtx, auction); err != nil {
			return dbError("auction", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionCreateAuction, auction.ID.String(), auction.Name, req)
	})
	if err != nil {
		return AuctionResponse{}, err
	}
	return toAuctionResponse(*auction), nil
}

func (s *auctionService) GetAuction(ctx context.Context, actor Actor, id string) (AuctionResponse, error) {
	if err := actor.require(); err != nil {
		return AuctionResponse{}, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return AuctionResponse{}, err
	}
	auction, err := s.auctionRepo.FindByID(ctx, aid)
	if err != nil {
		return AuctionResponse{}, dbError("auction", err)
	}
	return toAuctionResponse(*auction), nil
}

func (s *auctionService) GetAuctions(ctx context.Context, actor Actor, status string, page, limit int) ([]AuctionResponse, int64, error) {
	if err := actor.require(); err != nil {
		return nil, 0, err
	}
	auctions, total, err := s.auctionRepo.List(ctx, status, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch auctions: %w", err)
	}
	res := make([]AuctionResponse, 0, len(auctions))
	for _, a := range auctions {
		res = append(res, toAuctionResponse(a))
	}
	return res, total, nil
}

// Register adds a participant. A vendor registers its own profile; the
// auction's creator may register any approved vendor.
func (s *auctionService) Register(ctx context.Context, actor Actor, id string, req RegisterAuctionRequest) (ParticipantResponse, error) {
	if err := actor.require(); err != nil {
		return ParticipantResponse{}, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return ParticipantResponse{}, err
	}

	var participant *model.AuctionParticipant
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		auction, err := s.auctionRepo.FindByIDForUpdate(txCtx, aid)
		if err != nil {
			return dbError("auction", err)
		}

		var vendor *model.Vendor
		if actor.IsVendor() {
			if vendor, err = vendorFor(txCtx, s.vendorRepo, actor); err != nil {
				return err
			}
		} else {
			if auction.CreatedBy != actor.UserID {
				return denied("only the creator can register vendors for this auction")
			}
			vid, err := parseID("vendor_id", req.VendorID)
			if err != nil {
				return err
			}
			if vendor, err = s.vendorRepo.FindByID(txCtx, vid); err != nil {
				return dbError("vendor", err)
			}
		}
		if vendor.Status != model.VendorApproved {
			return invalid("vendor_id", "vendor is %s, only approved vendors can participate", vendor.Status)
		}
		if auction.Status != model.AuctionScheduled && auction.Status != model.AuctionLive {
			return invalid("status", "auction is %s and no longer accepts registrations", auction.Status)
		}
		ok, err := s.auctionRepo.IsParticipant(txCtx, aid, vendor.ID)
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if ok {
			return fmt.Errorf("vendor already registered: %w", ErrConflict)
		}

		participant = &model.AuctionParticipant{AuctionID: aid, VendorID: vendor.ID, RegisteredAt: s.now()}
		if err := s.auctionRepo.AddParticipant(txCtx, participant); err != nil {
			return dbError("auction registration", err)
		}
		return writeAudit(txCtx, s.auditRepo, &actor, model.ActionRegisterAuction, aid.String(), auction.Name,
			map[string]string{"vendor_id": vendor.ID.String()})
	})
	if err != nil {
		return ParticipantResponse{}, err
	}
	return ParticipantResponse{AuctionID: participant.AuctionID, VendorID: participant.VendorID, RegisteredAt: participant.RegisteredAt}, nil
}

// PlaceBid stores the bid and raises current_bid with a conditional
// update, so concurrent bids settle on the maximum. A bid equal to the
// current one is recorded but does not take the lead. A bid never commits
// once the auction has left live.
func (s *auctionService) PlaceBid(ctx context.Context, actor Actor, id string, req PlaceBidRequest) (PlaceBidResponse, error) {
	if err := actor.require(model.RoleVendor); err != nil {
		return PlaceBidResponse{}, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return PlaceBidResponse{}, err
	}
	amount, err := parseAmount("amount", req.Amount)
	if err != nil {
		return PlaceBidResponse{}, err
	}

	var bid *model.Bid
	var leading bool
	var outbid *model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		vendor, err := vendorFor(txCtx, s.vendorRepo, actor)
		if err != nil {
			return err
		}
		// the row lock holds off status changes until the bid commits
		auction, err := s.auctionRepo.FindByIDForUpdate(txCtx, aid)
		if err != nil {
			return dbError("auction", err)
		}
		now := s.now()
		if auction.Status != model.AuctionLive {
			return invalid("status", "auction is %s, bids are accepted only while live", auction.Status)
		}
		if now.After(auction.EndTime) {
			return invalid("status", "auction ended at %s", auction.EndTime.Format(time.RFC3339))
		}
		registered, err := s.auctionRepo.IsParticipant(txCtx, aid, vendor.ID)
		if err != nil {
			return fmt.Errorf("failed to check registration: %w", err)
		}
		if !registered {
			return denied("vendor is not registered for this auction")
		}

		previous, err := s.auctionRepo.HighestBid(txCtx, aid)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load leading bid: %w", err)
		}

		bid = &model.Bid{AuctionID: aid, VendorID: vendor.ID, Amount: amount, PlacedAt: now}
		if err := s.auctionRepo.CreateBid(txCtx, bid); err != nil {
			return dbError("bid", err)
		}
		if leading, err = s.auctionRepo.RaiseCurrentBid(txCtx, aid, amount); err != nil {
			return fmt.Errorf("failed to update current bid: %w", err)
		}
		if !leading {
			// a miss is either a low bid or an auction that left live
			current, err := s.auctionRepo.FindByID(txCtx, aid)
			if err != nil {
				return dbError("auction", err)
			}
			if current.Status != model.AuctionLive {
				return invalid("status", "auction is %s, bids are accepted only while live", current.Status)
			}
		}
		if err := writeAudit(txCtx, s.auditRepo, &actor, model.ActionPlaceBid, aid.String(), auction.Name,
			map[string]interface{}{"vendor_id": vendor.ID.String(), "amount": amount.StringFixed(2), "leading": leading}); err != nil {
			return err
		}

		if leading && previous != nil && previous.VendorID != vendor.ID {
			prev, err := s.vendorRepo.FindByID(txCtx, previous.VendorID)
			if err == nil && prev.UserID != nil {
				outbid, err = s.notifier.notify(txCtx, *prev.UserID, model.NotificationWarning, "You have been outbid",
					fmt.Sprintf("A bid of %s was placed on %s", amount.StringFixed(2), auction.Name), "auction", &auction.ID)
				if err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return PlaceBidResponse{}, err
	}
	s.notifier.push(outbid)

	res := PlaceBidResponse{Bid: toBidResponse(*bid), Leading: leading}
	if current, err := s.auctionRepo.FindByID(ctx, aid); err == nil {
		res.CurrentBid = nullString(current.CurrentBid)
	}
	return res, nil
}

// GetBids returns the bid history; vendors only see their own bids
func (s *auctionService) GetBids(ctx context.Context, actor Actor, id string) ([]BidResponse, error) {
	if err := actor.require(); err != nil {
		return nil, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return nil, err
	}
	if _, err := s.auctionRepo.FindByID(ctx, aid); err != nil {
		return nil, dbError("auction", err)
	}
	var own *uuid.UUID
	if actor.IsVendor() {
		vendor, err := vendorFor(ctx, s.vendorRepo, actor)
		if err != nil {
			return nil, err
		}
		own = &vendor.ID
	}
	bids, err := s.auctionRepo.ListBids(ctx, aid)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bids: %w", err)
	}
	res := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		if own != nil && b.VendorID != *own {
			continue
		}
		res = append(res, toBidResponse(b))
	}
	return res, nil
}

func (s *auctionService) UpdateStatus(ctx context.Context, actor Actor, id string, req UpdateStatusRequest) (AuctionResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return AuctionResponse{}, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return AuctionResponse{}, err
	}
	next := model.AuctionStatus(req.Status)
	if !workflow.Auction.Known(next) {
		return AuctionResponse{}, invalid("status", "unknown auction status %q", req.Status)
	}

	var auction *model.Auction
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		auction, err = s.auctionRepo.FindByIDForUpdate(txCtx, aid)
		if err != nil {
			return dbError("auction", err)
		}
		if auction.CreatedBy != actor.UserID {
			return denied("only the creator can change the status of this auction")
		}
		return s.transition(txCtx, &actor, auction, next)
	})
	if err != nil {
		return AuctionResponse{}, err
	}
	return toAuctionResponse(*auction), nil
}

// DeclareWinner awards a completed auction to its highest bid; ties go to
// the earliest bid.
func (s *auctionService) DeclareWinner(ctx context.Context, actor Actor, id string) (AuctionResponse, error) {
	if err := actor.require(buyerRoles...); err != nil {
		return AuctionResponse{}, err
	}
	aid, err := parseID("id", id)
	if err != nil {
		return AuctionResponse{}, err
	}

	var auction *model.Auction
	var sent *model.Notification
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		auction, err = s.auctionRepo.FindByIDForUpdate(txCtx, aid)
		if err != nil {
			return dbError("auction", err)
		}
		if auction.CreatedBy != actor.UserID {
			return denied("only the creator can declare the winner of this auction")
		}
		if auction.Status != model.AuctionCompleted {
			return fmt.Errorf("auction is %s, a winner can only be declared once completed: %w", auction.Status, ErrInvalidTransition)
		}
		if auction.WinnerID != nil {
			return fmt.Errorf("winner already declared: %w", ErrAlreadyDecided)
		}
		top, err := s.auctionRepo.HighestBid(txCtx, aid)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("bids", "auction has no bids")
			}
			return fmt.Errorf("failed to load highest bid: %w", err)
		}
		if err := awardAuction(txCtx, s.auctionRepo, auction, top); err != nil {
			return err
		}
		if err := writeAudit(txCtx, s.auditRepo, &actor, model.ActionDeclareWinner, aid.String(), auction.Name,
			map[string]string{"vendor_id": top.VendorID.String(), "amount": top.Amount.StringFixed(2)}); err != nil {
			return err
		}
		winner, err := s.vendorRepo.FindByID(txCtx, top.VendorID)
		if err == nil && winner.UserID != nil {
			sent, err = s.notifier.notify(txCtx, *winner.UserID, model.NotificationSuccess, "Auction won",
				fmt.Sprintf("Your bid of %s won %s", top.Amount.StringFixed(2), auction.Name), "auction", &auction.ID)
			return err
		}
		return nil
	})
	if err != nil {
		return AuctionResponse{}, err
	}
	s.notifier.push(sent)
	return toAuctionResponse(*auction), nil
}

func (s *auctionService) AdvanceSchedule(ctx context.Context, now time.Time) (int, error) {
	auctions, err := s.auctionRepo.ListByStatus(ctx, model.AuctionScheduled, model.AuctionLive)
	if err != nil {
		return 0, fmt.Errorf("failed to list open auctions: %w", err)
	}

	changed := 0
	for _, a := range auctions {
		if dueStatus(a, now) == a.Status {
			continue
		}
		moved := false
		err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			auction, err := s.auctionRepo.FindByIDForUpdate(txCtx, a.ID)
			if err != nil {
				return dbError("auction", err)
			}
			next := dueStatus(*auction, now)
			if next == auction.Status {
				return nil
			}
			moved = true
			return s.transition(txCtx, nil, auction, next)
		})
		if err != nil {
			log.Printf("auction scheduler: %s: %v", a.ID, err)
			continue
		}
		if moved {
			changed++
		}
	}
	return changed, nil
}

// dueStatus is where the clock says an open auction should be. A
// scheduled auction whose whole window passed is cancelled rather than
// opened for an instant.
func dueStatus(a model.Auction, now time.Time) model.AuctionStatus {
	switch a.Status {
	case model.AuctionScheduled:
		if !now.Before(a.EndTime) {
			return model.AuctionCancelled
		}
		if !now.Before(a.StartTime) {
			return model.AuctionLive
		}
	case model.AuctionLive:
		if !now.Before(a.EndTime) {
			return model.AuctionCompleted
		}
	}
	return a.Status
}

// transition validates and writes a status change; a nil actor marks the scheduler
func (s *auctionService) transition(ctx context.Context, actor *Actor, auction *model.Auction, next model.AuctionStatus) error {
	if err := workflow.Auction.Check(auction.Status, next); err != nil {
		return err
	}
	from := auction.Status
	if err := s.auctionRepo.UpdateStatus(ctx, auction.ID, next); err != nil {
		return fmt.Errorf("failed to update auction status: %w", err)
	}
	auction.Status = next
	return writeAudit(ctx, s.auditRepo, actor, model.ActionUpdateAuctionStatus, auction.ID.String(), auction.Name,
		map[string]string{"from": string(from), "to": string(next)})
}

// awardAuction records the winner on the auction and its bid
func awardAuction(ctx context.Context, repo repository.AuctionRepository, auction *model.Auction, bid *model.Bid) error {
	auction.WinnerID = &bid.VendorID
	auction.WinningBid = nullDecimal(bid.Amount)
	if err := repo.Update(ctx, auction); err != nil {
		return fmt.Errorf("failed to record winner: %w", err)
	}
	if err := repo.MarkWinningBid(ctx, bid.ID); err != nil {
		return fmt.Errorf("failed to mark winning bid: %w", err)
	}
	return nil
}

func toAuctionResponse(a model.Auction) AuctionResponse {
	res := AuctionResponse{
		ID:           a.ID,
		Name:         a.Name,
		Description:  a.Description,
		BOMID:        optionalID(a.BOMID),
		StartTime:    a.StartTime,
		EndTime:      a.EndTime,
		ReservePrice: nullString(a.ReservePrice),
		CurrentBid:   nullString(a.CurrentBid),
		Status:       string(a.Status),
		WinnerID:     optionalID(a.WinnerID),
		WinningBid:   nullString(a.WinningBid),
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
	}
	for _, st := range workflow.Auction.Next(a.Status) {
		res.AllowedTransitions = append(res.AllowedTransitions, string(st))
	}
	return res
}

func toBidResponse(b model.Bid) BidResponse {
	return BidResponse{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		VendorID:  b.VendorID,
		Amount:    b.Amount.StringFixed(2),
		IsWinning: b.IsWinning,
		PlacedAt:  b.PlacedAt,
	}
}
