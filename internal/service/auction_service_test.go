package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/google/uuid"
)

func TestPlaceBidRaisesCurrentBid(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleSourcingManager)
	loginA, loginB := f.actor(model.RoleVendor), f.actor(model.RoleVendor)
	vendorA := f.vendor("Acme", buyer, &loginA)
	vendorB := f.vendor("Globex", buyer, &loginB)
	auction := f.liveAuction(buyer)
	f.register(auction, vendorA)
	f.register(auction, vendorB)
	s := f.auctionService(&ticker{cur: t0})
	ctx := context.Background()

	first, err := s.PlaceBid(ctx, loginA, auction.ID.String(), PlaceBidRequest{Amount: "500"})
	if err != nil {
		t.Fatalf("first bid: %v", err)
	}
	if !first.Leading || first.CurrentBid == nil || !dec(*first.CurrentBid).Equal(dec("500")) {
		t.Fatalf("first bid = %+v, want leading at 500", first)
	}

	second, err := s.PlaceBid(ctx, loginB, auction.ID.String(), PlaceBidRequest{Amount: "600"})
	if err != nil {
		t.Fatalf("second bid: %v", err)
	}
	if !second.Leading || !dec(*second.CurrentBid).Equal(dec("600")) {
		t.Fatalf("second bid = %+v, want leading at 600", second)
	}
	if got := f.pusher.sentTo(loginA.UserID); got != 1 {
		t.Errorf("outbid pushes to first bidder = %d, want 1", got)
	}
	if n := f.count(&model.Notification{}, "user_id = ?", loginA.UserID); n != 1 {
		t.Errorf("outbid notifications stored = %d, want 1", n)
	}
}

func TestPlaceBidTieKeepsFirstBidder(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerAdmin)
	loginA, loginB := f.actor(model.RoleVendor), f.actor(model.RoleVendor)
	vendorA := f.vendor("Acme", buyer, &loginA)
	vendorB := f.vendor("Globex", buyer, &loginB)
	auction := f.liveAuction(buyer)
	f.register(auction, vendorA)
	f.register(auction, vendorB)
	s := f.auctionService(&ticker{cur: t0})
	ctx := context.Background()

	if _, err := s.PlaceBid(ctx, loginA, auction.ID.String(), PlaceBidRequest{Amount: "500"}); err != nil {
		t.Fatalf("bid A: %v", err)
	}
	tie, err := s.PlaceBid(ctx, loginB, auction.ID.String(), PlaceBidRequest{Amount: "500.00"})
	if err != nil {
		t.Fatalf("bid B: %v", err)
	}
	if tie.Leading {
		t.Error("equal bid must not take the lead")
	}

	top, err := f.auctions.HighestBid(ctx, auction.ID)
	if err != nil {
		t.Fatalf("HighestBid: %v", err)
	}
	if top.VendorID != vendorA.ID {
		t.Errorf("leader = %s, want first bidder %s", top.VendorID, vendorA.ID)
	}
	if n := f.count(&model.Bid{}, "auction_id = ?", auction.ID); n != 2 {
		t.Errorf("bids stored = %d, want 2", n)
	}
	if got := f.pusher.sentTo(loginA.UserID); got != 0 {
		t.Errorf("tie must not notify the leader, got %d pushes", got)
	}
}

func TestPlaceBidConcurrentSettlesOnMaximum(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerAdmin)
	loginA, loginB := f.actor(model.RoleVendor), f.actor(model.RoleVendor)
	vendorA := f.vendor("Acme", buyer, &loginA)
	vendorB := f.vendor("Globex", buyer, &loginB)
	auction := f.liveAuction(buyer)
	f.register(auction, vendorA)
	f.register(auction, vendorB)
	s := f.auctionService(&ticker{cur: t0})
	ctx := context.Background()

	bids := []struct {
		actor  Actor
		amount string
	}{{loginA, "700"}, {loginB, "800"}}

	var wg sync.WaitGroup
	errs := make([]error, len(bids))
	for i, b := range bids {
		wg.Add(1)
		go func(i int, actor Actor, amount string) {
			defer wg.Done()
			_, errs[i] = s.PlaceBid(ctx, actor, auction.ID.String(), PlaceBidRequest{Amount: amount})
		}(i, b.actor, b.amount)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("bid %d: %v", i, err)
		}
	}

	got, err := f.auctions.FindByID(ctx, auction.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if !got.CurrentBid.Valid || !got.CurrentBid.Decimal.Equal(dec("800")) {
		t.Fatalf("current_bid = %v, want 800", got.CurrentBid)
	}
}

func TestPlaceBidRejections(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerAdmin)
	login := f.actor(model.RoleVendor)
	stranger := f.actor(model.RoleVendor)
	vendor := f.vendor("Acme", buyer, &login)
	f.vendor("Initech", buyer, &stranger)
	auction := f.liveAuction(buyer)
	f.register(auction, vendor)
	s := f.auctionService(&ticker{cur: t0})
	ctx := context.Background()

	tests := []struct {
		name  string
		actor Actor
		amt   string
		want  error
	}{
		{"buyer cannot bid", buyer, "100", ErrPermissionDenied},
		{"anonymous", Actor{}, "100", ErrUnauthenticated},
		{"unregistered vendor", stranger, "100", ErrPermissionDenied},
		{"negative amount", login, "-5", ErrValidation},
		{"garbage amount", login, "lots", ErrValidation},
		{"sub-cent amount", login, "500.004", ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.PlaceBid(ctx, tt.actor, auction.ID.String(), PlaceBidRequest{Amount: tt.amt})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if err := f.auctions.UpdateStatus(ctx, auction.ID, model.AuctionCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}
	if _, err := s.PlaceBid(ctx, login, auction.ID.String(), PlaceBidRequest{Amount: "100"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bid on completed auction: err = %v, want validation", err)
	}
	if n := f.count(&model.Bid{}, ""); n != 0 {
		t.Errorf("rejected bids stored: %d", n)
	}
}

func TestAdvanceScheduleMovesAuctionsAlongTheirWindow(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerAdmin)
	s := f.auctionService(nil)
	ctx := context.Background()

	mk := func(name string, status model.AuctionStatus, start, end time.Duration) *model.Auction {
		a := &model.Auction{Name: name, Status: status, StartTime: t0.Add(start), EndTime: t0.Add(end), CreatedBy: buyer.UserID}
		f.create(a)
		return a
	}
	opening := mk("opening", model.AuctionScheduled, -time.Minute, time.Hour)
	future := mk("future", model.AuctionScheduled, time.Hour, 2*time.Hour)
	missed := mk("missed", model.AuctionScheduled, -2*time.Hour, -time.Hour)
	closing := mk("closing", model.AuctionLive, -2*time.Hour, 0)
	running := mk("running", model.AuctionLive, -time.Hour, time.Hour)

	changed, err := s.AdvanceSchedule(ctx, t0)
	if err != nil {
		t.Fatalf("AdvanceSchedule: %v", err)
	}
	if changed != 3 {
		t.Errorf("changed = %d, want 3", changed)
	}

	want := map[*model.Auction]model.AuctionStatus{
		opening: model.AuctionLive,
		future:  model.AuctionScheduled,
		missed:  model.AuctionCancelled,
		closing: model.AuctionCompleted,
		running: model.AuctionLive,
	}
	for a, status := range want {
		got, err := f.auctions.FindByID(ctx, a.ID)
		if err != nil {
			t.Fatalf("FindByID %s: %v", a.Name, err)
		}
		if got.Status != status {
			t.Errorf("%s: status = %s, want %s", a.Name, got.Status, status)
		}
	}

	again, err := s.AdvanceSchedule(ctx, t0)
	if err != nil {
		t.Fatalf("second AdvanceSchedule: %v", err)
	}
	if again != 0 {
		t.Errorf("second run changed %d auctions, want 0", again)
	}
}

func TestDeclareWinnerPicksHighestBid(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerAdmin)
	loginA, loginB := f.actor(model.RoleVendor), f.actor(model.RoleVendor)
	vendorA := f.vendor("Acme", buyer, &loginA)
	vendorB := f.vendor("Globex", buyer, &loginB)
	auction := f.liveAuction(buyer)
	f.register(auction, vendorA)
	f.register(auction, vendorB)
	s := f.auctionService(&ticker{cur: t0})
	ctx := context.Background()

	for _, b := range []struct {
		actor  Actor
		amount string
	}{{loginA, "900"}, {loginB, "950"}, {loginA, "940"}} {
		if _, err := s.PlaceBid(ctx, b.actor, auction.ID.String(), PlaceBidRequest{Amount: b.amount}); err != nil {
			t.Fatalf("bid %s: %v", b.amount, err)
		}
	}
	if err := f.auctions.UpdateStatus(ctx, auction.ID, model.AuctionCompleted); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if _, err := s.DeclareWinner(ctx, loginA, auction.ID.String()); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("vendor declaring winner: err = %v", err)
	}
	res, err := s.DeclareWinner(ctx, buyer, auction.ID.String())
	if err != nil {
		t.Fatalf("DeclareWinner: %v", err)
	}
	if res.WinnerID == nil || *res.WinnerID != vendorB.ID.String() {
		t.Fatalf("winner = %v, want %s", res.WinnerID, vendorB.ID)
	}
	if res.WinningBid == nil || !dec(*res.WinningBid).Equal(dec("950")) {
		t.Errorf("winning bid = %v, want 950", res.WinningBid)
	}
	if n := f.count(&model.Bid{}, "is_winning = ?", true); n != 1 {
		t.Errorf("winning bids flagged = %d, want 1", n)
	}
}

// closingAuctionRepo completes the auction inside the bidding transaction,
// the way a concurrent close lands between the status check and the update.
type closingAuctionRepo struct {
	repository.AuctionRepository
	lockedReads int
}

func (r *closingAuctionRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Auction, error) {
	r.lockedReads++
	return r.AuctionRepository.FindByIDForUpdate(ctx, id)
}

func (r *closingAuctionRepo) CreateBid(ctx context.Context, bid *model.Bid) error {
	if err := r.AuctionRepository.CreateBid(ctx, bid); err != nil {
		return err
	}
	return r.AuctionRepository.UpdateStatus(ctx, bid.AuctionID, model.AuctionCompleted)
}

func TestPlaceBidRollsBackWhenAuctionCloses(t *testing.T) {
	f := newFixture(t)
	buyer := f.actor(model.RoleBuyerAdmin)
	login := f.actor(model.RoleVendor)
	vendor := f.vendor("Acme", buyer, &login)
	auction := f.liveAuction(buyer)
	f.register(auction, vendor)
	repo := &closingAuctionRepo{AuctionRepository: f.auctions}
	s := NewAuctionService(repo, f.vendors, f.boms, f.audit, f.notifications, f.tx, f.pusher).(*auctionService)
	s.now = (&ticker{cur: t0}).now
	ctx := context.Background()

	if _, err := s.PlaceBid(ctx, login, auction.ID.String(), PlaceBidRequest{Amount: "500"}); !errors.Is(err, ErrValidation) {
		t.Fatalf("bid racing a close: err = %v, want validation", err)
	}
	if repo.lockedReads != 1 {
		t.Errorf("locked auction reads = %d, want 1", repo.lockedReads)
	}
	if n := f.count(&model.Bid{}, "auction_id = ?", auction.ID); n != 0 {
		t.Errorf("bids stored after close = %d, want 0", n)
	}
	got, err := f.auctions.FindByID(ctx, auction.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Status != model.AuctionLive || got.CurrentBid.Valid {
		t.Errorf("auction = %s current %v, want the rolled back live state", got.Status, got.CurrentBid)
	}
}
