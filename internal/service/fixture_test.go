package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"procurement/internal/database"
	"procurement/internal/model"
	"procurement/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// t0 is the fixed "now" most tests run at
var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

type recordingPusher struct {
	mu    sync.Mutex
	users []uuid.UUID
}

func (p *recordingPusher) SendToUser(userID uuid.UUID, payload []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, userID)
}

func (p *recordingPusher) sentTo(userID uuid.UUID) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, u := range p.users {
		if u == userID {
			n++
		}
	}
	return n
}

// ticker hands out strictly increasing instants, one second apart
type ticker struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *ticker) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Second)
	return c.cur
}

type fixture struct {
	t      *testing.T
	db     *gorm.DB
	tx     repository.TransactionManager
	pusher *recordingPusher

	users         repository.UserRepository
	vendors       repository.VendorRepository
	taxRules      repository.TaxRuleRepository
	rfx           repository.RFxRepository
	auctions      repository.AuctionRepository
	orders        repository.DirectOrderRepository
	purchases     repository.PurchaseOrderRepository
	approvals     repository.ApprovalRepository
	audit         repository.AuditRepository
	notifications repository.NotificationRepository
	boms          repository.BOMRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open("file:"+name+"?mode=memory&cache=shared"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	// one connection serialises transactions the way row locks would
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	return &fixture{
		t:             t,
		db:            db,
		tx:            repository.NewTransactionManager(db),
		pusher:        &recordingPusher{},
		users:         repository.NewUserRepository(db),
		vendors:       repository.NewVendorRepository(db),
		taxRules:      repository.NewTaxRuleRepository(db),
		rfx:           repository.NewRFxRepository(db),
		auctions:      repository.NewAuctionRepository(db),
		orders:        repository.NewDirectOrderRepository(db),
		purchases:     repository.NewPurchaseOrderRepository(db),
		approvals:     repository.NewApprovalRepository(db),
		audit:         repository.NewAuditRepository(db),
		notifications: repository.NewNotificationRepository(db),
		boms:          repository.NewBOMRepository(db),
	}
}

func (f *fixture) create(v interface{}) {
	f.t.Helper()
	if err := f.db.Create(v).Error; err != nil {
		f.t.Fatalf("create %T: %v", v, err)
	}
}

// actor inserts a user with role and returns it as an Actor
func (f *fixture) actor(role string) Actor {
	f.t.Helper()
	id := uuid.New()
	f.create(&model.User{
		ID:       id,
		Username: role + "-" + id.String()[:8],
		Email:    id.String()[:8] + "@example.com",
		Password: "x",
		Role:     role,
	})
	return Actor{UserID: id, Role: role}
}

// vendor inserts an approved vendor, linked to login when it is not nil
func (f *fixture) vendor(name string, createdBy Actor, login *Actor) *model.Vendor {
	f.t.Helper()
	v := &model.Vendor{CompanyName: name, Status: model.VendorApproved, CreatedBy: createdBy.UserID}
	if login != nil {
		uid := login.UserID
		v.UserID = &uid
	}
	f.create(v)
	return v
}

func (f *fixture) liveAuction(owner Actor) *model.Auction {
	f.t.Helper()
	a := &model.Auction{
		Name:      "Laptops Q2",
		StartTime: t0.Add(-time.Hour),
		EndTime:   t0.Add(time.Hour),
		Status:    model.AuctionLive,
		CreatedBy: owner.UserID,
	}
	f.create(a)
	return a
}

func (f *fixture) register(a *model.Auction, v *model.Vendor) {
	f.t.Helper()
	f.create(&model.AuctionParticipant{AuctionID: a.ID, VendorID: v.ID, RegisteredAt: t0})
}

func (f *fixture) count(m interface{}, query string, args ...interface{}) int64 {
	f.t.Helper()
	var n int64
	db := f.db.Model(m)
	if query != "" {
		db = db.Where(query, args...)
	}
	if err := db.Count(&n).Error; err != nil {
		f.t.Fatalf("count %T: %v", m, err)
	}
	return n
}

func (f *fixture) auctionService(clock *ticker) *auctionService {
	s := NewAuctionService(f.auctions, f.vendors, f.boms, f.audit, f.notifications, f.tx, f.pusher).(*auctionService)
	if clock != nil {
		s.now = clock.now
	}
	return s
}

func (f *fixture) purchaseOrderService() *purchaseOrderService {
	return NewPurchaseOrderService(PurchaseOrderRepos{
		PurchaseOrders: f.purchases,
		RFx:            f.rfx,
		Auctions:       f.auctions,
		DirectOrders:   f.orders,
		Vendors:        f.vendors,
		Approvals:      f.approvals,
		Audit:          f.audit,
		Notifications:  f.notifications,
	}, f.tx, f.pusher).(*purchaseOrderService)
}

func (f *fixture) approvalService() ApprovalService {
	return NewApprovalService(f.approvals, f.purchases, f.orders, f.vendors, f.audit, f.notifications, f.tx, f.pusher)
}

func (f *fixture) rfxService() RFxService {
	return NewRFxService(f.rfx, f.vendors, f.boms, f.audit, f.notifications, f.tx, f.pusher)
}

func (f *fixture) taxService() *taxService {
	s := NewTaxService(f.taxRules, f.audit, f.tx, nil).(*taxService)
	s.now = func() time.Time { return t0 }
	return s
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
