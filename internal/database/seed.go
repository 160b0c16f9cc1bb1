package database

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"procurement/internal/model"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedOptions configures the bootstrap admin account
type SeedOptions struct {
	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

type seedRule struct {
	hsn, description, uom string
	total, cess           string
}

// Reference GST slabs loaded on first seed; effective from GST rollout.
var seedRules = []seedRule{
	{"8471", "Automatic data processing machines", "NOS", "18", "0"},
	{"1006", "Rice", "KGS", "5", "0"},
	{"3004", "Medicaments", "NOS", "12", "0"},
	{"8703", "Motor cars", "NOS", "28", "15"},
}

var gstRollout = time.Date(2017, 7, 1, 0, 0, 0, 0, time.UTC)

// Seed creates the buyer_admin account and reference tax rules. It is
// idempotent: existing rows are left untouched.
func Seed(ctx context.Context, db *gorm.DB, opts SeedOptions) error {
	if opts.AdminEmail == "" || opts.AdminPassword == "" {
		return errors.New("seed: admin email and password are required")
	}
	if opts.AdminUsername == "" {
		opts.AdminUsername = "admin"
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.User{}).Where("email = ? OR username = ?", opts.AdminEmail, opts.AdminUsername).Count(&count).Error; err != nil {
			return fmt.Errorf("seed: check admin: %w", err)
		}
		if count == 0 {
			hash, err := bcrypt.GenerateFromPassword([]byte(opts.AdminPassword), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("seed: hash password: %w", err)
			}
			admin := &model.User{
				Username: opts.AdminUsername,
				Email:    opts.AdminEmail,
				Password: string(hash),
				Role:     model.RoleBuyerAdmin,
			}
			if err := tx.Create(admin).Error; err != nil {
				return fmt.Errorf("seed: create admin: %w", err)
			}
			log.Printf("Seeded buyer_admin %s", admin.Email)
		}

		for _, r := range seedRules {
			var n int64
			if err := tx.Model(&model.TaxRule{}).Where("hsn_code = ?", r.hsn).Count(&n).Error; err != nil {
				return fmt.Errorf("seed: check tax rule %s: %w", r.hsn, err)
			}
			if n > 0 {
				continue
			}
			total := decimal.RequireFromString(r.total)
			half := total.Div(decimal.NewFromInt(2))
			rule := &model.TaxRule{
				HSNCode:        r.hsn,
				Description:    r.description,
				TotalRate:      total,
				CentralRate:    half,
				StateRate:      half,
				InterstateRate: total,
				CessRate:       decimal.RequireFromString(r.cess),
				UnitOfMeasure:  r.uom,
				EffectiveFrom:  gstRollout,
				Status:         model.TaxRuleActive,
			}
			if err := tx.Create(rule).Error; err != nil {
				return fmt.Errorf("seed: create tax rule %s: %w", r.hsn, err)
			}
		}
		return nil
	})
}
