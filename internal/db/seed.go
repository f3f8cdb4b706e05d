package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/naumangoraya/sos/internal/logger"
	"github.com/naumangoraya/sos/internal/models"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type seedUser struct {
	username, email, password, role string
}

var seedUsers = []seedUser{
	{"admin", "admin@sos.local", "admin123", models.RoleAdmin},
	{"user", "user@sos.local", "user123", models.RoleUser},
}

func intp(n int) *int       { return &n }
func strp(s string) *string { return &s }

func dec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

// Seed inserts the starter accounts and master data. Rows whose natural
// key already exists are left alone, so running it twice is harmless.
func Seed(ctx context.Context, conn *gorm.DB) error {
	log := logger.WithComponent("seed")
	created := 0
	err := conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range seedUsers {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
			if err != nil {
				return fmt.Errorf("hash password: %w", err)
			}
			user := models.User{Username: u.username, Email: u.email, Password: string(hash), Role: u.role, IsActive: true}
			n, err := ensure(tx, &user, "username = ?", u.username)
			if err != nil {
				return err
			}
			created += n
		}

		stores := []models.Store{
			{StoreName: "Main Warehouse", Description: "Primary storage location", Status: models.StoreActive},
			{StoreName: "Branch A", Description: "City branch", Status: models.StoreActive},
		}
		for i := range stores {
			n, err := ensure(tx, &stores[i], "store_name = ?", stores[i].StoreName)
			if err != nil {
				return err
			}
			created += n
		}

		items := []models.Item{
			{ItemID: "BC45187", Description: "BOARD CARD 45x187", Brand: "BULLEH SHAH", SheetsPerPacket: intp(100), Width: dec("45"), Length: dec("187"), Grams: intp(300), Type: strp("BOARD")},
			{ItemID: "BC45200", Description: "BOARD CARD 45x200", Brand: "BULLEH SHAH", SheetsPerPacket: intp(100), Width: dec("45"), Length: dec("200"), Grams: intp(300), Type: strp("BOARD")},
			{ItemID: "WC45187", Description: "WHITE CARD 45x187", Brand: "PACKAGES", SheetsPerPacket: intp(100), Width: dec("45"), Length: dec("187"), Grams: intp(250), Type: strp("CARD")},
		}
		for i := range items {
			n, err := ensure(tx, &items[i], "item_id = ?", items[i].ItemID)
			if err != nil {
				return err
			}
			created += n
		}

		customers := []models.Customer{
			{Code: "24-06-000492", Title: "A.D PRESS", BusinessName: "A.D Press", City: "Lahore", CreditDays: 30, CreditLimit: decimal.NewFromInt(500000)},
			{Code: "24-06-000493", Title: "BULLEH SHAH", BusinessName: "Bulleh Shah Packaging", City: "Kasur", CreditDays: 45, CreditLimit: decimal.NewFromInt(1000000)},
		}
		for i := range customers {
			n, err := ensure(tx, &customers[i], "code = ?", customers[i].Code)
			if err != nil {
				return err
			}
			created += n
		}

		suppliers := []models.Supplier{
			{Code: "11-02-000058", Title: "AMIR TRADER", BusinessName: "Amir Trader", City: "Lahore"},
			{Code: "11-02-000059", Title: "PAPER MART", BusinessName: "Paper Mart", City: "Karachi"},
		}
		for i := range suppliers {
			n, err := ensure(tx, &suppliers[i], "code = ?", suppliers[i].Code)
			if err != nil {
				return err
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	log.Info().Int("created", created).Msg("seed complete")
	return nil
}

// ensure creates rec unless a row matching the query exists. It returns 1
// when a row was inserted.
func ensure[T any](tx *gorm.DB, rec *T, query string, args ...any) (int, error) {
	var existing T
	err := tx.Where(query, args...).Take(&existing).Error
	if err == nil {
		return 0, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	if err := tx.Create(rec).Error; err != nil {
		return 0, fmt.Errorf("create %T: %w", rec, err)
	}
	return 1, nil
}
