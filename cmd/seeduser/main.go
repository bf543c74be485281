// cmd/seeduser creates or updates a demo vendor admin and its first location.
// Usage: go run ./cmd/seeduser -vendor <uuid> -password <pw>
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/floradistro/websitev2-sub001/internal/config"
	"github.com/floradistro/websitev2-sub001/internal/infra"
	"github.com/floradistro/websitev2-sub001/internal/model"
	"github.com/floradistro/websitev2-sub001/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm/clause"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	vendorFlag := flag.String("vendor", "", "vendor id (generated when empty)")
	username := flag.String("username", "admin", "admin username")
	password := flag.String("password", "changeme", "admin password")
	location := flag.String("location", "Main Street", "first location name")
	taxRate := flag.String("tax-rate", "0.08", "location tax rate")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	vendorID := uuid.New()
	if *vendorFlag != "" {
		if vendorID, err = uuid.Parse(*vendorFlag); err != nil {
			log.Fatal().Err(err).Msg("invalid -vendor")
		}
	}
	rate, err := decimal.NewFromString(*taxRate)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid -tax-rate")
	}

	db, err := infra.NewDatabase(cfg.DatabaseURL, true)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), service.BcryptCost)
	if err != nil {
		log.Fatal().Err(err).Msg("bcrypt")
	}

	loc := model.Location{ID: uuid.New(), VendorID: vendorID, Name: *location, TaxRate: rate}
	if err := db.Create(&loc).Error; err != nil {
		log.Fatal().Err(err).Msg("insert location")
	}

	user := model.User{
		ID:           uuid.New(),
		VendorID:     vendorID,
		Username:     *username,
		Name:         "Admin",
		PasswordHash: string(hash),
		Role:         model.RoleAdmin,
		Active:       true,
	}
	err = db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "username"}},
		DoUpdates: clause.AssignmentColumns([]string{"password_hash", "vendor_id", "role", "active"}),
	}).Create(&user).Error
	if err != nil {
		log.Fatal().Err(err).Msg("upsert user")
	}

	fmt.Printf("vendor:   %s\nlocation: %s\nuser:     %s\n", vendorID, loc.ID, *username)
}
