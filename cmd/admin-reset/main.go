// Command admin-reset replaces every dashboard admin with a single account.
// Use it when the admin password is lost:
//
//	admin-reset --username office --password 'new-secret'
//
// Flags fall back to ADMIN_USERNAME and ADMIN_PASSWORD.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/noah-isme/meal-checkin-api/internal/dto"
	"github.com/noah-isme/meal-checkin-api/internal/repository"
	"github.com/noah-isme/meal-checkin-api/internal/service"
	"github.com/noah-isme/meal-checkin-api/pkg/config"
	"github.com/noah-isme/meal-checkin-api/pkg/database"
	"github.com/noah-isme/meal-checkin-api/pkg/logger"
	"github.com/noah-isme/meal-checkin-api/pkg/studentid"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "admin-reset:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	fs := flag.NewFlagSet("admin-reset", flag.ContinueOnError)
	username := fs.StringP("username", "u", cfg.Admin.Username, "new admin username")
	password := fs.StringP("password", "p", cfg.Admin.Password, "new admin password (min 6 characters)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	logr, err := logger.New(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	auth := service.NewAuthService(repository.NewAdminRepository(db), studentid.NewValidator(), logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})

	admin, err := auth.ResetCredentials(ctx, dto.InitAdminRequest{Username: *username, Password: *password})
	if err != nil {
		return err
	}
	logr.Info("admin credentials replaced", zap.String("username", admin.Username), zap.String("admin_id", admin.ID))
	fmt.Printf("admin %q is now the only dashboard account\n", admin.Username)
	return nil
}
