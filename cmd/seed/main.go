// seed creates an administrative identity (create-superuser). Idempotent: an existing phone is left untouched.
//
//	go run ./cmd/seed -phone 09120000000 -password 'change-me-now'
//
// SEED_PHONE and SEED_PASSWORD are used when the flags are omitted.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"

	accountdomain "phone-otp-auth/backend/internal/account/domain"
	accountrepo "phone-otp-auth/backend/internal/account/repository"
	"phone-otp-auth/backend/internal/config"
	"phone-otp-auth/backend/internal/db"
	"phone-otp-auth/backend/internal/identity/service"
	"phone-otp-auth/backend/internal/security"
)

type superuserStore interface {
	GetByPhone(ctx context.Context, phone string) (*accountdomain.Identity, error)
	Create(ctx context.Context, i *accountdomain.Identity) error
}

func main() {
	phone := flag.String("phone", os.Getenv("SEED_PHONE"), "Phone number of the superuser (09XXXXXXXXX)")
	password := flag.String("password", os.Getenv("SEED_PASSWORD"), "Password of the superuser")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool, err := db.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	created, err := ensureSuperuser(ctx, accountrepo.NewPostgresRepository(pool), security.NewHasher(cfg.BcryptCost), *phone, *password, time.Now().UTC())
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if !created {
		log.Printf("Identity %s already exists. Skipping.", *phone)
		return
	}
	log.Printf("Superuser %s created.", *phone)
}

// ensureSuperuser creates an active staff/superuser/admin identity with a usable password.
// Reports false when the phone is already registered.
func ensureSuperuser(ctx context.Context, store superuserStore, hasher *security.Hasher, phone, password string, now time.Time) (bool, error) {
	if err := accountdomain.ValidatePhone(phone); err != nil {
		return false, fmt.Errorf("phone %q: %w", phone, err)
	}
	if err := service.ValidatePassword(password); err != nil {
		return false, err
	}
	existing, err := store.GetByPhone(ctx, phone)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	err = store.Create(ctx, &accountdomain.Identity{
		ID:           uuid.NewString(),
		PhoneNumber:  phone,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsSuperuser:  true,
		IsAdmin:      true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if errors.Is(err, accountrepo.ErrPhoneTaken) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
