package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"inventory/models"
	"inventory/pkg/policy"
	"inventory/pkg/store"
)

// create_user adds a user directly to the database. It is the only way to
// create a second root admin, which the API refuses.
func main() {
	log := logrus.New()
	if len(os.Args) < 3 {
		fmt.Println("usage: go run ./cmd/create_user <email> <type 1-5>")
		os.Exit(2)
	}
	email := strings.TrimSpace(os.Args[1])
	typ, err := strconv.Atoi(os.Args[2])
	if err != nil || !policy.Role(typ).Valid() {
		log.Fatalf("invalid user type %q", os.Args[2])
	}
	role := policy.Role(typ)

	_ = godotenv.Load()
	dsn := os.Getenv("DB_DSN")
	if strings.TrimSpace(dsn) == "" {
		log.Fatal("DB_DSN not set in environment")
	}
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		log.Fatalf("failed to open db: %v", err)
	}
	s, err := store.NewGorm(db)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	if existing, err := store.First(ctx, s.Users, "email", email); err == nil {
		fmt.Printf("user %s already exists (id=%d)\n", email, existing.ID)
		os.Exit(0)
	}
	user := models.User{Email: email, UserTypeID: uint(role)}
	if err := s.Users.Create(ctx, &user); err != nil {
		log.Fatalf("failed to create user: %v", err)
	}
	log.WithFields(logrus.Fields{"email": email, "id": user.ID, "type": role.Label()}).Info("user created")
}
