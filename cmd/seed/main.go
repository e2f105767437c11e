// seed inserts a verified local user with a known password.
// Run: go run ./cmd/seed
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ErlanBelekov/user-auth/internal/credential"
	"github.com/ErlanBelekov/user-auth/internal/domain"
	"github.com/ErlanBelekov/user-auth/internal/infrastructure/postgres"
	"github.com/joho/godotenv"
)

const (
	seedName     = "Seed User"
	seedEmail    = "seed@test.local"
	seedPassword = "seedpass"
)

func main() {
	ctx := context.Background()

	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	if err := postgres.Migrate(dbURL); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	pool, err := postgres.NewPool(ctx, dbURL)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	users := postgres.NewUserRepository(pool)

	hash, err := credential.HashPassword(seedPassword)
	if err != nil {
		log.Fatalf("hash password: %v", err)
	}

	// re-runs reset the password instead of failing on the unique email
	user, err := users.Create(ctx, seedName, seedEmail, hash)
	switch {
	case errors.Is(err, domain.ErrDuplicateEmail):
		if user, err = users.FindByEmail(ctx, seedEmail); err != nil {
			log.Fatalf("find user: %v", err)
		}
		if err = users.SetPassword(ctx, user.ID, hash); err != nil {
			log.Fatalf("reset password: %v", err)
		}
	case err != nil:
		log.Fatalf("create user: %v", err)
	}

	if err = users.SetEmailVerified(ctx, user.ID); err != nil {
		log.Fatalf("verify user: %v", err)
	}

	fmt.Println("Seed complete")
	fmt.Println()
	fmt.Printf("  User:     %s\n", seedEmail)
	fmt.Printf("  User ID:  %s\n", user.ID)
	fmt.Printf("  Password: %s\n", seedPassword)
	fmt.Println()
	fmt.Println("How to test:")
	fmt.Println()
	fmt.Println("  Step 1: log in to get a session token:")
	fmt.Println()
	fmt.Printf("    curl -s -X POST http://localhost:8080/api/auth/login \\\n")
	fmt.Printf("      -H 'Content-Type: application/json' \\\n")
	fmt.Printf("      -d '{\"email\":\"%s\",\"password\":\"%s\"}'\n", seedEmail, seedPassword)
	fmt.Println()
	fmt.Println("  Step 2: call a protected route:")
	fmt.Println()
	fmt.Println("    export JWT=eyJ...")
	fmt.Println("    curl -s http://localhost:8080/api/auth/verify-token -H \"Authorization: Bearer $JWT\"")
}
