package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"tareas_api/internal/db"
	"tareas_api/internal/domain"
	"tareas_api/internal/repository"
	"tareas_api/internal/service"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	username := flag.String("username", "testuser", "username")
	email := flag.String("email", "testuser@example.com", "email")
	password := flag.String("password", "testpass", "password")
	flag.Parse()

	// expects DATABASE_URL env var
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, dsn)
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	users := repository.NewUserRepository(pool)
	creds := service.NewCredentialService(users, repository.NewTokenRepository(pool), service.NewPasswordHasher(bcrypt.DefaultCost))
	accounts := service.NewAccountService(users, creds)

	// try to find existing user
	u, tok, err := accounts.Login(ctx, service.LoginInput{Email: *email, Password: *password})
	switch {
	case err == nil:
		log.Printf("user already exists id=%d\n", u.ID)
	case errors.Is(err, domain.ErrNotFound):
		u, tok, err = accounts.Register(ctx, service.RegisterInput{Username: *username, Email: *email, Password: *password})
		if err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d\n", u.ID)
	default:
		log.Fatalf("login failed: %v", err)
	}

	log.Printf("user id=%d username=%s email=%s\n", u.ID, u.Username, u.Email)
	log.Printf("token=%s\n", tok.Key)
}
