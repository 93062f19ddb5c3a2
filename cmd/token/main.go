// Command token signs a bearer token for local development, using the same
// secret the server verifies with.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/BuzzLyutic/taskboard/internal/auth"
	"github.com/BuzzLyutic/taskboard/internal/config"
	"github.com/BuzzLyutic/taskboard/internal/model"
)

func main() {
	userID := flag.String("user", "", "user id (random when empty)")
	email := flag.String("email", "dev@localhost", "email claim")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	id := uuid.New()
	if *userID != "" {
		if id, err = uuid.Parse(*userID); err != nil {
			fmt.Fprintf(os.Stderr, "user: %v\n", err)
			os.Exit(2)
		}
	}

	token, err := auth.NewVerifier(cfg.Auth.JWTSecret, nil).Issue(model.User{ID: id, Email: *email}, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
