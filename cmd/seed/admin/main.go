package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/repository"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	name := flag.String("name", "Admin", "Display name")
	email := flag.String("email", "", "Admin email (required)")
	password := flag.String("password", "", "Admin password (required, at least 6 characters)")
	flag.Parse()

	if *email == "" || len(*password) < 6 {
		fmt.Println("Usage: seed-admin -email <EMAIL> -password <PASSWORD> [-name <NAME>]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to Mongo: %v", err)
	}
	defer client.Disconnect(ctx)

	repo := repository.NewMongoUserRepository(client.Database(cfg.MongoDB.Database))
	addr := strings.ToLower(strings.TrimSpace(*email))

	existing, err := repo.GetByEmail(ctx, addr)
	switch {
	case err == nil:
		if existing.IsAdmin() {
			fmt.Printf("%s is already an admin\n", addr)
			return
		}
		existing.Role = domain.RoleAdmin
		if err := repo.Update(ctx, existing); err != nil {
			log.Fatalf("Failed to promote user: %v", err)
		}
		fmt.Printf("✓ Promoted %s to admin\n", addr)
		return
	case !errors.Is(err, domain.ErrNotFound):
		log.Fatalf("Failed to look up user: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	user := &domain.User{
		Name:         *name,
		Email:        addr,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
		Playlist:     []domain.PlaylistItem{},
	}
	if err := repo.Create(ctx, user); err != nil {
		log.Fatalf("Failed to create admin: %v", err)
	}
	fmt.Printf("✓ Created admin %s (%s)\n", addr, user.ID)
}
