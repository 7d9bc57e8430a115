package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/mansoorceksport/learnify/internal/config"
	"github.com/mansoorceksport/learnify/internal/domain"
	"github.com/mansoorceksport/learnify/internal/repository"
	"github.com/mansoorceksport/learnify/internal/service"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	bootstrap := flag.Bool("bootstrap", false, "Insert the first snapshot when the stats collection is empty")
	dryRun := flag.Bool("dry-run", false, "Print the live counts without writing them")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoDB.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDB.Database)
	userRepo := repository.NewMongoUserRepository(db)
	courseRepo := repository.NewMongoCourseRepository(db)
	statsRepo := repository.NewMongoStatsRepository(db)

	users, err := userRepo.CountAll(ctx)
	if err != nil {
		log.Fatalf("Failed to count users: %v", err)
	}
	subscriptions, err := userRepo.CountActiveSubscriptions(ctx)
	if err != nil {
		log.Fatalf("Failed to count subscriptions: %v", err)
	}
	views, err := courseRepo.SumViews(ctx)
	if err != nil {
		log.Fatalf("Failed to sum views: %v", err)
	}

	fmt.Printf("📊 Live counts: users=%d subscriptions=%d views=%d\n", users, subscriptions, views)
	if *dryRun {
		fmt.Println("Dry run, nothing written.")
		return
	}

	if _, err := statsRepo.Current(ctx); errors.Is(err, domain.ErrStatsNotBootstrapped) {
		if !*bootstrap {
			fmt.Println("No stats snapshot exists yet. Re-run with -bootstrap to create one.")
			os.Exit(1)
		}
		snap := &domain.StatsSnapshot{CreatedAt: time.Now().UTC()}
		if err := statsRepo.Insert(ctx, snap); err != nil {
			log.Fatalf("Failed to bootstrap stats: %v", err)
		}
		fmt.Printf("✓ Bootstrapped snapshot %s\n", snap.ID)
	} else if err != nil {
		log.Fatalf("Failed to load current snapshot: %v", err)
	}

	aggregator := service.NewStatsAggregator(userRepo, courseRepo, statsRepo)
	if err := aggregator.RecomputeUsers(ctx); err != nil {
		log.Fatalf("Failed to recompute user counts: %v", err)
	}
	if err := aggregator.RecomputeCourses(ctx); err != nil {
		log.Fatalf("Failed to recompute views: %v", err)
	}

	fmt.Println("✓ Current snapshot recalculated")
}
