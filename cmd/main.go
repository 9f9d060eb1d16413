package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campus-lab/domain"
	"campus-lab/internal"
	"campus-lab/repositories"
	"campus-lab/search"
	"campus-lab/services"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the process lifecycle, and centralizes error reporting.
// This pattern is preferred over calling os.Exit or panic directly because:
// 1. It ensures all 'defer' statements (like database cleanup) are executed before the program exits.
// 2. It improves testability by decoupling the initialization logic from the main entry point.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Database (BadgerDB)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.INFO))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	//  Defer will be executed before run() returned anything to main()
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// 3. Full-text catalog index (Bluge)
	index, err := search.NewCatalogIndex(config.BlugeFilepath, log)
	if err != nil {
		return fmt.Errorf("catalog index opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing catalog index...")
		_ = index.Close()
	}()

	// 4. Repositories & services
	store := repositories.NewBadgerStore(db)
	courses := repositories.NewCourseRepository(store, log)
	users := repositories.NewUserRepository(store, log)

	backoff := func(attempt int) time.Duration {
		return time.Duration(attempt) * config.EnrollmentBackoff
	}
	enrollment := services.NewEnrollmentService(store, courses, users, backoff, log)
	catalog := services.NewCatalogService(courses, index, log)

	// 5. Startup housekeeping: the store is the source of truth, the
	// index is rebuilt from it.
	indexed, err := catalog.Reindex()
	if err != nil {
		return fmt.Errorf("catalog reindex failed: %w", err)
	}
	log.Info("Catalog reindexed", "courses", indexed)

	if err := reportCapacity(catalog, enrollment, log); err != nil {
		return fmt.Errorf("capacity report failed: %w", err)
	}

	// 6. Debug dashboard
	internal.StartDebugServer(db, config.DebugPort, "/inspect", internal.CampusMapper, internal.ProcessStats(db))
	log.Info("Inspector started", "url", fmt.Sprintf("http://localhost:%d/inspect", config.DebugPort))

	// 7. Wait for Stop
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("Shutting down gracefully...")
	log.Info("Program stopped cleanly")
	return nil
}

// reportCapacity logs the published courses that are nearly full, the
// numbers an operator wants in front of an enrollment deadline.
func reportCapacity(catalog *services.CatalogService, enrollment *services.EnrollmentService, log *slog.Logger) error {
	var cursor *string
	for {
		page, next, err := catalog.List(services.CourseFilter{Status: domain.CoursePublished}, cursor, 50)
		if err != nil {
			return err
		}
		for _, course := range page {
			stats, err := enrollment.Statistics(course.ID)
			if err != nil {
				return err
			}
			if stats.AvailableSpots == 0 {
				log.Warn("Course is full", "course", course.ID, "title", course.Title)
			} else if stats.EnrollmentPercentage >= 90 {
				log.Info("Course almost full",
					"course", course.ID,
					"title", course.Title,
					"available", stats.AvailableSpots)
			}
		}
		if next == nil {
			return nil
		}
		cursor = next
	}
}
