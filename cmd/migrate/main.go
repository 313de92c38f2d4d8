package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"

	"github.com/ANANT0908/Medical-Clinic-Booking-System/migrations"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/config"
	"github.com/ANANT0908/Medical-Clinic-Booking-System/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(&logger.Config{
		Level:       cfg.App.LogLevel,
		ServiceName: "migrate",
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		log.Fatal("failed to load migrations", zap.Error(err))
	}

	dbURL := fmt.Sprintf("pgx5://%s@%s:%d/%s?sslmode=%s",
		url.UserPassword(cfg.Database.User, cfg.Database.Password).String(),
		cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName, cfg.Database.SSLMode)

	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		log.Fatal("failed to create migrator", zap.Error(err))
	}
	defer m.Close()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		log.Fatal("unknown direction, want up or down", zap.String("direction", direction))
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatal("migration failed", zap.String("direction", direction), zap.Error(err))
	}

	log.Info("migrations applied", zap.String("direction", direction))
}
