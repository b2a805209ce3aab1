package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	ftsload "github.com/DataFrosch/scraper-fts"
)

type config struct {
	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string
	DBSSLMode  string

	SlackToken   string
	SlackChannel string

	LogLevel string
}

func loadConfig() (*config, error) {
	cfg := &config{
		DBHost:       getEnv("DB_HOST", "localhost"),
		DBPort:       getEnv("DB_PORT", "5432"),
		DBName:       os.Getenv("DB_NAME"),
		DBUser:       os.Getenv("DB_USER"),
		DBPassword:   os.Getenv("DB_PASSWORD"),
		DBSSLMode:    getEnv("DB_SSLMODE", "disable"),
		SlackToken:   os.Getenv("SLACK_TOKEN"),
		SlackChannel: os.Getenv("SLACK_CHANNEL"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DBName == "" || cfg.DBUser == "" || cfg.DBPassword == "" {
		return nil, fmt.Errorf("DB_NAME, DB_USER and DB_PASSWORD must be set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Credentials may live in a .env file next to the binary.
	_ = godotenv.Load()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("run failed")
	}
}

func run(ctx context.Context, cfg *config) error {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	opts := []ftsload.Option{
		ftsload.WithPrettyLogging(),
		ftsload.WithLogLevel(cfg.LogLevel),
	}
	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		opts = append(opts, ftsload.WithNotifier(&ftsload.SlackNotifier{
			Token:   cfg.SlackToken,
			Channel: cfg.SlackChannel,
		}))
	}

	pipeline, err := ftsload.New(db, opts...)
	if err != nil {
		return err
	}

	stats, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	log.Info().
		Int64("rows", stats.RowsLoaded).
		Int("years", stats.YearsLoaded).
		Int("years_skipped", stats.YearsSkipped).
		Msg("done")

	return nil
}
