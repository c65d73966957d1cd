package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"reviewsync/lib/configutil"
	"reviewsync/lib/scrapers/datashake"
	"reviewsync/lib/telemetry"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type Config struct {
	ApiKey                string `json:"api_key"`
	BaseUrl               string `json:"base_url"`
	LanguageCode          string `json:"language_code"`
	MaxRequestsPerSecond  int    `json:"max_requests_per_second"`
	MinDaysSinceLastCrawl int    `json:"min_days_since_last_crawl"`
}

var rootCmd = &cobra.Command{
	Use:   "reviewsync",
	Short: "reviewsync schedules review crawl jobs against the Datashake API and collects their results.",
}

func Execute() {
	ctx := context.Background()

	tel, err := telemetry.SetupFromEnv(ctx, "reviewsync")
	if err != nil {
		fatal("failed to setup telemetry", err)
	}
	defer tel.Shutdown(ctx)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func fatal(message string, err error) {
	slog.Error(message, "err", err.Error())
	os.Exit(1)
}

// loadConfig merges reviewsync.json5 (discovered upward from the cwd)
// with the DATASHAKE_API_KEY environment variable, loading .env first
// so the key can live outside the config file.
func loadConfig() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "err", err)
	}

	config, err := configutil.Discover[Config]("reviewsync.json5")
	if err != nil && !os.IsNotExist(err) {
		fatal("failed to read config", err)
	}
	if key := os.Getenv("DATASHAKE_API_KEY"); key != "" {
		config.ApiKey = key
	}
	return config
}

func newClient(config Config) *datashake.Client {
	client, err := datashake.NewClient(datashake.ClientOptions{
		APIKey:               config.ApiKey,
		BaseURL:              config.BaseUrl,
		MaxRequestsPerSecond: config.MaxRequestsPerSecond,
		LanguageCode:         config.LanguageCode,
	})
	if err != nil {
		fatal("failed to create datashake client", err)
	}
	return client
}
