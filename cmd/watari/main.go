package main

import (
	"fmt"
	"os"

	"github.com/ktsujino/watari/common/environment"
	"github.com/ktsujino/watari/common/version"
	"github.com/ktsujino/watari/internal/watari/app"
	"github.com/ktsujino/watari/internal/watari/observability"
)

func main() {
	fmt.Printf("Watari WhatsApp Service\n")
	fmt.Printf("Version: %s\n", version.Version)
	fmt.Printf("Commit: %s\n", version.GitCommit)
	fmt.Printf("Build Time: %s\n", version.BuildTime)
	fmt.Println()

	observability.Setup(
		environment.StringOr("LOG_LEVEL", "info"),
		environment.StringOr("LOG_FORMAT", "text"),
	)

	config := loadConfig()

	watari, err := app.New(config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize Watari: %v\n", err)
		os.Exit(1)
	}
	defer watari.Stop()

	if err := watari.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running Watari: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads application configuration from environment variables.
// WhatsApp credentials (WHATSAPP_ACCESS_TOKEN and friends) are read lazily by
// the account resolver, not here.
func loadConfig() *app.Config {
	return &app.Config{
		DatabasePath:      environment.StringOr("DATABASE_PATH", "./watari.db"),
		AccountConfigPath: environment.StringOr("WHATSAPP_CONFIG_PATH", ""),
		HTTPAddr:          environment.StringOr("HTTP_ADDR", ":8080"),
		AppSecret:         environment.StringOr("WHATSAPP_APP_SECRET", ""),
		WebhookRateLimit:  environment.IntOr("WEBHOOK_RATE_LIMIT", 0),
		GraphBaseURL:      environment.StringOr("GRAPH_BASE_URL", ""),
		PairingTTL:        environment.DurationOr("PAIRING_TTL", 0),
		SweepInterval:     environment.DurationOr("SWEEP_INTERVAL", 0),
		DedupRetention:    environment.DurationOr("DEDUP_RETENTION", 0),
	}
}
