package main

import (
	"fmt"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type ConsoleConfig struct {
	APIBaseURL string
	Timeout    time.Duration
	// AutoInterval is the delay between rounds in autoplay mode.
	AutoInterval time.Duration
}

func main() {
	cfg := &ConsoleConfig{
		APIBaseURL:   getEnv("API_BASE_URL", "http://localhost:8080"),
		Timeout:      30 * time.Second,
		AutoInterval: 800 * time.Millisecond,
	}
	if raw := os.Getenv("ADVANCE_INTERVAL"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid ADVANCE_INTERVAL %q: %v\n", raw, err)
			os.Exit(1)
		}
		cfg.AutoInterval = d
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
	}

	if !testConnection(client, cfg.APIBaseURL) {
		fmt.Fprintf(os.Stderr, "Could not connect to API. Please ensure the API is running.\nTry: docker-compose up -d\n")
		os.Exit(1)
	}

	p := tea.NewProgram(NewConsoleUI(cfg, client),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running program: %v\n", err)
		os.Exit(1)
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
