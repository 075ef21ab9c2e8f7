// ABOUTME: Entry point for the adledger exchange ledger server
// ABOUTME: Dispatches the serve, init, bootstrap, token and health commands

package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"

	"github.com/2389/adledger/internal/api"
	"github.com/2389/adledger/internal/auth"
	"github.com/2389/adledger/internal/config"
	"github.com/2389/adledger/internal/events"
	"github.com/2389/adledger/internal/exchange"
	"github.com/2389/adledger/internal/ledger"
	"github.com/2389/adledger/internal/store"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
            _ _          _
   __ _  __| | | ___  __| | __ _  ___ _ __
  / _' |/ _' | |/ _ \/ _' |/ _' |/ _ \ '__|
 | (_| | (_| | |  __/ (_| | (_| |  __/ |
  \__,_|\__,_|_|\___|\__,_|\__, |\___|_|
                           |___/
`

// getConfigPath returns the path to the config file.
// Priority: ADLEDGER_CONFIG env var > XDG_CONFIG_HOME/adledger/config.yaml > ~/.config/adledger/config.yaml
func getConfigPath() string {
	if envPath := os.Getenv("ADLEDGER_CONFIG"); envPath != "" {
		return envPath
	}

	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "config.yaml" // fallback
		}
		configDir = filepath.Join(homeDir, ".config")
	}

	return filepath.Join(configDir, "adledger", "config.yaml")
}

// getDataPath returns the path to the adledger data directory.
// Priority: XDG_DATA_HOME/adledger > ~/.local/share/adledger
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data" // fallback
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}

	return filepath.Join(dataDir, "adledger")
}

func usage() {
	fmt.Println("Usage: adledger <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                          Start the ledger server")
	fmt.Println("  init                           Create a new config file interactively")
	fmt.Println("  bootstrap --caller NAME        Create config, seed owner and write a token")
	fmt.Println("  token --caller NAME [--ttl D]  Issue a token for an existing owner")
	fmt.Println("  health                         Check server health")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit()
	case "bootstrap":
		err = runBootstrap(ctx, os.Args[2:])
	case "token":
		err = runToken(ctx, os.Args[2:])
	case "health":
		err = runHealth(ctx)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore opens the SQLite store named by the config. ADLEDGER_DB_PATH
// has already been applied by config.Load.
func openStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

func runServe(ctx context.Context) error {
	configPath := getConfigPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:    %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:      %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("gRPC:      %s (health)\n", cfg.Server.GRPCAddr)
	green.Print("    ▶ ")
	fmt.Printf("Owner:     %s\n", cfg.Auth.Owner)
	if cfg.Server.WriteRate > 0 {
		green.Print("    ▶ ")
		fmt.Printf("Writes:    %.1f/s per caller (burst %d)\n", cfg.Server.WriteRate, cfg.Server.WriteBurst)
	}
	if cfg.Exchange.RetainSettledHitFields {
		yellow.Print("    ▶ ")
		fmt.Println("Settled hits keep their fields")
	}
	fmt.Println()

	logger.Info("starting adledger",
		"config", configPath,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
	)

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	gate, err := auth.NewGate(ctx, s, auth.Caller(cfg.Auth.Owner), logger)
	if err != nil {
		return fmt.Errorf("creating access gate: %w", err)
	}

	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating JWT verifier: %w", err)
	}

	publisher := events.NewPublisher(s, cfg.Events.BufferSize, logger)
	defer publisher.Close()

	l := ledger.New(s, gate, ledger.WithLogger(logger))
	x := exchange.New(l, gate, s, publisher,
		exchange.WithRetainSettledHitFields(cfg.Exchange.RetainSettledHitFields),
		exchange.WithLogger(logger),
	)

	srv := api.New(cfg.Server, api.Deps{
		Exchange: x,
		Gate:     gate,
		Events:   publisher,
		Verifier: verifier,
	}, logger)

	return srv.Run(ctx)
}

func runHealth(ctx context.Context) error {
	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	url := fmt.Sprintf("http://%s/health", cfg.Server.HTTPAddr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}

	fmt.Println("healthy")
	return nil
}
