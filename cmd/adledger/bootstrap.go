// ABOUTME: Setup commands: init writes a config interactively, bootstrap seeds the first owner
// ABOUTME: token issues a signed bearer token for a caller already in the owner set

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/2389/adledger/internal/auth"
	"github.com/2389/adledger/internal/config"
)

const maxCallerLength = 100

// parseFlags reads "--name value" and "--name=value" pairs for the allowed
// flag names. Positional arguments are rejected.
func parseFlags(args []string, allowed ...string) (map[string]string, error) {
	values := make(map[string]string)
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "--") {
			return nil, fmt.Errorf("unexpected argument: %s", arg)
		}

		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if !slices.Contains(allowed, name) {
			return nil, fmt.Errorf("unknown flag: %s", arg)
		}
		if !hasValue {
			if i+1 >= len(args) {
				return nil, fmt.Errorf("--%s requires a value", name)
			}
			value = args[i+1]
			i++
		}
		values[name] = value
	}
	return values, nil
}

// validateCaller trims and checks a caller identity given on the command line.
func validateCaller(raw string) (auth.Caller, error) {
	caller := strings.TrimSpace(raw)
	if caller == "" {
		return "", errors.New("--caller flag is required")
	}
	if len(caller) > maxCallerLength {
		return "", fmt.Errorf("caller exceeds maximum length of %d characters", maxCallerLength)
	}
	if strings.ContainsAny(caller, " \t\n") {
		return "", errors.New("caller cannot contain whitespace")
	}
	return auth.Caller(caller), nil
}

func generateSecret() (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secretBytes), nil
}

// configTemplate holds the values written into a fresh config file.
type configTemplate struct {
	HTTPAddr  string
	GRPCAddr  string
	DBPath    string
	JWTSecret string
	Owner     string
	LogLevel  string
	LogFormat string
	Generator string
}

func (t configTemplate) render() string {
	var cfg strings.Builder
	cfg.WriteString("# adledger configuration\n")
	cfg.WriteString(fmt.Sprintf("# Generated by adledger %s\n\n", t.Generator))

	cfg.WriteString("server:\n")
	cfg.WriteString(fmt.Sprintf("  http_addr: %q\n", t.HTTPAddr))
	cfg.WriteString(fmt.Sprintf("  grpc_addr: %q\n", t.GRPCAddr))
	cfg.WriteString("\n")

	cfg.WriteString("database:\n")
	cfg.WriteString(fmt.Sprintf("  path: %q\n", t.DBPath))
	cfg.WriteString("\n")

	cfg.WriteString("auth:\n")
	cfg.WriteString(fmt.Sprintf("  jwt_secret: %q\n", t.JWTSecret))
	cfg.WriteString(fmt.Sprintf("  owner: %q\n", t.Owner))
	cfg.WriteString("  token_ttl: \"720h\"\n")
	cfg.WriteString("\n")

	cfg.WriteString("exchange:\n")
	cfg.WriteString("  retain_settled_hit_fields: false\n")
	cfg.WriteString("\n")

	cfg.WriteString("events:\n")
	cfg.WriteString(fmt.Sprintf("  buffer_size: %d\n", config.DefaultEventBufferSize))
	cfg.WriteString("\n")

	cfg.WriteString("logging:\n")
	cfg.WriteString(fmt.Sprintf("  level: %q\n", t.LogLevel))
	cfg.WriteString(fmt.Sprintf("  format: %q\n", t.LogFormat))

	return cfg.String()
}

// writeConfigFile writes the rendered config with owner-only permissions,
// since it carries the signing secret.
func writeConfigFile(path string, t configTemplate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(t.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(t.render()), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

func runBootstrap(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, "caller")
	if err != nil {
		return err
	}
	caller, err := validateCaller(flags["caller"])
	if err != nil {
		return err
	}

	configPath := getConfigPath()

	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		secret, err := generateSecret()
		if err != nil {
			return err
		}

		err = writeConfigFile(configPath, configTemplate{
			HTTPAddr:  config.DefaultHTTPAddr,
			GRPCAddr:  config.DefaultGRPCAddr,
			DBPath:    filepath.Join(getDataPath(), "ledger.db"),
			JWTSecret: secret,
			Owner:     string(caller),
			LogLevel:  "info",
			LogFormat: "text",
			Generator: "bootstrap",
		})
		if err != nil {
			return err
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	green.Printf("  ✓ Database: %s\n", cfg.Database.Path)

	gate, err := auth.NewGate(ctx, s, auth.Caller(cfg.Auth.Owner), nil)
	if err != nil {
		return fmt.Errorf("opening access gate: %w", err)
	}

	// An existing config may name a different creator; the bootstrap caller
	// is admitted on the creator's behalf.
	if !gate.IsAuthorized(caller) {
		creatorCtx := auth.WithCaller(ctx, auth.Caller(cfg.Auth.Owner))
		if err := gate.Grant(creatorCtx, caller); err != nil {
			return fmt.Errorf("granting ownership: %w", err)
		}
	}

	green.Printf("  ✓ Owner: %s\n", caller)

	tokenPath, expiresAt, err := issueToken(cfg, configPath, caller, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	green.Printf("  ✓ Saved token: %s\n", tokenPath)

	fmt.Println()
	green.Println("  Bootstrap complete!")
	fmt.Println()
	cyan.Println("  Owner")
	cyan.Println("  -----")
	fmt.Printf("  Caller:  %s\n", caller)
	fmt.Printf("  Owners:  %d\n", len(gate.Owners()))
	fmt.Printf("  Token:   %s (expires %s)\n", tokenPath, expiresAt.Format("Jan 02, 2006"))
	fmt.Println()

	yellow.Println("  Ready to go:")
	fmt.Println("    adledger serve    # start the ledger")
	fmt.Println()

	return nil
}

// issueToken signs a token for caller and saves it next to the config file
// for CLI tools to read.
func issueToken(cfg *config.Config, configPath string, caller auth.Caller, ttl time.Duration) (string, time.Time, error) {
	verifier, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("creating JWT verifier: %w", err)
	}

	expiresAt := time.Now().Add(ttl).UTC()
	token, err := verifier.Generate(caller, ttl)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generating token: %w", err)
	}

	tokenPath := filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
		return "", time.Time{}, fmt.Errorf("writing token file: %w", err)
	}
	return tokenPath, expiresAt, nil
}

func runToken(ctx context.Context, args []string) error {
	flags, err := parseFlags(args, "caller", "ttl")
	if err != nil {
		return err
	}
	caller, err := validateCaller(flags["caller"])
	if err != nil {
		return err
	}

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ttl := cfg.Auth.TokenTTL
	if raw, ok := flags["ttl"]; ok {
		ttl, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid --ttl: %w", err)
		}
		if ttl <= 0 {
			return errors.New("--ttl must be positive")
		}
	}

	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	owners, err := s.ListOwners(ctx)
	if err != nil {
		return fmt.Errorf("loading owners: %w", err)
	}
	if !slices.Contains(owners, string(caller)) {
		return fmt.Errorf("%s is not an owner (grant it first)", caller)
	}

	tokenPath, expiresAt, err := issueToken(cfg, configPath, caller, ttl)
	if err != nil {
		return err
	}

	color.New(color.FgGreen).Printf("  ✓ Saved token: %s\n", tokenPath)
	fmt.Printf("  Expires: %s\n", expiresAt.Format(time.RFC3339))
	return nil
}

func runInit() error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("adledger configuration setup")
	fmt.Println("============================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", getConfigPath())

	if _, err := os.Stat(outputFile); err == nil {
		overwrite := prompt(reader, "File exists. Overwrite?", "no")
		if strings.ToLower(overwrite) != "yes" && strings.ToLower(overwrite) != "y" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	fmt.Println("\n--- Server Configuration ---")
	httpAddr := prompt(reader, "HTTP address", config.DefaultHTTPAddr)
	grpcAddr := prompt(reader, "gRPC health address", config.DefaultGRPCAddr)

	fmt.Println("\n--- Database Configuration ---")
	dbPath := prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "ledger.db"))

	fmt.Println("\n--- Access Configuration ---")
	owner := prompt(reader, "Creator caller identity", "")
	if _, err := validateCaller(owner); err != nil {
		return fmt.Errorf("creator: %w", err)
	}

	fmt.Println("\n--- Logging Configuration ---")
	logLevel := prompt(reader, "Log level (debug/info/warn/error)", "info")
	logFormat := prompt(reader, "Log format (text/json)", "text")

	secret, err := generateSecret()
	if err != nil {
		return err
	}

	err = writeConfigFile(outputFile, configTemplate{
		HTTPAddr:  httpAddr,
		GRPCAddr:  grpcAddr,
		DBPath:    dbPath,
		JWTSecret: secret,
		Owner:     strings.TrimSpace(owner),
		LogLevel:  logLevel,
		LogFormat: logFormat,
		Generator: "init",
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Printf("Data directory: %s\n", filepath.Dir(dbPath))
	fmt.Println("\nTo start the server:")
	fmt.Printf("  adledger serve\n")

	return nil
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultVal
	}
	return input
}
