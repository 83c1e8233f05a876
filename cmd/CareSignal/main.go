package main

import (
	"flag"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"

	"github.com/BTreeMap/CareSignal/internal/alert"
	"github.com/BTreeMap/CareSignal/internal/api"
	"github.com/BTreeMap/CareSignal/internal/chat"
	"github.com/BTreeMap/CareSignal/internal/distress"
	"github.com/BTreeMap/CareSignal/internal/genai"
	"github.com/BTreeMap/CareSignal/internal/lockfile"
	"github.com/BTreeMap/CareSignal/internal/notify"
	"github.com/BTreeMap/CareSignal/internal/store"
	"github.com/BTreeMap/CareSignal/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for CareSignal state data
	DefaultStateDir = "/var/lib/caresignal"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "caresignal.db"
	// DefaultFromName is the sender name on alert emails
	DefaultFromName = "CareSignal"
)

func main() {
	// Initialize structured logger
	initializeLogger()

	// Load environment configuration
	config := loadEnvironmentConfig()

	// Parse command line flags
	flags := parseCommandLineFlags(config)

	// Ensure required directories exist
	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	// Only one process may serve a SQLite database
	lock, err := acquireStateLock(flags)
	if err != nil {
		slog.Error("Failed to lock state directory", "error", err)
		os.Exit(1)
	}

	// Build module options
	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags, config)
	notifyOpts := buildNotifyOptions(flags, config)
	apiOpts, err := buildAPIOptions(flags, config)
	if err != nil {
		slog.Error("Invalid configuration", "error", err)
		lock.Release()
		os.Exit(1)
	}

	// Start the service
	slog.Info("Bootstrapping CareSignal with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "notify", len(notifyOpts), "api", len(apiOpts))
	slog.Debug("Final configuration", "state_dir", *flags.stateDir, "dsn_set", *flags.dbDSN != "", "api_addr", *flags.apiAddr)
	err = api.Run(storeOpts, genaiOpts, notifyOpts, apiOpts)
	lock.Release()
	if err != nil {
		slog.Error("CareSignal failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("CareSignal exited successfully")
}

// Config holds environment configuration
type Config struct {
	DatabaseURL   string
	StateDir      string
	OpenAIKey     string
	OpenAIBaseURL string
	OpenAIModel   string
	APIAddr       string
	Strategy      string
	Simulate      bool
	SendGridKey   string
	FromEmail     string
	RedisAddr     string
	RateLimit     string
	Cooldown      time.Duration
	HistoryLimit  int
}

// Flags holds command line flag values
type Flags struct {
	stateDir  *string
	dbDSN     *string
	openaiKey *string
	apiAddr   *string
	strategy  *string
	simulate  *bool
	redisAddr *string
}

// initializeLogger sets up structured logging with debug level
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		StateDir:      os.Getenv("CARESIGNAL_STATE_DIR"),
		OpenAIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL: os.Getenv("OPENAI_BASE_URL"),
		OpenAIModel:   os.Getenv("OPENAI_MODEL"),
		APIAddr:       os.Getenv("API_ADDR"),
		Strategy:      os.Getenv("CLASSIFIER_STRATEGY"),
		Simulate:      util.ParseBoolEnv("SIMULATE_NOTIFICATIONS", false),
		SendGridKey:   os.Getenv("SENDGRID_API_KEY"),
		FromEmail:     os.Getenv("ALERT_FROM_EMAIL"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RateLimit:     os.Getenv("API_RATE_LIMIT"),
		Cooldown:      util.ParseDurationEnv("ALERT_COOLDOWN", alert.DefaultCooldownPeriod),
		HistoryLimit:  util.ParseIntEnv("CHAT_HISTORY_LIMIT", chat.DefaultHistoryLimit),
	}

	// Set default state directory if not specified
	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No CARESIGNAL_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	} else {
		slog.Debug("CARESIGNAL_STATE_DIR found in environment", "state_dir", config.StateDir)
	}

	// If no database URL is provided, default to SQLite in the state directory
	if config.DatabaseURL == "" {
		config.DatabaseURL = filepath.Join(config.StateDir, DefaultDBFileName)
		slog.Debug("No database DSN provided, defaulting to SQLite", "sqlite_path", config.DatabaseURL)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"CARESIGNAL_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"CLASSIFIER_STRATEGY", config.Strategy,
		"SIMULATE_NOTIFICATIONS", config.Simulate,
		"SENDGRID_API_KEY_SET", config.SendGridKey != "",
		"REDIS_ADDR", config.RedisAddr,
		"ALERT_COOLDOWN", config.Cooldown,
		"CHAT_HISTORY_LIMIT", config.HistoryLimit)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		stateDir:  flag.String("state-dir", config.StateDir, "state directory for CareSignal data (overrides $CARESIGNAL_STATE_DIR)"),
		dbDSN:     flag.String("db-dsn", config.DatabaseURL, "database DSN, a SQLite path or Postgres URL (overrides $DATABASE_URL)"),
		openaiKey: flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:   flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		strategy:  flag.String("classifier", config.Strategy, "distress classifier strategy: score or model (overrides $CLASSIFIER_STRATEGY)"),
		simulate:  flag.Bool("simulate", config.Simulate, "simulate calls, SMS and email (overrides $SIMULATE_NOTIFICATIONS)"),
		redisAddr: flag.String("redis-addr", config.RedisAddr, "Redis address for shared cooldowns and rate limits (overrides $REDIS_ADDR)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"strategy", *flags.strategy,
		"simulate", *flags.simulate,
		"redisAddr", *flags.redisAddr)

	// Update database DSN if not explicitly set but state directory is provided
	if *flags.dbDSN == config.DatabaseURL && config.DatabaseURL == filepath.Join(config.StateDir, DefaultDBFileName) && *flags.stateDir != config.StateDir {
		*flags.dbDSN = filepath.Join(*flags.stateDir, DefaultDBFileName)
		slog.Debug("Updated dbDSN based on state directory", "dsn_updated", true, "old_state_dir", config.StateDir, "new_state_dir", *flags.stateDir)
	}

	return flags
}

// ensureDirectoriesExist creates necessary directories for file-based storage
func ensureDirectoriesExist(flags Flags) error {
	if *flags.dbDSN == "" || store.DetectDSNType(*flags.dbDSN) == store.DSNTypePostgres {
		return nil
	}
	stateDir := filepath.Dir(*flags.dbDSN)
	slog.Debug("Creating state directory for file-based database", "state_dir", stateDir)
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		slog.Error("Failed to create state directory", "error", err, "state_dir", stateDir)
		return err
	}
	return nil
}

// acquireStateLock locks the directory holding a SQLite database. Postgres and in-memory
// stores need no lock and return a nil *Lock, whose Release is a no-op.
func acquireStateLock(flags Flags) (*lockfile.Lock, error) {
	if *flags.dbDSN == "" || store.DetectDSNType(*flags.dbDSN) == store.DSNTypePostgres {
		return nil, nil
	}
	return lockfile.Acquire(filepath.Dir(*flags.dbDSN))
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	var storeOpts []store.Option
	if *flags.dbDSN != "" {
		if store.DetectDSNType(*flags.dbDSN) == store.DSNTypePostgres {
			slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql", "dsn_set", true)
			storeOpts = append(storeOpts, store.WithPostgresDSN(*flags.dbDSN))
		} else {
			slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", *flags.dbDSN)
			storeOpts = append(storeOpts, store.WithSQLiteDSN(*flags.dbDSN))
		}
	} else {
		slog.Debug("No database DSN provided, will use in-memory store")
	}
	return storeOpts
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags, config Config) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if config.OpenAIBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(config.OpenAIBaseURL))
	}
	if config.OpenAIModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(config.OpenAIModel))
	}
	return genaiOpts
}

// buildNotifyOptions constructs notification provider options. Twilio reads its
// credentials from the environment itself.
func buildNotifyOptions(flags Flags, config Config) []notify.Option {
	if *flags.simulate {
		return []notify.Option{notify.WithSimulation(notify.DefaultSimulatedDelay)}
	}
	var notifyOpts []notify.Option
	if config.SendGridKey != "" {
		notifyOpts = append(notifyOpts, notify.WithSendGrid(config.SendGridKey, DefaultFromName, config.FromEmail))
	}
	return notifyOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags, config Config) ([]api.Option, error) {
	strategy, err := distress.ParseStrategy(*flags.strategy)
	if err != nil {
		return nil, err
	}
	apiOpts := []api.Option{
		api.WithStrategy(strategy),
		api.WithCooldownPeriod(config.Cooldown),
		api.WithHistoryLimit(config.HistoryLimit),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.redisAddr != "" {
		apiOpts = append(apiOpts, api.WithRedisAddr(*flags.redisAddr))
	}
	if config.RateLimit != "" {
		apiOpts = append(apiOpts, api.WithRateLimit(config.RateLimit))
	}
	return apiOpts, nil
}
