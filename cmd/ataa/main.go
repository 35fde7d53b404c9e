package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"github.com/erazemk/ataa/internal/api"
	"github.com/erazemk/ataa/internal/auth"
	"github.com/erazemk/ataa/internal/db"
	"github.com/erazemk/ataa/internal/ledger"
	"github.com/erazemk/ataa/internal/metrics"
	"github.com/erazemk/ataa/internal/model"
	"github.com/erazemk/ataa/internal/source"
	"github.com/erazemk/ataa/internal/store"
)

type config struct {
	dbPath     string
	addr       string
	adminUser  string
	logPath    string
	sourceURL  string
	minLevel   string
	region     string
	seedPath   string
	syncOnBoot bool
	debug      bool
	jsonLogs   bool
}

// envOr returns the environment variable key, or def when it is unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return def
}

func parseFlags(args []string) (*config, error) {
	fs := flag.NewFlagSet("ataa", flag.ContinueOnError)
	cfg := &config{}

	dbDefault := envOr("ATAA_DB", "ataa.sqlite3")
	fs.StringVar(&cfg.dbPath, "db", dbDefault, "")
	fs.StringVar(&cfg.dbPath, "d", dbDefault, "")

	addrDefault := envOr("ATAA_ADDR", ":8080")
	fs.StringVar(&cfg.addr, "addr", addrDefault, "")
	fs.StringVar(&cfg.addr, "a", addrDefault, "")

	fs.StringVar(&cfg.adminUser, "user", "Admin", "")
	fs.StringVar(&cfg.adminUser, "u", "Admin", "")

	logDefault := envOr("ATAA_LOG", "")
	fs.StringVar(&cfg.logPath, "log", logDefault, "")
	fs.StringVar(&cfg.logPath, "l", logDefault, "")

	sourceDefault := envOr("ATAA_SOURCE_URL", "")
	fs.StringVar(&cfg.sourceURL, "source", sourceDefault, "")
	fs.StringVar(&cfg.sourceURL, "s", sourceDefault, "")

	minDefault := envOr("ATAA_MIN_LEVEL", "1")
	fs.StringVar(&cfg.minLevel, "min-level", minDefault, "")
	fs.StringVar(&cfg.minLevel, "m", minDefault, "")

	regionDefault := envOr("ATAA_REGION", "IQ")
	fs.StringVar(&cfg.region, "region", regionDefault, "")
	fs.StringVar(&cfg.region, "r", regionDefault, "")

	fs.StringVar(&cfg.seedPath, "seed", "", "")
	fs.BoolVar(&cfg.syncOnBoot, "sync", false, "")
	fs.BoolVar(&cfg.debug, "debug", false, "")
	fs.BoolVar(&cfg.jsonLogs, "json", false, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: ataa [flags]

Flags:
  -d, -db <path>          SQLite database path (default: ataa.sqlite3, env ATAA_DB)
  -a, -addr <host:port>   listen address (default: :8080, env ATAA_ADDR)
  -u, -user <name>        admin username on first run (default: Admin)
  -l, -log <path>         log file path (default: stdout/stderr only, env ATAA_LOG)
  -s, -source <url>       remote case management API (env ATAA_SOURCE_URL)
  -m, -min-level <qty>    minimum level for imported items (default: 1, env ATAA_MIN_LEVEL)
  -r, -region <code>      default phone number region (default: IQ, env ATAA_REGION)
  -seed <path>            import demo beneficiaries from a JSON file into an empty registry
  -sync                   import from the remote source at startup
  -debug                  log debug messages
  -json                   log as JSON
  -h, -help               show this help and exit

Variables from a .env file in the working directory are loaded first.
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return cfg, nil
}

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		if err == flag.ErrHelp {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging: INFO/WARN → stdout, ERROR → stderr.
	// Optionally also write to a log file.
	closeLog, err := setupLogger(cfg.logPath, cfg.debug, cfg.jsonLogs)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if closeLog != nil {
		defer closeLog()
	}

	if err := run(cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config) error {
	minLevel, err := decimal.NewFromString(cfg.minLevel)
	if err != nil || minLevel.IsNegative() {
		return fmt.Errorf("invalid minimum level %q", cfg.minLevel)
	}

	database, err := db.Open(cfg.dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.dbPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := bootstrapAdmin(ctx, database, cfg.dbPath, cfg.adminUser); err != nil {
		return err
	}
	if n, err := store.PurgeExpiredTokens(ctx, database, time.Now()); err != nil {
		return err
	} else if n > 0 {
		slog.Info("purged expired token revocations", "count", n)
	}

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	inv := ledger.NewInventory()
	reg := ledger.NewRegistry()
	ledgers := store.Ledgers{
		Inventory:     inv,
		Registry:      reg,
		Distributions: ledger.NewDistributions(inv, reg),
	}
	if err := store.Load(ctx, database, ledgers); err != nil {
		return fmt.Errorf("loading ledgers: %w", err)
	}
	detach := store.Mirror(database, ledgers)
	defer detach()

	if cfg.seedPath != "" {
		if err := seedBeneficiaries(cfg.seedPath, reg); err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)
	detachMetrics := m.Attach(inv, reg, ledgers.Distributions)
	defer detachMetrics()

	var syncer *source.Syncer
	if cfg.sourceURL != "" {
		syncer = newSyncer(ctx, database, cfg.sourceURL, minLevel, ledgers, m)
		if cfg.syncOnBoot {
			go func() {
				if err := syncer.SyncAll(ctx); err != nil {
					slog.Warn("startup sync incomplete", "error", err)
				}
			}()
		}
	} else if cfg.syncOnBoot {
		slog.Warn("ignoring -sync without a remote source")
	}

	apiRouter := api.NewRouter(api.Deps{
		DB:      database,
		Tokens:  auth.NewTokens(jwtSecret, auth.DefaultTTL),
		Ledgers: ledgers,
		Syncer:  syncer,
		Metrics: m,
		Region:  cfg.region,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := database.PingContext(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      3 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.addr, "source", cfg.sourceURL != "")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// newSyncer wires the remote source to the ledgers. Successful imports are
// recorded in the settings table so the last sync time survives restarts.
func newSyncer(ctx context.Context, database *sql.DB, baseURL string, minLevel decimal.Decimal, l store.Ledgers, m *metrics.Metrics) *source.Syncer {
	client := source.NewClient(baseURL, &http.Client{Timeout: source.DefaultTimeout})
	syncer := source.NewSyncer(client, l.Inventory, l.Registry, minLevel)
	syncer.OnResult = func(r source.Result) {
		m.ObserveSync(r)
		if r.Err != nil {
			return
		}
		at := syncer.State(r.Collection).LastSynced
		if at == nil {
			return
		}
		if err := store.SetLastSynced(context.Background(), database, string(r.Collection), *at); err != nil {
			slog.Error("failed to record sync time", "collection", string(r.Collection), "error", err)
		}
	}

	for _, c := range source.Collections {
		at, err := store.LastSynced(ctx, database, string(c))
		if err != nil {
			slog.Warn("failed to read last sync time", "collection", string(c), "error", err)
			continue
		}
		syncer.Restore(c, at)
	}
	return syncer
}

// seedBeneficiaries imports demo beneficiaries when the registry is empty.
func seedBeneficiaries(path string, reg *ledger.Registry) error {
	if reg.Len() > 0 {
		slog.Info("registry not empty, skipping seed", "path", path)
		return nil
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening seed file: %w", err)
	}
	defer f.Close()

	records, err := source.DecodeDemoBeneficiaries(f)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	if err := reg.Replace(records); err != nil {
		return fmt.Errorf("seeding beneficiaries: %w", err)
	}
	slog.Info("beneficiaries seeded", "path", path, "count", len(records))
	return nil
}

// bootstrapAdmin creates the admin account when no active account exists.
func bootstrapAdmin(ctx context.Context, database *sql.DB, dbPath, username string) error {
	n, err := store.CountUsers(ctx, database)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password, err := generatePassword(16)
	if err != nil {
		return fmt.Errorf("generating password: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if _, err := store.CreateUser(ctx, database, username, string(hash), model.RoleAdmin); err != nil {
		return fmt.Errorf("creating admin user: %w", err)
	}

	printInitResult(dbPath, username, password)
	fmt.Println()
	return nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, username, password string) {
	fmt.Printf("Database initialized: %s\n", dbPath)
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Username: %s\n", username)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after logging in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
