// Command bookstore serves CRUD over HTTP for book records kept as rows of a
// spreadsheet file.
//
// Configuration is read from flags, environment variables and an optional
// YAML file, in that order of precedence.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/stevemurr/bookstore/config"
	"github.com/stevemurr/bookstore/store"
)

// logLevel is adjusted once the configuration is known.
var logLevel = &slog.LevelVar{}

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "bookstore: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	slog.SetDefault(newLogger())
	return newRootCmd().ExecuteContext(ctx)
}

func newLogger() *slog.Logger {
	// Skip timestamps when running under systemd (it adds its own).
	underSystemd := os.Getenv("JOURNAL_STREAM") != ""
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      logLevel,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if underSystemd && a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.Attr{}
			}
			return a
		},
	}))
}

// flagKeys maps command line flags to config keys.
var flagKeys = map[string]string{
	"host":       "host",
	"port":       "port",
	"data-dir":   "data_dir",
	"file":       "file_name",
	"backend":    "backend",
	"origins":    "allowed_origins",
	"rate-limit": "rate_limit",
	"rate-burst": "rate_burst",
	"log-level":  "log_level",
	"watch":      "watch",
}

func newRootCmd() *cobra.Command {
	var cfg config.Config
	root := &cobra.Command{
		Use:           "bookstore",
		Short:         "Serve book records stored in a spreadsheet",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = loadConfig(cmd)
			if err != nil {
				return err
			}
			lvl, _ := cfg.Level()
			logLevel.Set(lvl)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg)
		},
	}

	d := config.Default()
	f := root.PersistentFlags()
	f.String("config", "", "YAML config file")
	f.String("host", d.Host, "Host to listen on")
	f.Int("port", d.Port, "Port to listen on")
	f.String("data-dir", d.DataDir, "Data directory")
	f.String("file", d.FileName, "Spreadsheet file name inside the data directory")
	f.String("backend", d.Backend, "Store backend: xlsx, sqlite, json, memory")
	f.String("origins", d.AllowedOrigins, "Comma separated CORS origins, * for any")
	f.Float64("rate-limit", d.RateLimit, "Requests per second per client, 0 disables")
	f.Int("rate-burst", d.RateBurst, "Rate limiter burst size")
	f.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	f.Bool("watch", d.Watch, "Log changes made to the data file by other programs")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return serve(cmd.Context(), cfg)
			},
		},
		&cobra.Command{
			Use:   "init",
			Short: "Create the data file with its header and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return initStore(cfg)
			},
		},
		&cobra.Command{
			Use:   "list",
			Short: "Print the stored books as JSON",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return listBooks(cmd, cfg)
			},
		},
	)
	return root
}

// loadConfig resolves defaults, the YAML file, the environment and the flags
// the user set explicitly.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	for name, key := range flagKeys {
		if !cmd.Flags().Changed(name) {
			continue
		}
		if err := cfg.Set(key, cmd.Flags().Lookup(name).Value.String()); err != nil {
			return cfg, fmt.Errorf("--%s: %w", name, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openStore(cfg config.Config) (store.Store, error) {
	s, err := store.New(cfg.Backend, cfg.DataDir, cfg.FileName)
	if err != nil {
		return nil, fmt.Errorf("failed to create store (backend=%s): %w", cfg.Backend, err)
	}
	return s, nil
}

func initStore(cfg config.Config) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	if err := s.Init(); err != nil {
		return fmt.Errorf("failed to initialize data file: %w", err)
	}
	slog.Info("Data file ready", "backend", cfg.Backend, "path", store.Path(cfg.Backend, cfg.DataDir, cfg.FileName))
	return nil
}

func listBooks(cmd *cobra.Command, cfg config.Config) error {
	s, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer s.Close()
	books, err := s.List()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(books)
}
