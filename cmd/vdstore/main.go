package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"vdstore/internal/config"
	"vdstore/internal/files"
	"vdstore/internal/legacy"
	boltlegacy "vdstore/internal/legacy/bolt"
	"vdstore/internal/logging"
	"vdstore/internal/storage"
)

const version = "0.1.0"

// app carries what the subcommands share. The legacy database is opened
// lazily: bbolt holds an exclusive lock for as long as it is open.
type app struct {
	cfg     *config.Config
	fs      *files.Store
	db      *boltlegacy.Store
	factory *storage.Factory
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var (
		configPath   string
		documentsDir string
		cacheDir     string
		legacyPath   string
		noLegacy     bool
		logLevel     string
		logFormat    string
	)

	root := &cobra.Command{
		Use:           "vdstore",
		Short:         "Inspect and migrate file-backed plugin stores",
		Version:       version,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(""); err != nil {
				return err
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg.ApplyEnv()

			// CLI flags override config file and environment
			if documentsDir != "" {
				cfg.Storage.DocumentsDir = documentsDir
			}
			if cacheDir != "" {
				cfg.Storage.CacheDir = cacheDir
			}
			if legacyPath != "" {
				cfg.Legacy.Path = legacyPath
			}
			if noLegacy {
				cfg.Legacy.Enabled = false
			}
			if logLevel != "" {
				cfg.Logging.Level = logLevel
			}
			if logFormat != "" {
				cfg.Logging.Format = logFormat
			}
			cfg.ExpandPaths()
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("config: %w", err)
			}

			logging.InitWriter(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Format)
			a.cfg = cfg
			a.fs = files.New(cfg.Storage.DocumentsDir, cfg.Storage.CacheDir)
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "path to config file")
	pf.StringVar(&documentsDir, "documents-dir", "", "documents root (overrides config)")
	pf.StringVar(&cacheDir, "cache-dir", "", "cache root (overrides config)")
	pf.StringVar(&legacyPath, "legacy-db", "", "legacy database path (overrides config)")
	pf.BoolVar(&noLegacy, "no-legacy", false, "run without the legacy engine")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "", "text or json")

	root.AddCommand(
		newGetCmd(a),
		newSetCmd(a),
		newPurgeCmd(a),
		newMigrateCmd(a),
		newWatchCmd(a),
		newLegacyCmd(a),
	)
	return root
}

// storeFactory opens the legacy engine on first use.
func (a *app) storeFactory() (*storage.Factory, error) {
	if a.factory != nil {
		return a.factory, nil
	}
	var lg legacy.Store
	if a.cfg.Legacy.Enabled {
		db, err := a.legacyDB()
		if err != nil {
			return nil, err
		}
		lg = db
	}
	a.factory = storage.NewFactory(a.fs, lg)
	return a.factory, nil
}

func (a *app) legacyDB() (*boltlegacy.Store, error) {
	if a.db != nil {
		return a.db, nil
	}
	if !a.cfg.Legacy.Enabled {
		return nil, fmt.Errorf("legacy engine disabled")
	}
	if err := os.MkdirAll(filepath.Dir(a.cfg.Legacy.Path), 0o700); err != nil {
		return nil, fmt.Errorf("creating legacy db dir: %w", err)
	}
	db, err := boltlegacy.Open(a.cfg.Legacy.Path, a.cfg.Legacy.Bucket)
	if err != nil {
		return nil, err
	}
	a.db = db
	return db, nil
}

func (a *app) close() error {
	if a.db == nil {
		return nil
	}
	err := a.db.Close()
	a.db = nil
	return err
}
