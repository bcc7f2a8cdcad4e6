package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"vdstore/internal/files"
	"vdstore/internal/legacy"
)

// ErrMigration wraps capability failures that stopped a migration. Nothing
// was written in that case, so the next process start retries.
var ErrMigration = errors.New("store migration failed")

// OverflowPath is where the legacy engine parks values it reports with
// legacy.LargeValueSentinel, relative to the cache root. The id is used
// unsanitized.
func OverflowPath(storeID string) string {
	return "mmkv/" + storeID
}

// Migrator moves stores out of the legacy engine into files.
type Migrator struct {
	fs     files.FS
	legacy legacy.Store
}

// NewMigrator returns a Migrator. legacyStore may be nil on platforms that
// never had the legacy engine; every migration then writes the default.
func NewMigrator(fsys files.FS, legacyStore legacy.Store) *Migrator {
	return &Migrator{fs: fsys, legacy: legacyStore}
}

// migrationSource is what the recovery strategies choose from.
type migrationSource struct {
	storeID     string
	value       string
	present     bool
	defaultText string
}

// recoveryStrategy yields the text to persist, or ok=false to defer to the
// next strategy in recoveryChain.
type recoveryStrategy func(m *Migrator, src *migrationSource, log *slog.Logger) (text string, ok bool)

// recoveryChain ends in fromDefault, which always succeeds.
var recoveryChain = []recoveryStrategy{
	fromLegacyValue,
	fromOverflowCache,
	fromDefault,
}

func fromLegacyValue(_ *Migrator, src *migrationSource, log *slog.Logger) (string, bool) {
	if !src.present || src.value == legacy.LargeValueSentinel {
		return "", false
	}
	if !json.Valid([]byte(src.value)) {
		log.Error("unparseable legacy data, falling back to default")
		return "", false
	}
	return src.value, true
}

func fromOverflowCache(m *Migrator, src *migrationSource, log *slog.Logger) (string, bool) {
	if !src.present || src.value != legacy.LargeValueSentinel {
		return "", false
	}
	name := OverflowPath(src.storeID)
	ok, err := m.fs.Exists(files.Cache, name)
	if err != nil {
		log.Warn("overflow cache unavailable", "path", name, "err", err)
	}
	if !ok {
		log.Warn("legacy value too large and no overflow copy, data lost", "path", name)
		return "", false
	}
	text, err := m.fs.ReadText(files.Cache, name)
	if err != nil {
		log.Warn("reading overflow copy failed, data lost", "path", name, "err", err)
		return "", false
	}
	if !json.Valid([]byte(text)) {
		log.Error("unparseable overflow copy, falling back to default", "path", name)
		return "", false
	}
	return text, true
}

func fromDefault(_ *Migrator, src *migrationSource, _ *slog.Logger) (string, bool) {
	return src.defaultText, true
}

// Migrate moves storeID into its file unless that file already exists.
// Unusable legacy data (oversize sentinel without an overflow copy,
// unparseable text) degrades to defaultText and is only logged. Errors are
// returned solely for failing capabilities and wrap ErrMigration.
func (m *Migrator) Migrate(storeID, defaultText string) error {
	target := StorePath(storeID)
	log := logger.With("store", storeID)

	exists, err := m.fs.Exists(files.Documents, target)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMigration, storeID, err)
	}
	if exists {
		return nil
	}

	src := &migrationSource{storeID: storeID, defaultText: defaultText}
	if m.legacy != nil {
		src.value, src.present, err = m.legacy.Get(storeID)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMigration, storeID, err)
		}
	}

	var text string
	for _, strategy := range recoveryChain {
		if t, ok := strategy(m, src, log); ok {
			text = t
			break
		}
	}

	if err := m.fs.WriteText(files.Documents, target, text); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMigration, storeID, err)
	}

	if m.legacy == nil {
		return nil
	}
	// Checked again: the engine is not ours alone while we migrate.
	_, stillThere, err := m.legacy.Get(storeID)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMigration, storeID, err)
	}
	if stillThere {
		if err := m.legacy.Remove(storeID); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrMigration, storeID, err)
		}
		log.Info("migrated store from legacy engine to file", "path", target)
	}
	return nil
}
