package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"

	"vdstore/internal/watch"
)

func newGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <store>",
		Short: "Print a store's document, migrating it first if needed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.storeFactory()
			if err != nil {
				return err
			}
			b, err := f.NewLegacyBackend(args[0], nil)
			if err != nil {
				return err
			}
			doc, err := b.Get(cmd.Context())
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(doc, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
}

func newSetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <store> <json>",
		Short: "Replace a store's document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc any
			if err := json.Unmarshal([]byte(args[1]), &doc); err != nil {
				return fmt.Errorf("document is not valid JSON: %w", err)
			}
			f, err := a.storeFactory()
			if err != nil {
				return err
			}
			b, err := f.NewLegacyBackend(args[0], nil)
			if err != nil {
				return err
			}
			return b.Set(cmd.Context(), doc)
		},
	}
}

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <store>...",
		Short: "Delete stores from the legacy engine and the filesystem",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := a.storeFactory()
			if err != nil {
				return err
			}
			for _, id := range args {
				if err := f.Purge(id); err != nil {
					return fmt.Errorf("purging %s: %w", id, err)
				}
			}
			return nil
		},
	}
}

func newMigrateCmd(a *app) *cobra.Command {
	var (
		all         bool
		concurrency int
	)
	cmd := &cobra.Command{
		Use:   "migrate [store...]",
		Short: "Migrate stores from the legacy engine to files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all == (len(args) > 0) {
				return errors.New("name stores to migrate or pass --all, not both")
			}
			f, err := a.storeFactory()
			if err != nil {
				return err
			}
			ids := args
			if all {
				if ids, err = f.MigrateAll(cmd.Context(), concurrency); err != nil {
					return err
				}
			} else {
				for _, id := range ids {
					b, err := f.NewLegacyBackend(id, nil)
					if err != nil {
						return err
					}
					if err := b.Ready(cmd.Context()); err != nil {
						return err
					}
				}
			}
			sort.Strings(ids)
			for _, id := range ids {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "migrate every store left in the legacy engine")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4, "stores migrated at once with --all")
	return cmd
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print store files as they change on disk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w, err := watch.New(a.cfg.Storage.DocumentsDir)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return w.Run(ctx, func(e watch.Event) {
				op := "changed"
				if e.Removed {
					op = "removed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", op, e.Path)
			})
		},
	}
}

func newLegacyCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "legacy",
		Short: "Inspect or seed the legacy key-value engine",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List stores still held by the legacy engine",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				db, err := a.legacyDB()
				if err != nil {
					return err
				}
				keys, err := db.Keys()
				if err != nil {
					return err
				}
				for _, k := range keys {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
				return nil
			},
		},
		&cobra.Command{
			Use:   "put <key> <value>",
			Short: "Store a raw value in the legacy engine",
			Args:  cobra.ExactArgs(2),
			RunE: func(_ *cobra.Command, args []string) error {
				db, err := a.legacyDB()
				if err != nil {
					return err
				}
				return db.Put(args[0], args[1])
			},
		},
	)
	return cmd
}
