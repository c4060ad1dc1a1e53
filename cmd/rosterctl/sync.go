package main

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pnp-roster/roster/storage"
	"github.com/pnp-roster/roster/storage/model"
)

// parseBackend parses a backend of the form <driver>:<target>. The
// target is the data file for json, the database file for sqlite, the data
// directory holding the badger directory for badger and the dsn for mysql and postgres.
func parseBackend(backend string, auditMax int) (storage.Config, error) {
	driver, target, _ := strings.Cut(backend, ":")
	cfg := storage.Config{
		Driver:          storage.DriverType(strings.ToLower(strings.TrimSpace(driver))),
		AuditMaxEntries: auditMax,
	}
	switch cfg.Driver {
	case storage.DriverMemory:
		return cfg, nil
	case storage.DriverJSON:
		cfg.File = target
	case storage.DriverSQLite, storage.DriverMySQL, storage.DriverPostgres:
		cfg.DSN = target
	case storage.DriverBadger:
		cfg.DataDir = target
	default:
		return storage.Config{}, errors.Errorf("unsupported storage driver '%s'", driver)
	}
	if target == "" {
		return storage.Config{}, errors.Errorf("missing target in backend '%s'", backend)
	}
	return cfg, nil
}

func openBackend(backend string, auditMax int) (model.Backends, error) {
	cfg, err := parseBackend(backend, auditMax)
	if err != nil {
		return model.Backends{}, err
	}
	return storage.LoadStorageBackends(cfg)
}

func newSyncCmd() *cobra.Command {
	var from, to string
	var auditMax int
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Copy members and audit entries from one storage backend to another",
		Long: `Copy members and audit entries from one storage backend to another.
Members are upserted by id; audit entries already present in the destination are skipped.
Backends are given as <driver>:<target>, e.g. json:players.json, sqlite:roster.db,
badger:/var/lib/roster, postgres:"host=db user=roster dbname=roster".`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			src, err := openBackend(from, auditMax)
			if err != nil {
				return errors.Wrap(err, "could not open source backend")
			}
			defer src.Close()
			dst, err := openBackend(to, auditMax)
			if err != nil {
				return errors.Wrap(err, "could not open destination backend")
			}
			defer dst.Close()

			res, err := storage.Sync(src, dst)
			if err != nil {
				return err
			}
			log.WithFields(
				log.Fields{
					"from": from,
					"to":   to,
				},
			).Debug("synced storage backends")
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d members.\n", res.Members)
			if res.AuditAdded > 0 {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Synced %d new logs.\n", res.AuditAdded)
			} else {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No new logs to sync.")
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source backend as <driver>:<target>")
	cmd.Flags().StringVar(&to, "to", "", "destination backend as <driver>:<target>")
	cmd.Flags().IntVar(&auditMax, "audit-max-entries", model.DefaultAuditMaxEntries, "audit entries kept in the destination")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	return cmd
}
