package main

import (
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pnp-roster/roster/cmd/roster/config"
	"github.com/pnp-roster/roster/storage/model"
)

var configFile string

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "rosterctl",
		Short:         "rosterctl can help you manage your roster",
		Long:          "rosterctl can help you manage your roster: copy data between storage backends, hash admin passwords and inspect the roster",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config.yaml", "the config file to use")
	rootCmd.AddCommand(
		newSyncCmd(),
		newHashPasswordCmd(),
		newMembersCmd(),
		newAuditCmd(),
	)
	return rootCmd
}

// loadBackends loads the config file and opens the configured storage
func loadBackends() (*config.Config, model.Backends, error) {
	c, err := config.Load(configFile)
	if err != nil {
		return nil, model.Backends{}, err
	}
	backs, err := config.LoadStorageBackends(c)
	if err != nil {
		return nil, model.Backends{}, err
	}
	return c, backs, nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Fatal(err)
	}
}
