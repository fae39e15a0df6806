package main

import (
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema and seed the default agent",
	RunE: func(cmd *cobra.Command, _ []string) error {
		// bootstrap already migrates; this command exists so deploys can run it
		// as a separate step.
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		a.log.Info("schema up to date", zap.String("dsnDriver", driverOf(a.cfg.DatabaseDSN)))
		return nil
	},
}

func driverOf(dsn string) string {
	scheme, _, ok := strings.Cut(dsn, "://")
	if !ok {
		return "mysql"
	}
	return scheme
}
