package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
	"github.com/stake-plus/getfunded/src/api/data"
)

// Settings the service reads from the settings table at startup.
var knownSettings = []string{"ai_provider", "ai_model", "ai_system_prompt", "agent_mode"}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Inspect or change runtime setting overrides",
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Print one setting, or all known settings",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		names := knownSettings
		if len(args) == 1 {
			names = args
		}
		for _, n := range names {
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", n, data.GetSetting(n))
		}
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <name> <value>",
	Short: "Upsert a setting; takes effect on the next restart",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !slices.Contains(knownSettings, args[0]) {
			return fmt.Errorf("unknown setting %q (known: %v)", args[0], knownSettings)
		}
		a, err := bootstrap(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		return data.PutSetting(cmd.Context(), a.db, args[0], args[1])
	},
}

func init() {
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd)
}
