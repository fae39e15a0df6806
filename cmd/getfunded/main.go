// Command getfunded runs the pitch API, the agent processor and schema
// migrations.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:           "getfunded",
	Short:         "Pitch an AI VC, get scored, get funded",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "Debug logging (overrides DEBUG)")
	rootCmd.AddCommand(serveCmd, processCmd, migrateCmd, smokeCmd, settingsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
