package main

import (
	"github.com/spf13/cobra"
	"github.com/stake-plus/getfunded/src/api/processor"
)

var processOnce bool

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Answer pitches that are waiting on the VC agent",
	Long: `Polls for pending pitches whose founder spoke last (or that have no
messages yet) and generates the agent's next turn. Used with AGENT_MODE=manual.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		eng, err := a.engine()
		if err != nil {
			return err
		}
		p := processor.New(a.store, eng, a.events, a.log, a.cfg.PollInterval)
		if processOnce {
			_, err := p.RunOnce(ctx)
			return err
		}
		return p.Run(ctx)
	},
}

func init() {
	processCmd.Flags().BoolVar(&processOnce, "once", false, "Process the current backlog and exit")
}
