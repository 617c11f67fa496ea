package main

import (
	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirsync/pkg/dirsync/executor"
	"github.com/jamesainslie/dirsync/pkg/dirsync/output"
)

func newPlanCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plan",
		Short: "Show the actions a sync would apply",
		Long: `Scan source and target and print the sync plan without touching
the target. Deletes are listed first, then copies, each sorted by path.`,
		Args: cobra.NoArgs,
		RunE: runPlan,
	}
}

func runPlan(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	defer s.close()

	exec := executor.New(s.cfg.Source, s.cfg.Target, s.logger)
	actions, err := exec.Plan(cmd.Context())
	if err != nil {
		s.logger.Error("plan failed", "err", err)
		return err
	}

	return render(cmd, s.cfg.Output, output.NewResult(exec.Source(), exec.Target(), actions, nil))
}
