package main

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/dirsync/pkg/dirsync/config"
	"github.com/jamesainslie/dirsync/pkg/dirsync/manifest"
	"github.com/jamesainslie/dirsync/pkg/dirsync/output"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [id]",
		Short: "View journaled sync runs",
		Long: `List runs recorded in the journal, newest first, or show one run in
full when an ID (or unique ID prefix) is given.

Runs are only journaled when journal.enabled is true or --journal is passed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistory,
	}
	cmd.Flags().IntP("limit", "n", 20, "maximum number of entries to show")

	clean := &cobra.Command{
		Use:   "clean",
		Short: "Remove journal entries older than the retention period",
		Args:  cobra.NoArgs,
		RunE:  runHistoryClean,
	}
	cmd.AddCommand(clean)

	return cmd
}

// openJournal loads configuration without requiring source and target.
func openJournal(cmd *cobra.Command) (*config.Config, *manifest.Manifest, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	m, err := manifest.New(cfg.Journal.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open journal: %w", err)
	}
	return cfg, m, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, m, err := openJournal(cmd)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if len(args) == 1 {
		entry, err := m.Get(args[0])
		if err != nil {
			return err
		}
		if err := output.FormatEntry(&buf, cfg.Output, entry); err != nil {
			return err
		}
	} else {
		limit, _ := cmd.Flags().GetInt("limit")
		entries, err := m.List(limit)
		if err != nil {
			return fmt.Errorf("failed to list history: %w", err)
		}
		if err := output.FormatHistory(&buf, cfg.Output, entries); err != nil {
			return err
		}
	}

	_, err = cmd.OutOrStdout().Write(buf.Bytes())
	return err
}

func runHistoryClean(cmd *cobra.Command, _ []string) error {
	cfg, m, err := openJournal(cmd)
	if err != nil {
		return err
	}

	removed, err := m.Cleanup(cfg.Journal.RetentionDays)
	if err != nil {
		return fmt.Errorf("failed to clean history: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d entries older than %d days\n", removed, cfg.Journal.RetentionDays)
	return nil
}
