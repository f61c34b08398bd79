package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/rajasatyajit/FeedMonitor/config"
	"github.com/rajasatyajit/FeedMonitor/internal/capture"
	apperrors "github.com/rajasatyajit/FeedMonitor/internal/errors"
	"github.com/rajasatyajit/FeedMonitor/internal/transcriber"
)

var errCheckFailed = errors.New("runtime check failed")

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the configured capture and recognition tools",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return runCheck(cmd.OutOrStdout(), cfg)
	},
}

type validator interface {
	Validate() error
}

// runCheck prints one row per checked component and fails if any row failed
func runCheck(w io.Writer, cfg *config.Config) error {
	checks := []struct {
		name string
		v    validator
	}{
		{"capture (" + cfg.Capture.Mode + ")", capture.New(cfg)},
		{"recognition (" + cfg.Recognition.Mode + ")", transcriber.New(cfg)},
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Component", "Status", "Detail"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)

	failed := false
	for _, c := range checks {
		errs := flatten(c.v.Validate())
		if len(errs) == 0 {
			table.Append([]string{c.name, "ok", ""})
			continue
		}
		failed = true
		for _, err := range errs {
			table.Append([]string{c.name, "failed", err.Error()})
		}
	}
	table.Render()

	if failed {
		return errCheckFailed
	}
	return nil
}

func flatten(err error) []error {
	if err == nil {
		return nil
	}
	var multi apperrors.MultiError
	if errors.As(err, &multi) {
		return multi.Errors
	}
	return []error{err}
}
