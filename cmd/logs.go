// File: cmd/logs.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/hpcloud/tail"
	"github.com/spf13/cobra"
)

// logFilter selects JSON log lines by level and run id. Empty fields match everything.
type logFilter struct {
	level string
	runID string
}

func (f logFilter) match(line string) bool {
	if f.level == "" && f.runID == "" {
		return true
	}
	var entry struct {
		Level string `json:"level"`
		RunID string `json:"run_id"`
	}
	if err := json.UnmarshalFromString(line, &entry); err != nil {
		return false
	}
	if f.level != "" && !strings.EqualFold(entry.Level, f.level) {
		return false
	}
	if f.runID != "" && entry.RunID != f.runID {
		return false
	}
	return true
}

func newLogsCmd() *cobra.Command {
	var (
		follow bool
		filter logFilter
	)

	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print or follow the JSON log file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if cfg.Logger.LogFile == "" {
				return errors.New("logger.log_file is not set; there is no log file to read")
			}
			return tailLogs(cmd.Context(), cmd.OutOrStdout(), cfg.Logger.LogFile, follow, filter)
		},
	}

	logsCmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing new lines as they are written")
	logsCmd.Flags().StringVar(&filter.level, "level", "", "only lines with this level (e.g. ERROR)")
	logsCmd.Flags().StringVar(&filter.runID, "run", "", "only lines from this scrape run id")
	return logsCmd
}

// tailLogs prints the log file from the start. With follow it keeps going
// across rotations until ctx is cancelled.
func tailLogs(ctx context.Context, out io.Writer, path string, follow bool, filter logFilter) error {
	t, err := tail.TailFile(path, tail.Config{
		Follow:    follow,
		ReOpen:    follow,
		MustExist: true,
		Logger:    tail.DiscardingLogger,
	})
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer t.Cleanup()

	for {
		select {
		case <-ctx.Done():
			_ = t.Stop()
			return nil
		case line, ok := <-t.Lines:
			if !ok {
				return nil
			}
			if line.Err != nil {
				return fmt.Errorf("reading log file: %w", line.Err)
			}
			if filter.match(line.Text) {
				fmt.Fprintln(out, line.Text)
			}
		}
	}
}
