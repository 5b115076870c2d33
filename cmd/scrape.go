// File: cmd/scrape.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sreeshanth-soma/erpScraper/internal/attendance"
	"github.com/sreeshanth-soma/erpScraper/internal/config"
	"github.com/sreeshanth-soma/erpScraper/internal/observability"
	"github.com/sreeshanth-soma/erpScraper/internal/scraper"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func newScrapeCmd() *cobra.Command {
	var credentialsFile string

	scrapeCmd := &cobra.Command{
		Use:   "scrape",
		Short: "Log in to the portal once and record today's attendance",
		Long: `Reads the credential and selector files, drives a browser through the portal,
extracts the attendance of every subject and stores today's record. On failure the
page is saved to the diagnostic dump file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := observability.GetLogger()

			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			if credentialsFile != "" {
				cfg.Portal.CredentialsFile = credentialsFile
			}
			return runScrape(ctx, cmd.OutOrStdout(), logger, cfg)
		},
	}

	scrapeCmd.Flags().StringVar(&credentialsFile, "credentials", "", "credential file (overrides portal.credentials_file)")
	return scrapeCmd
}

// runScrape performs a single run. Credentials are loaded before anything
// else is opened, so a bad credential file never starts a browser.
func runScrape(ctx context.Context, out io.Writer, logger *zap.Logger, cfg *config.Config) error {
	creds, err := config.LoadCredentials(cfg.Portal.CredentialsFile)
	if err != nil {
		return fmt.Errorf("failed to load credentials: %w", err)
	}

	comps, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Shutdown()

	rec, err := comps.Runner.Run(ctx, creds)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("Scrape aborted.")
		}
		var se *scraper.Error
		if errors.As(err, &se) && se.Kind != scraper.KindConfiguration && se.Kind != scraper.KindBrowser {
			logger.Info("Page saved for inspection.", zap.String("path", cfg.Portal.DebugHTMLFile))
		}
		return err
	}

	return printRecord(out, rec)
}

// printRecord writes rec as indented JSON, including its calendar date.
func printRecord(out io.Writer, rec attendance.Record) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"owner":                   rec.Owner,
		"calendar_date":           rec.Date(),
		"total_classes_conducted": rec.TotalClasses,
		"classes_attended":        rec.ClassesAttended,
		"attendance_percentage":   rec.Percentage,
		"recorded_at":             rec.RecordedAt,
	})
}
