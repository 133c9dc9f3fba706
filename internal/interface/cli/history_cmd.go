package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/adapter/presenter"
	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	var offline, asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show every engagement with its stage records",
		Long: `Show your engagements grouped by status, each with its stage records.
Every successful fetch is kept in the local cache; --offline shows that copy
without contacting the backend.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format := ""
			if asJSON {
				format = "json"
			}
			return rt.runFormat(cmd, format, func(ctx context.Context, c *di.Container) error {
				var (
					view *dto.HistoryView
					err  error
				)
				if offline {
					view, err = c.GetViewer().Offline(ctx)
				} else {
					view, err = c.GetViewer().List(ctx)
				}
				if err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess("", view)
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Show the last copy stored locally")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Shorthand for --format json")
	cmd.AddCommand(newHistoryExportCmd(rt))
	return cmd
}

func newHistoryExportCmd(rt *runtime) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "export FILE.xlsx",
		Short: "Write the history to a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				path := args[0]
				if !strings.EqualFold(filepath.Ext(path), ".xlsx") {
					return apperr.Validation("export history", "the file name must end in .xlsx")
				}

				summaries, err := c.GetViewer().Summaries(ctx, offline)
				if err != nil {
					return err
				}
				entries := make([]dto.HistoryEntryView, 0, len(summaries))
				for _, s := range summaries {
					entries = append(entries, c.GetViewer().Display(s))
				}

				if err := writeXLSX(c.Fs(), path, entries); err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess(
					fmt.Sprintf("Exported %d engagement(s) to %s", len(entries), path), nil)
			})
		},
	}

	cmd.Flags().BoolVar(&offline, "offline", false, "Export the last copy stored locally")
	return cmd
}

// writeXLSX renders the workbook in memory and replaces path atomically
func writeXLSX(fs afero.Fs, path string, entries []dto.HistoryEntryView) error {
	var buf bytes.Buffer
	if err := presenter.ExportHistoryXLSX(&buf, entries); err != nil {
		return fmt.Errorf("render spreadsheet: %w", err)
	}
	if err := file.WriteFileAtomic(fs, path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func newMineCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "mine",
		Short: "List your engagements without stage records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				view, err := c.GetViewer().Mine(ctx)
				if err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess("", view)
			})
		},
	}
}
