package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	"github.com/fieldsvc/fieldsvc/internal/domain/repository"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
	"github.com/fieldsvc/fieldsvc/internal/validator/journal"
)

func newJournalCmd(rt *runtime) *cobra.Command {
	var limit int
	var engagement int64
	var stageName string

	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Show the local action journal",
		Long: `Every login, start, stage record, stage move and finalize is appended
to <home>/var/journal.ndjson with its outcome and duration.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				if limit <= 0 {
					return apperr.Validation("journal", "-n must be greater than 0")
				}
				var stage model.Stage
				if stageName != "" {
					st, err := model.ParseStage(stageName)
					if err != nil {
						return apperr.Validation("journal", err.Error())
					}
					stage = st
				}

				var (
					records []*repository.JournalRecord
					err     error
				)
				switch {
				case engagement > 0:
					records, err = c.GetJournal().FindByEngagement(ctx, engagement)
				case stage != "":
					records, err = c.GetJournal().Tail(ctx, 0)
				default:
					records, err = c.GetJournal().Tail(ctx, limit)
				}
				if err != nil {
					return err
				}
				if stage != "" {
					records = filterStage(records, stage)
				}
				if len(records) > limit {
					records = records[len(records)-limit:]
				}
				return c.GetPresenter().PresentSuccess("", records)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "lines", "n", 20, "Number of entries to show")
	cmd.Flags().Int64Var(&engagement, "engagement", 0, "Only entries of this engagement")
	cmd.Flags().StringVar(&stageName, "stage", "", "Only entries at this stage ("+stageNames()+")")
	cmd.AddCommand(newJournalCheckCmd(rt))
	return cmd
}

func filterStage(records []*repository.JournalRecord, stage model.Stage) []*repository.JournalRecord {
	out := make([]*repository.JournalRecord, 0, len(records))
	for _, r := range records {
		if r.Stage == string(stage) {
			out = append(out, r)
		}
	}
	return out
}

func stageNames() string {
	stages := model.Stages()
	names := make([]string, len(stages))
	for i, st := range stages {
		names[i] = st.Label()
	}
	return strings.Join(names, ", ")
}

func newJournalCheckCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate every line of the action journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				path := c.Paths().Journal
				f, err := c.Fs().Open(path)
				if os.IsNotExist(err) {
					return c.GetPresenter().PresentSuccess("", "Journal is empty.")
				}
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer f.Close()

				result, err := journal.NewValidator(path).ValidateFile(f)
				if err != nil {
					return err
				}
				if err := c.GetPresenter().PresentSuccess("", result); err != nil {
					return err
				}
				if result.HasErrors() {
					return apperr.Validation("journal check",
						fmt.Sprintf("%d invalid line(s) in %s", result.Summary.Error, path))
				}
				return nil
			})
		},
	}
}
