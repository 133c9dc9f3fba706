package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/model"
	domain "github.com/fieldsvc/fieldsvc/internal/domain/model/engagement"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newStageCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stage",
		Short: "Work on the stages of an engagement",
		Long: `An engagement walks Inspection, Diagnosis, Quote, Approval, Execution
and Completion in order. "stage record" saves notes for the current stage;
"stage next" moves on. Without an id the active engagement is used.`,
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newStageShowCmd(rt))
	cmd.AddCommand(newStageRecordCmd(rt))
	cmd.AddCommand(newStageNextCmd(rt))
	return cmd
}

func newStageShowCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "show [ID]",
		Short: "Show an engagement and its stage records",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				var (
					res *dto.ResumeResult
					err error
				)
				if len(args) == 0 {
					res, err = c.GetLifecycle().Resume(ctx)
				} else {
					id, perr := parseID("show engagement", "engagement", args[0])
					if perr != nil {
						return perr
					}
					res, err = c.GetLifecycle().Show(ctx, id)
				}
				if err != nil {
					return err
				}
				if res.Engagement == nil {
					return c.GetPresenter().PresentSuccess("", "No active engagement. Run `fieldsvc orders` to pick one.")
				}

				view := c.GetViewer().Trail(res)
				msg := ""
				switch {
				case res.Offline:
					msg = offlineNote
				case res.Engagement.IsActive() && res.Engagement.Stage() == model.StageCompletion:
					msg = fmt.Sprintf("Last stage reached: close it with `fieldsvc finalize %d -m ...`", res.Engagement.ID())
				}
				return c.GetPresenter().PresentSuccess(msg, &view)
			})
		},
	}
}

func newStageRecordCmd(rt *runtime) *cobra.Command {
	var description, photoPath string

	cmd := &cobra.Command{
		Use:   "record [ID]",
		Short: "Record notes (and a photo) for the current stage",
		Long: `Record what was done at the current stage. The stage does not move;
run "fieldsvc stage next" when the stage is complete.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				const op = "record stage"
				id, err := engagementID(ctx, c, op, args)
				if err != nil {
					return err
				}

				rec, err := c.GetLifecycle().Advance(ctx, dto.AdvanceRequest{
					EngagementID: id,
					Description:  description,
					PhotoPath:    photoPath,
				})
				if err != nil {
					return err
				}

				view := c.GetViewer().Record(*rec)
				return c.GetPresenter().PresentSuccess(
					fmt.Sprintf("Stage %s recorded for engagement %d", rec.Stage.Label(), id), &view)
			})
		},
	}

	cmd.Flags().StringVarP(&description, "message", "m", "", "What was done at this stage")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Image file to attach")
	_ = cmd.MarkFlagRequired("message")
	return cmd
}

func newStageNextCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "next [ID]",
		Short: "Move the engagement to its next stage",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				id, err := engagementID(ctx, c, "next stage", args)
				if err != nil {
					return err
				}

				res, err := c.GetLifecycle().Next(ctx, id)
				if errors.Is(err, domain.ErrNoNextStage) {
					return c.GetPresenter().PresentSuccess("", fmt.Sprintf(
						"Engagement %d is at its last stage. Close it with `fieldsvc finalize %d -m ...`.", id, id))
				}
				if err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess(fmt.Sprintf("Engagement %d moved on", id), res)
			})
		},
	}
}

func newFinalizeCmd(rt *runtime) *cobra.Command {
	var observation, photoPath string
	var loc locationFlags

	cmd := &cobra.Command{
		Use:   "finalize [ID]",
		Short: "Finalize an engagement",
		Long: `Close an engagement with an observation, the current position and an
optional photo. No further stage can be recorded afterwards.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				const op = "finalize engagement"
				id, err := engagementID(ctx, c, op, args)
				if err != nil {
					return err
				}

				coords, err := loc.resolve(ctx, cmd, c, op)
				if err != nil {
					return err
				}

				err = c.GetLifecycle().Finalize(ctx, dto.FinalizeRequest{
					EngagementID: id,
					Observation:  observation,
					Coordinates:  coords,
					PhotoPath:    photoPath,
				})
				if err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess(fmt.Sprintf("Engagement %d finalized", id), nil)
			})
		},
	}

	cmd.Flags().StringVarP(&observation, "message", "m", "", "Closing observation")
	cmd.Flags().StringVar(&photoPath, "photo", "", "Image file to attach")
	loc.register(cmd)
	return cmd
}
