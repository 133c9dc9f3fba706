package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newEvidenceCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evidence",
		Short: "Browse the photos archived by stage records and finalize",
		Long: `Every photo sent with "stage record" or "finalize" is also archived in
the configured evidence store (local directory or S3).`,
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newEvidenceListCmd(rt))
	cmd.AddCommand(newEvidenceGetCmd(rt))
	return cmd
}

func newEvidenceListCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "list [ID]",
		Short: "List the archived photos of an engagement",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				const op = "list evidence"
				id, err := engagementID(ctx, c, op, args)
				if err != nil {
					return err
				}
				list, err := c.GetLifecycle().Evidence(ctx, id)
				if err != nil {
					return err
				}
				if len(list) == 0 {
					return c.GetPresenter().PresentSuccess("", fmt.Sprintf("No photos archived for engagement %d.", id))
				}
				return c.GetPresenter().PresentSuccess("", list)
			})
		},
	}
}

func newEvidenceGetCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "get EVIDENCE_ID FILE",
		Short: "Save an archived photo to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				ev, err := c.GetLifecycle().EvidencePhoto(ctx, args[0])
				if err != nil {
					return err
				}
				if err := file.WriteFileAtomic(c.Fs(), args[1], ev.Content, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", args[1], err)
				}
				return c.GetPresenter().PresentSuccess(
					fmt.Sprintf("Saved %s (%s, %d bytes) to %s", ev.ID, ev.Metadata.ContentType, len(ev.Content), args[1]), nil)
			})
		},
	}
}
