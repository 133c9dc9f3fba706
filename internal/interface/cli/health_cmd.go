package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newHealthCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check that the backend is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				status, err := c.GetBackend().Health(ctx)
				if err != nil {
					return err
				}
				if err := c.GetPresenter().PresentSuccess("", status); err != nil {
					return err
				}
				if status.Status != "ok" && status.Status != "healthy" {
					return apperr.New(apperr.KindServer, "health", fmt.Sprintf("backend reports %q", status.Status))
				}
				return nil
			})
		},
	}
}
