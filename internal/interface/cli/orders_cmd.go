package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	engagementusecase "github.com/fieldsvc/fieldsvc/internal/application/usecase/engagement"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newOrdersCmd(rt *runtime) *cobra.Command {
	var all bool
	var query string

	cmd := &cobra.Command{
		Use:     "orders",
		Aliases: []string{"os"},
		Short:   "List open service orders",
		Long: `List the service orders you can start. While an engagement is in
progress, orders in the field with another technician are hidden, and
nothing is offered once the engagement reached Execution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				view, err := c.GetDirectory().Browse(ctx, all, query)
				if err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess("", view)
			})
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Show every open order, ignoring the active engagement")
	cmd.Flags().StringVarP(&query, "search", "s", "", "Filter by client or address (case and accent insensitive)")
	return cmd
}

// offlineNote heads output served from the local cache
const offlineNote = "Offline copy: the backend could not be reached"

func newActiveCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "active",
		Short: "Show the engagement in progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				res, err := c.GetLifecycle().Resume(ctx)
				if err != nil {
					return err
				}
				if res.Engagement == nil {
					return c.GetPresenter().PresentSuccess("", "No active engagement. Run `fieldsvc orders` to pick one.")
				}
				msg := ""
				if res.Offline {
					msg = offlineNote
				}
				return c.GetPresenter().PresentSuccess(msg, dto.NewEngagementDTO(res.Engagement))
			})
		},
	}
}

func newStartCmd(rt *runtime) *cobra.Command {
	var loc locationFlags

	cmd := &cobra.Command{
		Use:   "start [OS_ID]",
		Short: "Start an engagement on a service order",
		Long: `Start an engagement on a service order. Without an id an interactive
picker lists the orders that can be started. The position is taken from
--lat/--lon, skipped with --no-gps, or asked from the configured location
command; a failed lookup sends (0,0).`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				const op = "start engagement"

				var orderID int64
				if len(args) == 1 {
					id, err := parseID(op, "order", args[0])
					if err != nil {
						return err
					}
					orderID = id
				} else {
					view, err := c.GetDirectory().Browse(ctx, false, "")
					if err != nil {
						return err
					}
					if orderID, err = pickOrder(cmd, view.Orders); err != nil {
						return err
					}
				}

				coords, err := loc.resolve(ctx, cmd, c, op)
				if err != nil {
					return err
				}

				res, err := c.GetLifecycle().Start(ctx, dto.StartRequest{OrderID: orderID, Coordinates: coords})
				if err != nil {
					var conflict *engagementusecase.ConflictError
					if errors.As(err, &conflict) && conflict.Active != nil {
						rt.logger.Info("continue with `fieldsvc stage show %d`", conflict.Active.ID())
					}
					return err
				}

				if res.Location.IsZero() {
					rt.logger.Warn("engagement started without a position")
				}
				msg := fmt.Sprintf("Engagement %d started", res.Engagement.ID())
				if res.Message != "" {
					msg += ": " + res.Message
				}
				msg += fmt.Sprintf(" (continue with `fieldsvc stage record %d -m ...`)", res.Engagement.ID())
				return c.GetPresenter().PresentSuccess(msg, dto.NewEngagementDTO(res.Engagement))
			})
		},
	}

	loc.register(cmd)
	return cmd
}

// parseID parses a positive id argument
func parseID(op, what, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.Validation(op, fmt.Sprintf("invalid %s id %q", what, arg))
	}
	return id, nil
}

// engagementID returns the id argument, or the active engagement's id
func engagementID(ctx context.Context, c *di.Container, op string, args []string) (int64, error) {
	if len(args) == 1 {
		return parseID(op, "engagement", args[0])
	}
	active, err := c.GetLifecycle().GetActive(ctx)
	if err != nil {
		return 0, err
	}
	if active == nil {
		return 0, apperr.New(apperr.KindNotFound, op, "no active engagement; pass the engagement id")
	}
	return active.ID(), nil
}
