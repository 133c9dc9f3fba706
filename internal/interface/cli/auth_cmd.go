package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/application/dto"
	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newLoginCmd(rt *runtime) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session token",
		Long: `Exchange e-mail and password for a token. The token is kept in
<home>/session.json until it expires, the backend rejects it or you log out.
Without --password the password is prompted for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				if password == "" {
					p, err := promptPassword(cmd)
					if err != nil {
						return err
					}
					password = p
				}
				if err := c.GetAuth().Login(ctx, dto.LoginRequest{Email: email, Password: password}); err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess(
					fmt.Sprintf("Logged in as %s", email),
					fmt.Sprintf("Technician id: %d", c.GetSession().TechnicianID()),
				)
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Technician e-mail")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func promptPassword(cmd *cobra.Command) (string, error) {
	prompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Stdin: stdin(cmd),
	}
	p, err := prompt.Run()
	if err != nil {
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrAbort) {
			return "", apperr.Validation("login", "login canceled")
		}
		return "", fmt.Errorf("read password: %w", err)
	}
	return p, nil
}

func newLogoutCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				if err := c.GetAuth().Logout(ctx); err != nil {
					return err
				}
				return c.GetPresenter().PresentSuccess("Logged out", nil)
			})
		},
	}
}
