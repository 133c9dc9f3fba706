package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/domain/apperr"
	infraConfig "github.com/fieldsvc/fieldsvc/internal/infra/config"
	"github.com/fieldsvc/fieldsvc/internal/infra/persistence/file"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
)

func newConfigCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage setting.yaml",
		RunE:  func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newConfigInitCmd(rt))
	return cmd
}

func newConfigInitCmd(rt *runtime) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a setting.yaml with every default value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return rt.run(cmd, func(ctx context.Context, c *di.Container) error {
				home := rt.cfg.Home()
				path := filepath.Join(home, infraConfig.SettingFile)
				if exists, _ := afero.Exists(c.Fs(), path); exists && !force {
					return apperr.New(apperr.KindConflict, "config init", path+" already exists; use --force to replace it")
				}
				if err := file.WriteFileAtomic(c.Fs(), path, infraConfig.CreateDefaultSettings(home), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", path, err)
				}
				return c.GetPresenter().PresentSuccess("Wrote "+path, nil)
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing setting.yaml")
	return cmd
}
