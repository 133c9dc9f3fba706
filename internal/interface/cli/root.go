package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/fieldsvc/fieldsvc/internal/app"
	"github.com/fieldsvc/fieldsvc/internal/app/config"
	infraConfig "github.com/fieldsvc/fieldsvc/internal/infra/config"
	"github.com/fieldsvc/fieldsvc/internal/infrastructure/di"
	"github.com/fieldsvc/fieldsvc/internal/interface/cli/version"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	home     string
	apiURL   string
	format   string
	logLevel string
}

// runtime carries what PersistentPreRunE loaded to the commands
type runtime struct {
	opts   globalOptions
	fs     afero.Fs
	cfg    config.Config
	logger *Logger

	// newContainer is replaced by tests
	newContainer func(ctx context.Context, cfg di.Config) (*di.Container, error)
}

// reportedError marks an error the presenter already printed
type reportedError struct {
	error
}

func (e reportedError) Unwrap() error { return e.error }

// Reported reports whether err was already shown to the user
func Reported(err error) bool {
	var r reportedError
	return errors.As(err, &r)
}

// NewRoot builds the fieldsvc command tree
func NewRoot() *cobra.Command {
	rt := &runtime{
		fs:           afero.NewOsFs(),
		newContainer: di.NewContainer,
	}

	cmd := &cobra.Command{
		Use:           "fieldsvc",
		Short:         "Field-service technician client",
		Long:          "Log in, pick a service order, walk the engagement through its stages and finalize it.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return rt.load(cmd)
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&rt.opts.home, "home", "", "Home directory for local state (default $FIELDSVC_HOME or ~/.fieldsvc)")
	flags.StringVar(&rt.opts.apiURL, "api", "", "Backend base URL (overrides api_url)")
	flags.StringVar(&rt.opts.format, "format", "", "Output format: text or json")
	flags.StringVar(&rt.opts.logLevel, "log-level", "", "Stderr log level: debug, info, warn or error")

	cmd.AddCommand(newLoginCmd(rt))
	cmd.AddCommand(newLogoutCmd(rt))
	cmd.AddCommand(newOrdersCmd(rt))
	cmd.AddCommand(newActiveCmd(rt))
	cmd.AddCommand(newStartCmd(rt))
	cmd.AddCommand(newStageCmd(rt))
	cmd.AddCommand(newFinalizeCmd(rt))
	cmd.AddCommand(newHistoryCmd(rt))
	cmd.AddCommand(newMineCmd(rt))
	cmd.AddCommand(newEvidenceCmd(rt))
	cmd.AddCommand(newJournalCmd(rt))
	cmd.AddCommand(newHealthCmd(rt))
	cmd.AddCommand(newConfigCmd(rt))
	cmd.AddCommand(version.NewCommand())
	return cmd
}

// load reads the configuration before any command runs.
// Priority: flags > environment (FIELDSVC_*) > .env > setting.yaml > defaults
func (rt *runtime) load(cmd *cobra.Command) error {
	home := rt.opts.home
	if home == "" {
		home = app.DefaultHome()
	}

	flagValues := map[string]string{
		"FIELDSVC_API_URL":       rt.opts.apiURL,
		"FIELDSVC_OUTPUT_FORMAT": rt.opts.format,
		"FIELDSVC_STDERR_LEVEL":  rt.opts.logLevel,
	}
	lookup := func(key string) (string, bool) {
		if v := flagValues[key]; v != "" {
			return v, true
		}
		return os.LookupEnv(key)
	}

	cfg, err := infraConfig.LoadSettingsFs(rt.fs, home, lookup)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	rt.cfg = cfg
	rt.logger = NewLogger(LogLevelFromString(cfg.StderrLevel()), cmd.ErrOrStderr())
	rt.logger.Debug("configuration loaded from %s (home %s)", cfg.ConfigSource(), cfg.Home())
	return nil
}

// run opens the container, runs fn and presents its error
func (rt *runtime) run(cmd *cobra.Command, fn func(ctx context.Context, c *di.Container) error) error {
	return rt.runFormat(cmd, "", fn)
}

// runFormat is run with a forced output format
func (rt *runtime) runFormat(cmd *cobra.Command, format string, fn func(ctx context.Context, c *di.Container) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c, err := rt.newContainer(ctx, di.Config{
		Settings:     rt.cfg,
		Fs:           rt.fs,
		OutputWriter: cmd.OutOrStdout(),
		OutputFormat: format,
		Logger:       rt.logger,
	})
	if err != nil {
		return err
	}
	defer func() {
		if cerr := c.Close(); cerr != nil {
			rt.logger.Warn("failed to close local cache: %v", cerr)
		}
	}()

	if err := fn(ctx, c); err != nil {
		return reportedError{c.GetPresenter().PresentError(err)}
	}
	return nil
}

// stdin returns the command input as a ReadCloser for prompts
func stdin(cmd *cobra.Command) io.ReadCloser {
	return io.NopCloser(cmd.InOrStdin())
}
