package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/negraodenio/roast/internal/app"
	"github.com/negraodenio/roast/internal/config"
	"github.com/negraodenio/roast/internal/service/audit"
	"github.com/negraodenio/roast/internal/service/roast"
	"github.com/negraodenio/roast/internal/util"
)

// backend is the part of the roast service the CLI drives.
type backend interface {
	Analyze(ctx context.Context, rawURL string, observer audit.Observer) (*roast.Analysis, error)
	Roast(ctx context.Context, req roast.Request, observer audit.Observer) (*roast.Outcome, error)
	ConfirmPayment(ctx context.Context, rawID string) (bool, error)
	UpgradeToAgency(ctx context.Context, email string) error
}

type session struct {
	roasts backend
	appURL string
	close  func()
}

type opener func(ctx context.Context, opts app.Options) (*session, error)

// openContainer loads the environment and assembles the services. Logs go to
// stderr so command output stays clean.
func openContainer(ctx context.Context, opts app.Options) (*session, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logFile := cfg.Logging.File
	if logFile == "" {
		logFile = "stderr"
	}
	logger, err := util.NewLogger(cfg.Logging.Level, logFile, cfg.Logging.Format)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	buildCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	container, err := app.Build(buildCtx, cfg, logger, opts)
	if err != nil {
		_ = logger.Sync()
		return nil, err
	}
	return &session{
		roasts: container.Roasts,
		appURL: cfg.Server.PublicAppURL,
		close: func() {
			container.Close()
			_ = logger.Sync()
		},
	}, nil
}

func newRootCmd(open opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "roastctl",
		Short:         "Roast websites from the command line",
		Long:          "roastctl runs roasts without the HTTP API and carries the admin tasks: schema migration, agency upgrades and payment confirmation.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newRoastCmd(open))
	cmd.AddCommand(newMigrateCmd(open))
	cmd.AddCommand(newUpgradeUserCmd(open))
	cmd.AddCommand(newMarkPaidCmd(open))
	return cmd
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := newRootCmd(openContainer).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}
