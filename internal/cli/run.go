package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/buildtall-systems/petstock/internal/commands"
	"github.com/buildtall-systems/petstock/internal/config"
	"github.com/buildtall-systems/petstock/internal/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Read commands from stdin",
	Long: `Start the engine and execute one command per line read from stdin, as the
customer given by --customer or as the administrator with --admin.
Pending notifications are delivered before exit.`,
	RunE: runEngine,
}

func init() {
	addIdentityFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

func addIdentityFlags(cmd *cobra.Command) {
	cmd.Flags().Int64("customer", 0, "act as this customer id")
	cmd.Flags().Bool("admin", false, "act as the administrator")
	cmd.MarkFlagsMutuallyExclusive("customer", "admin")
}

func identityFromFlags(cmd *cobra.Command) (commands.Identity, error) {
	admin, _ := cmd.Flags().GetBool("admin")
	if admin {
		return commands.Admin(), nil
	}
	customerID, _ := cmd.Flags().GetInt64("customer")
	if customerID < 1 {
		return commands.Identity{}, errors.New("one of --customer <id> or --admin is required")
	}
	return commands.Customer(customerID), nil
}

// setup loads configuration and builds the logger and app for a command invocation.
func setup(ctx context.Context) (*app, *zap.Logger, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Verbose)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}
	return a, logger, nil
}

func runEngine(cmd *cobra.Command, args []string) error {
	id, err := identityFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := commands.Verify(ctx, a.db, id); err != nil {
		_ = a.Close()
		return err
	}

	logger.Info("petstock running", zap.Stringer("identity", id))
	err = a.serve(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), id)
	logger.Info("shutting down")

	closeErr := a.Close()
	if err != nil {
		return err
	}
	return closeErr
}

// serve executes each input line until EOF or cancellation. Command errors are written
// to out and do not stop the loop.
func (a *app) serve(ctx context.Context, in io.Reader, out io.Writer, id commands.Identity) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanErr:
					if err != nil {
						return fmt.Errorf("reading input: %w", err)
					}
				default:
				}
				return nil
			}

			res, ok := a.execute(ctx, line, id)
			if !ok {
				continue
			}
			if res.Error != nil {
				fmt.Fprintf(out, "error: %v\n", res.Error)
				continue
			}
			fmt.Fprintln(out, res.Message)
		}
	}
}
