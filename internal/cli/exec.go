package cli

import (
	"fmt"
	"strings"

	"github.com/buildtall-systems/petstock/internal/commands"
	"github.com/spf13/cobra"
)

var execCmd = &cobra.Command{
	Use:   "exec -- <command> [args...]",
	Short: "Execute a single command",
	Example: `  petstock exec --admin -- addproduct 1299 40 Premium Kibble
  petstock exec --customer 3 -- confirm 12`,
	Args: cobra.MinimumNArgs(1),
	RunE: execOne,
}

func init() {
	addIdentityFlags(execCmd)
	rootCmd.AddCommand(execCmd)
}

func execOne(cmd *cobra.Command, args []string) error {
	id, err := identityFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, logger, err := setup(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	defer func() { _ = a.Close() }()

	if err := commands.Verify(ctx, a.db, id); err != nil {
		return err
	}

	res, ok := a.execute(ctx, strings.Join(args, " "), id)
	if !ok {
		return fmt.Errorf("empty command")
	}
	if res.Error != nil {
		return res.Error
	}
	fmt.Fprintln(cmd.OutOrStdout(), res.Message)
	return nil
}
