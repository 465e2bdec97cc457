package commands

import (
	"context"

	"github.com/buildtall-systems/petstock/internal/db"
	"github.com/buildtall-systems/petstock/internal/lifecycle"
)

// Env holds what commands need to run.
type Env struct {
	DB     *db.DB
	Engine *lifecycle.Engine
}

// Result holds the response from a command execution.
type Result struct {
	Message string
	Error   error
}

// Execute runs the command for id and returns a result. Callers check CanExecute first;
// Execute checks it again so a forgotten check cannot escalate.
func Execute(ctx context.Context, env Env, cmd *Command, id Identity) Result {
	if err := CanExecute(cmd, id); err != nil {
		return Result{Error: err}
	}

	switch cmd.Name {
	// Customer commands
	case CmdNew:
		return NewOrderCmd(ctx, env, id, cmd.Args)

	case CmdAdd:
		return AddItemCmd(ctx, env, id, cmd.Args)

	case CmdRemove:
		return RemoveItemCmd(ctx, env, id, cmd.Args)

	case CmdConfirm:
		return ConfirmCmd(ctx, env, id, cmd.Args)

	case CmdCancel:
		return CancelCmd(ctx, env, id, cmd.Args)

	case CmdDelete:
		return DeleteCmd(ctx, env, id, cmd.Args)

	case CmdShow:
		return ShowCmd(ctx, env, id, cmd.Args)

	case CmdOrders:
		return OrdersCmd(ctx, env, id, cmd.Args)

	case CmdStock:
		return StockCmd(ctx, env, cmd.Args)

	case CmdHelp:
		return HelpCmd(id.Admin)

	// Admin commands
	case CmdStatus:
		return StatusCmd(ctx, env, cmd.Args)

	case CmdAddCustomer:
		return AddCustomerCmd(ctx, env, cmd.Args)

	case CmdCustomers:
		return CustomersCmd(ctx, env)

	case CmdAddProduct:
		return AddProductCmd(ctx, env, cmd.Args)

	case CmdRestock:
		return RestockCmd(ctx, env, cmd.Args)

	case CmdProducts:
		return ProductsCmd(ctx, env)

	case CmdActivate:
		return SetActiveCmd(ctx, env, cmd.Args, true)

	case CmdDeactivate:
		return SetActiveCmd(ctx, env, cmd.Args, false)

	default:
		return HelpCmd(id.Admin)
	}
}
