package cli

import (
	"context"
	"fmt"

	"github.com/buildtall-systems/petstock/internal/commands"
	"github.com/buildtall-systems/petstock/internal/config"
	"github.com/buildtall-systems/petstock/internal/db"
	"github.com/buildtall-systems/petstock/internal/lifecycle"
	"github.com/buildtall-systems/petstock/internal/notify"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// app wires the database, the notification dispatcher and the lifecycle engine.
type app struct {
	db         *db.DB
	dispatcher *notify.Dispatcher
	env        commands.Env
	logger     *zap.Logger
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	database, err := db.Open(cfg.Database.Path, db.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := database.Migrate(); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	logger.Debug("database ready", zap.String("path", cfg.Database.Path))

	pub, err := notify.NewPublisher(ctx, cfg.Notify, logger)
	if err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("creating %s publisher: %w", cfg.Notify.Transport, err)
	}

	dispatcher := notify.NewDispatcher(pub, logger, notify.DispatcherOptions(cfg.Notify)...)
	if err := dispatcher.Start(ctx); err != nil {
		_ = pub.Close()
		_ = database.Close()
		return nil, err
	}

	engine := lifecycle.New(database, dispatcher, logger, lifecycle.WithCancelReason(cfg.Orders.CancelReason))

	return &app{
		db:         database,
		dispatcher: dispatcher,
		env:        commands.Env{DB: database, Engine: engine},
		logger:     logger,
	}, nil
}

// Close drains pending notifications before closing the database.
func (a *app) Close() error {
	err := a.dispatcher.Close()
	stats := a.dispatcher.Stats()
	a.logger.Debug("notifications",
		zap.Uint64("delivered", stats.Delivered),
		zap.Uint64("failed", stats.Failed),
		zap.Uint64("dropped", stats.Dropped))
	return multierr.Combine(err, a.db.Close())
}

// execute runs one line of input as id.
func (a *app) execute(ctx context.Context, line string, id commands.Identity) (commands.Result, bool) {
	cmd := commands.Parse(line)
	if cmd == nil {
		return commands.Result{}, false
	}
	if !cmd.IsValid() {
		a.logger.Debug("unknown command", zap.String("command", cmd.Name))
	}

	a.logger.Debug("executing command",
		zap.String("command", cmd.Name),
		zap.Strings("args", cmd.Args),
		zap.Stringer("identity", id))

	res := commands.Execute(ctx, a.env, cmd, id)
	if res.Error != nil {
		a.logger.Debug("command error", zap.String("command", cmd.Name), zap.Error(res.Error))
	}
	return res, true
}
