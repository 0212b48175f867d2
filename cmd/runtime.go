package cmd

import (
	"context"
	"fmt"

	"github.com/lance13c/replyctl/internal/browser"
	"github.com/lance13c/replyctl/internal/config"
	"github.com/lance13c/replyctl/internal/database"
	"github.com/lance13c/replyctl/internal/engine"
	"github.com/lance13c/replyctl/internal/logging"
	"github.com/lance13c/replyctl/internal/sink"
	"github.com/lance13c/replyctl/internal/templates"
)

// runtime is everything one browser session needs: Chrome, the engine and
// the stores it writes to.
type runtime struct {
	manager *browser.Manager
	engine  *engine.Engine
	db      *database.DB
	vars    *templates.Store
	output  *sink.Markdown
}

// openRuntime starts Chrome and wires the engine. Extra observers receive
// every engine event after the history recorder.
func openRuntime(ctx context.Context, cfg *config.Config, observers ...engine.Observer) (*runtime, error) {
	db, err := database.New(projectPath(cfg.Output.Database))
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	vars, err := templates.Open(projectPath(cfg.Output.Variables))
	if err != nil {
		db.Close()
		return nil, err
	}

	manager, err := browser.NewManager(ctx, cfg.BrowserOptions())
	if err != nil {
		db.Close()
		return nil, err
	}

	adapter := browser.NewChatAdapter(manager, cfg.Selectors)
	if cfg.Browser.VerifyDelay > 0 {
		adapter.VerifyDelay = cfg.Browser.VerifyDelay
	}

	output := sink.NewMarkdown(projectPath(cfg.Output.Dir))
	recorder := database.NewRecorder(db)

	all := append([]engine.Observer{logEvent, recorder.Observe}, observers...)
	eng, err := engine.New(adapter, cfg.EngineConfig(),
		engine.WithSink(output),
		engine.WithSanitizer(cfg.NewSanitizer()),
		engine.WithObserver(engine.Observers(all...)),
	)
	if err != nil {
		manager.Close()
		db.Close()
		return nil, err
	}

	return &runtime{
		manager: manager,
		engine:  eng,
		db:      db,
		vars:    vars,
		output:  output,
	}, nil
}

// acquire expands template variables and runs one acquisition.
func (r *runtime) acquire(ctx context.Context, prompt string) (engine.Outcome, error) {
	return r.engine.Acquire(ctx, r.vars.Expand(prompt))
}

func (r *runtime) Close() {
	r.manager.Close()
	if err := r.db.Close(); err != nil {
		logging.Warn("Failed to close history database: %v", err)
	}
}

func logEvent(ev engine.Event) {
	if ev.Kind == engine.EventPolling {
		logging.Debug("[%s] %s", ev.SessionID, ev.Describe())
		return
	}
	logging.Info("[%s] %s", ev.SessionID, ev.Describe())
}
