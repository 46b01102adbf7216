package daemon

import (
	"context"
	"log/slog"
	"os"

	"github.com/mvasilyev/jean-claude-stopkran/internal/config"
	"github.com/mvasilyev/jean-claude-stopkran/internal/coordinator"
	"github.com/mvasilyev/jean-claude-stopkran/internal/observe"
	"github.com/mvasilyev/jean-claude-stopkran/internal/pending"
	"github.com/mvasilyev/jean-claude-stopkran/internal/remind"
	"github.com/mvasilyev/jean-claude-stopkran/internal/security"
	"github.com/mvasilyev/jean-claude-stopkran/internal/telegram"
)

// Build assembles the full daemon from the config store. Components are
// registered in dependency order: tracing and the bot come up before the
// socket listener so the first request already has an approver path.
func Build(store *config.Store, logger *slog.Logger) (*App, error) {
	cfg := store.Config()
	app := NewApp(logger)

	if cfg.Trace.Endpoint != "" {
		app.Add("tracing", &tracingComponent{
			endpoint: cfg.Trace.Endpoint,
			insecure: cfg.Trace.Insecure,
		})
	}

	registry := pending.New()

	var metrics coordinator.Metrics = coordinator.NopMetrics{}
	var promMetrics *observe.Metrics
	if cfg.Observe.Bind != "" {
		promMetrics = observe.NewMetrics(registry.UndecidedCount)
		metrics = promMetrics
	}

	client := telegram.NewClient(cfg.Token, cfg.Telegram.APIURL)
	bot := telegram.NewBot(client, store, logger.With("component", "telegram"), cfg.Telegram.PollingTimeout)

	vocab := coordinator.NewVocabulary(cfg.Vocabulary.Allow, cfg.Vocabulary.Deny)
	arbiter := coordinator.NewArbiter(registry, bot, vocab, logger.With("component", "arbiter"), metrics)
	bot.Bind(arbiter)

	handler := coordinator.NewHandler(registry, bot, bot, cfg.Timeout, cfg.ReadTimeout,
		logger.With("component", "handler"), metrics)
	listener := coordinator.NewListener(cfg.Socket, handler, logger.With("component", "listener"))

	app.Add("telegram", bot)
	app.Add("listener", listener)

	if cfg.Observe.Bind != "" {
		app.Add("observe", observe.NewServer(cfg.Observe.Bind, promMetrics,
			registry.UndecidedCount, logger.With("component", "observe")))
	}

	if cfg.Remind.Schedule != "" {
		scheduler := remind.NewScheduler(logger.With("component", "remind"))
		job := remind.NewStaleJob(arbiter, bot, cfg.Remind.Schedule, cfg.Remind.MinAge,
			logger.With("component", "remind"))
		if err := scheduler.RegisterJob(job); err != nil {
			return nil, err
		}
		app.Add("reminder", scheduler)
	}

	return app, nil
}

// NewLogger builds the daemon logger. The bot token is registered as a
// redaction literal so it never reaches the log output.
func NewLogger(token string, level slog.Level) *slog.Logger {
	redactor := security.NewRedactor()
	if token != "" {
		redactor.AddLiteral(token)
	}
	inner := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(security.NewRedactingHandler(inner, redactor))
}

// tracingComponent defers exporter construction to Start so a dead OTLP
// endpoint fails the daemon at startup instead of silently dropping spans.
type tracingComponent struct {
	endpoint string
	insecure bool
	tracing  *observe.Tracing
}

func (t *tracingComponent) Start(ctx context.Context) error {
	tr, err := observe.SetupTracing(ctx, t.endpoint, t.insecure)
	if err != nil {
		return err
	}
	t.tracing = tr
	return nil
}

func (t *tracingComponent) Stop(ctx context.Context) error {
	if t.tracing == nil {
		return nil
	}
	return t.tracing.Shutdown(ctx)
}
