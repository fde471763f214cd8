// Package recommend turns closed session notes into AI coaching text without
// blocking the request that closed the session. Enqueue writes a durable
// pending record and returns; a background goroutine drives each job through
// processing to a terminal completed or failed state.
package recommend

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/store"
)

const (
	queueSize      = 64
	defaultTimeout = 90 * time.Second
)

// Generator is the external text-generation collaborator: prompt in, free
// text out, fallible.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// ContextProvider supplies the optional user snapshot folded into prompts.
type ContextProvider interface {
	UserContext(kind model.SessionKind) (UserContext, error)
}

// Worker schedules and executes recommendation jobs. Jobs are at-most-once,
// best-effort: a failure is terminal and is never retried automatically.
type Worker struct {
	mu       sync.RWMutex
	recs     *store.RecommendationStore
	sessions *store.SessionStore
	provider ContextProvider
	gen      Generator
	timeout  time.Duration
	notify   func(model.Recommendation)
	logger   *slog.Logger
	jobs     chan int64
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWorker creates a recommendation worker. notify, when non-nil, is called
// with the job record after every status change; timeout bounds each
// generation call (0 means the default).
func NewWorker(recs *store.RecommendationStore, sessions *store.SessionStore, provider ContextProvider, gen Generator, timeout time.Duration, notify func(model.Recommendation), logger *slog.Logger) *Worker {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Worker{
		recs:     recs,
		sessions: sessions,
		provider: provider,
		gen:      gen,
		timeout:  timeout,
		notify:   notify,
		logger:   logger,
		jobs:     make(chan int64, queueSize),
	}
}

// Enqueue records a pending job for the given session and returns its id
// immediately. The actual generation happens on the worker goroutine after
// the caller has moved on.
func (w *Worker) Enqueue(kind model.SessionKind, sessionID int64) (int64, error) {
	job, err := w.recs.Create(kind, sessionID)
	if err != nil {
		return 0, fmt.Errorf("create recommendation job: %w", err)
	}

	// Announce pending before the worker can pick the job up, so status
	// events arrive in lifecycle order.
	w.broadcast(*job)

	select {
	case w.jobs <- job.ID:
	default:
		// Queue full. The durable pending row is picked up on next start.
		w.logger.Warn("recommendation queue full, job deferred", "job_id", job.ID)
	}
	return job.ID, nil
}

// Start resumes pending jobs from a previous run and begins the worker loop.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	ctx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.mu.Unlock()

	pending, err := w.recs.ListPending()
	if err != nil {
		w.logger.Error("list pending recommendations", "error", err)
	}
	for _, job := range pending {
		select {
		case w.jobs <- job.ID:
		default:
		}
	}

	go func() {
		defer close(w.done)
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-w.jobs:
				w.process(ctx, id)
			}
		}
	}()
}

// Stop halts the worker goroutine. A job mid-generation finishes or times
// out; queued jobs stay pending in the store.
func (w *Worker) Stop() {
	w.mu.RLock()
	cancel := w.cancel
	done := w.done
	w.mu.RUnlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (w *Worker) process(ctx context.Context, id int64) {
	if err := w.recs.MarkProcessing(id); err != nil {
		// Already claimed or gone; nothing to do.
		w.logger.Debug("skip recommendation job", "job_id", id, "error", err)
		return
	}
	if job, err := w.recs.GetByID(id); err == nil && job != nil {
		w.broadcast(*job)
	}

	text, err := w.generate(ctx, id)
	if err != nil {
		w.fail(id, err.Error())
		return
	}

	if err := w.recs.MarkCompleted(id, text); err != nil {
		w.logger.Error("mark recommendation completed", "job_id", id, "error", err)
		return
	}
	w.logger.Info("recommendation completed", "job_id", id)
	if job, err := w.recs.GetByID(id); err == nil && job != nil {
		w.broadcast(*job)
	}
}

func (w *Worker) generate(ctx context.Context, id int64) (string, error) {
	job, err := w.recs.GetByID(id)
	if err != nil {
		return "", fmt.Errorf("load job: %w", err)
	}
	if job == nil {
		return "", fmt.Errorf("job %d not found", id)
	}

	sess, err := w.sessions.GetByID(job.SessionKind, job.SessionID)
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	if sess == nil {
		return "", fmt.Errorf("session %s/%d not found", job.SessionKind, job.SessionID)
	}

	var uc UserContext
	if w.provider != nil {
		uc, err = w.provider.UserContext(job.SessionKind)
		if err != nil {
			// Context is optional flavor; generate without it.
			w.logger.Warn("user context unavailable", "job_id", id, "error", err)
			uc = UserContext{}
		}
	}

	prompt := BuildPrompt(sess, uc)

	gctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	text, err := w.gen.Generate(gctx, prompt)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (w *Worker) fail(id int64, reason string) {
	if err := w.recs.MarkFailed(id, reason); err != nil {
		w.logger.Error("mark recommendation failed", "job_id", id, "error", err)
		return
	}
	w.logger.Warn("recommendation failed", "job_id", id, "reason", reason)
	if job, err := w.recs.GetByID(id); err == nil && job != nil {
		w.broadcast(*job)
	}
}

func (w *Worker) broadcast(job model.Recommendation) {
	if w.notify != nil {
		w.notify(job)
	}
}
