package recommend

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/mward/vitalog/internal/database"
	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/store"
)

type fakeGenerator struct {
	text  string
	err   error
	block bool // wait for ctx cancellation instead of returning
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return f.text, nil
}

func setupWorker(t *testing.T, gen Generator, timeout time.Duration) (*Worker, *store.RecommendationStore, *store.SessionStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	recs := store.NewRecommendationStore(db)
	sessions := store.NewSessionStore(db)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(recs, sessions, nil, gen, timeout, nil, logger)
	return w, recs, sessions
}

func closedStoredSession(t *testing.T, sessions *store.SessionStore, kind model.SessionKind, notes string) *model.Session {
	t.Helper()
	start := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	var target *float64
	if kind == model.KindFasting {
		target = ptr(16.0)
	}
	sess, err := sessions.Create(kind, start, target)
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	closed, err := sessions.Close(kind, sess.ID, start.Add(8*time.Hour), 8.0, ptr(notes))
	if err != nil {
		t.Fatalf("close session: %v", err)
	}
	return closed
}

func waitForTerminal(t *testing.T, recs *store.RecommendationStore, id int64) *model.Recommendation {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		job, err := recs.GetByID(id)
		if err != nil {
			t.Fatalf("get job: %v", err)
		}
		if job != nil && job.Status.Terminal() {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %d never reached a terminal state", id)
	return nil
}

func TestEnqueueIsDurableBeforeWorkerRuns(t *testing.T) {
	w, recs, sessions := setupWorker(t, &fakeGenerator{text: "rest more"}, time.Second)

	sess := closedStoredSession(t, sessions, model.KindSleep, "felt great")

	// Worker not started: the job must still land as a pending row.
	id, err := w.Enqueue(model.KindSleep, sess.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job, err := recs.GetByID(id)
	if err != nil {
		t.Fatalf("get job: %v", err)
	}
	if job == nil || job.Status != model.StatusPending {
		t.Fatalf("job = %+v, want pending row", job)
	}
}

func TestWorkerCompletesJob(t *testing.T) {
	w, recs, sessions := setupWorker(t, &fakeGenerator{text: "keep a consistent bedtime"}, time.Second)

	sess := closedStoredSession(t, sessions, model.KindSleep, "felt great")

	w.Start(context.Background())
	defer w.Stop()

	id, err := w.Enqueue(model.KindSleep, sess.ID)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job := waitForTerminal(t, recs, id)
	if job.Status != model.StatusCompleted {
		t.Fatalf("status = %q, want completed (error: %v)", job.Status, job.ErrorMessage)
	}
	if job.Recommendation == nil || *job.Recommendation != "keep a consistent bedtime" {
		t.Errorf("recommendation = %v, want generator output", job.Recommendation)
	}
	if job.CompletedAt == nil {
		t.Error("completed_at should be stamped")
	}
}

func TestWorkerFailsJobOnGeneratorError(t *testing.T) {
	w, recs, sessions := setupWorker(t, &fakeGenerator{err: errors.New("model not loaded")}, time.Second)

	sess := closedStoredSession(t, sessions, model.KindFasting, "tough stretch")

	w.Start(context.Background())
	defer w.Stop()

	id, _ := w.Enqueue(model.KindFasting, sess.ID)

	job := waitForTerminal(t, recs, id)
	if job.Status != model.StatusFailed {
		t.Fatalf("status = %q, want failed", job.Status)
	}
	if job.ErrorMessage == nil || *job.ErrorMessage == "" {
		t.Error("failed job must record a non-empty error message")
	}
	if job.Recommendation != nil {
		t.Error("failed job must not carry a recommendation")
	}

	// The session itself is untouched by the failure.
	got, err := sessions.GetByID(model.KindFasting, sess.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got == nil || !got.Completed {
		t.Error("session should remain closed and completed")
	}
}

func TestWorkerTimesOutSlowGeneration(t *testing.T) {
	w, recs, sessions := setupWorker(t, &fakeGenerator{block: true}, 50*time.Millisecond)

	sess := closedStoredSession(t, sessions, model.KindSleep, "restless")

	w.Start(context.Background())
	defer w.Stop()

	id, _ := w.Enqueue(model.KindSleep, sess.ID)

	job := waitForTerminal(t, recs, id)
	if job.Status != model.StatusFailed {
		t.Fatalf("status = %q, want failed after timeout", job.Status)
	}
	if job.ErrorMessage == nil || !strings.Contains(*job.ErrorMessage, "context deadline exceeded") {
		t.Errorf("error_message = %v, want deadline error", job.ErrorMessage)
	}
}

func TestWorkerResumesPendingJobsOnStart(t *testing.T) {
	w, recs, sessions := setupWorker(t, &fakeGenerator{text: "stay hydrated"}, time.Second)

	sess := closedStoredSession(t, sessions, model.KindFasting, "long fast")

	// Simulate a job left pending by a previous run.
	job, err := recs.Create(model.KindFasting, sess.ID)
	if err != nil {
		t.Fatalf("create pending job: %v", err)
	}

	w.Start(context.Background())
	defer w.Stop()

	got := waitForTerminal(t, recs, job.ID)
	if got.Status != model.StatusCompleted {
		t.Fatalf("status = %q, want completed after resume", got.Status)
	}
}

func TestWorkerFailsJobForMissingSession(t *testing.T) {
	w, recs, _ := setupWorker(t, &fakeGenerator{text: "unused"}, time.Second)

	w.Start(context.Background())
	defer w.Stop()

	id, err := w.Enqueue(model.KindSleep, 9999)
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	job := waitForTerminal(t, recs, id)
	if job.Status != model.StatusFailed {
		t.Fatalf("status = %q, want failed for missing session", job.Status)
	}
}

func TestWorkerNotifiesOnStatusChanges(t *testing.T) {
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	recs := store.NewRecommendationStore(db)
	sessions := store.NewSessionStore(db)

	events := make(chan model.RecommendationStatus, 8)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := NewWorker(recs, sessions, nil, &fakeGenerator{text: "eat slowly"}, time.Second, func(job model.Recommendation) {
		events <- job.Status
	}, logger)

	sess := closedStoredSession(t, sessions, model.KindFasting, "notes")

	w.Start(context.Background())
	defer w.Stop()

	if _, err := w.Enqueue(model.KindFasting, sess.ID); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	want := []model.RecommendationStatus{model.StatusPending, model.StatusProcessing, model.StatusCompleted}
	for _, status := range want {
		select {
		case got := <-events:
			if got != status {
				t.Fatalf("status event = %q, want %q", got, status)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %q event", status)
		}
	}
}

func TestWorkerStopIsIdempotentWithoutStart(t *testing.T) {
	w, _, _ := setupWorker(t, &fakeGenerator{}, time.Second)
	w.Stop() // must not panic or block
}
