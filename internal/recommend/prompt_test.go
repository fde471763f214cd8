package recommend

import (
	"strings"
	"testing"
	"time"

	"github.com/mward/vitalog/internal/model"
)

func ptr[T any](v T) *T { return &v }

func closedSession(kind model.SessionKind) *model.Session {
	start := time.Date(2024, 1, 1, 20, 0, 0, 0, time.UTC)
	end := start.Add(16 * time.Hour)
	sess := &model.Session{
		ID:          1,
		Kind:        kind,
		StartTime:   start,
		EndTime:     &end,
		ActualHours: ptr(16.0),
		Completed:   true,
	}
	if kind == model.KindFasting {
		sess.TargetHours = ptr(16.0)
	}
	return sess
}

func TestBuildPromptFasting(t *testing.T) {
	sess := closedSession(model.KindFasting)
	sess.Notes = ptr("  felt hungry around noon  ")

	prompt := BuildPrompt(sess, UserContext{
		CurrentWeight: ptr(180.0),
		GoalWeight:    ptr(170.0),
		WeightUnit:    "kg",
	})

	for _, want := range []string{
		"Session type: intermittent fasting",
		"Target duration: 16.0 hours",
		"Actual duration: 16.0 hours",
		"Started: 2024-01-01T20:00:00Z",
		"Ended: 2024-01-02T12:00:00Z",
		"User notes: felt hungry around noon",
		"Current weight: 180.0 kg",
		"Goal weight: 170.0 kg",
		"Respond with 3-4 short, specific recommendations.",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q\n%s", want, prompt)
		}
	}
}

func TestBuildPromptSleep(t *testing.T) {
	sess := closedSession(model.KindSleep)
	sess.ActualHours = ptr(7.5)

	prompt := BuildPrompt(sess, UserContext{TargetSleepHours: ptr(8.0)})

	if !strings.Contains(prompt, "Session type: sleep") {
		t.Error("prompt missing sleep session type")
	}
	if !strings.Contains(prompt, "Hours slept: 7.5") {
		t.Error("prompt missing hours slept")
	}
	if !strings.Contains(prompt, "Target sleep: 8.0 hours per night") {
		t.Error("prompt missing target sleep")
	}
	if strings.Contains(prompt, "Target duration") {
		t.Error("sleep prompt must not carry fasting fields")
	}
}

func TestBuildPromptOmitsAbsentContext(t *testing.T) {
	sess := closedSession(model.KindFasting)

	prompt := BuildPrompt(sess, UserContext{})

	for _, banned := range []string{"Current weight", "Goal weight", "User notes", "Target sleep"} {
		if strings.Contains(prompt, banned) {
			t.Errorf("prompt should omit %q when absent\n%s", banned, prompt)
		}
	}
}

func TestBuildPromptDefaultsWeightUnit(t *testing.T) {
	sess := closedSession(model.KindFasting)

	prompt := BuildPrompt(sess, UserContext{CurrentWeight: ptr(180.0)})

	if !strings.Contains(prompt, "Current weight: 180.0 lbs") {
		t.Errorf("prompt should default to lbs\n%s", prompt)
	}
}
