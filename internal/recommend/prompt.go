package recommend

import (
	"fmt"
	"strings"
	"time"

	"github.com/mward/vitalog/internal/model"
)

const promptPreamble = `You are a supportive health and wellness coach. Based on the session details below, give brief, practical suggestions the user can act on. Stay encouraging, avoid medical diagnoses, and suggest seeing a professional for anything concerning.`

// UserContext is an optional read-only snapshot of the user's goals and
// preferences at generation time. Absent fields are simply left out of the
// prompt rather than rendered as placeholders.
type UserContext struct {
	CurrentWeight    *float64
	GoalWeight       *float64
	WeightUnit       string
	TargetSleepHours *float64
}

// BuildPrompt deterministically renders the coaching prompt for a closed
// session.
func BuildPrompt(sess *model.Session, uc UserContext) string {
	var b strings.Builder
	b.WriteString(promptPreamble)
	b.WriteString("\n\n")

	switch sess.Kind {
	case model.KindFasting:
		b.WriteString("Session type: intermittent fasting\n")
		if sess.TargetHours != nil {
			fmt.Fprintf(&b, "Target duration: %.1f hours\n", *sess.TargetHours)
		}
		if sess.ActualHours != nil {
			fmt.Fprintf(&b, "Actual duration: %.1f hours\n", *sess.ActualHours)
		}
	case model.KindSleep:
		b.WriteString("Session type: sleep\n")
		if sess.ActualHours != nil {
			fmt.Fprintf(&b, "Hours slept: %.1f\n", *sess.ActualHours)
		}
	}

	fmt.Fprintf(&b, "Started: %s\n", sess.StartTime.UTC().Format(time.RFC3339))
	if sess.EndTime != nil {
		fmt.Fprintf(&b, "Ended: %s\n", sess.EndTime.UTC().Format(time.RFC3339))
	}
	if sess.Notes != nil && strings.TrimSpace(*sess.Notes) != "" {
		fmt.Fprintf(&b, "User notes: %s\n", strings.TrimSpace(*sess.Notes))
	}

	switch sess.Kind {
	case model.KindFasting:
		unit := uc.WeightUnit
		if unit == "" {
			unit = "lbs"
		}
		if uc.CurrentWeight != nil {
			fmt.Fprintf(&b, "Current weight: %.1f %s\n", *uc.CurrentWeight, unit)
		}
		if uc.GoalWeight != nil {
			fmt.Fprintf(&b, "Goal weight: %.1f %s\n", *uc.GoalWeight, unit)
		}
	case model.KindSleep:
		if uc.TargetSleepHours != nil {
			fmt.Fprintf(&b, "Target sleep: %.1f hours per night\n", *uc.TargetSleepHours)
		}
	}

	b.WriteString("\nRespond with 3-4 short, specific recommendations.")
	return b.String()
}
