// Package stats assembles read-only snapshots of the user's progress from
// the weight, goal and settings stores. Nothing here owns state.
package stats

import (
	"fmt"
	"math"

	"github.com/mward/vitalog/internal/model"
	"github.com/mward/vitalog/internal/recommend"
	"github.com/mward/vitalog/internal/store"
)

type Service struct {
	weights  *store.WeightStore
	goals    *store.GoalStore
	settings *store.SettingsStore
}

func New(weights *store.WeightStore, goals *store.GoalStore, settings *store.SettingsStore) *Service {
	return &Service{weights: weights, goals: goals, settings: settings}
}

// Snapshot is the dashboard summary: latest weight, BMI, goal and progress.
type Snapshot struct {
	Settings      *model.Settings `json:"settings"`
	CurrentWeight *float64        `json:"currentWeight"`
	BMI           *float64        `json:"bmi,omitempty"`
	Goal          *model.Goal     `json:"goal"`
	Progress      *float64        `json:"progress,omitempty"`
}

// Snapshot builds the current stats view.
func (s *Service) Snapshot() (*Snapshot, error) {
	settings, err := s.settings.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	snap := &Snapshot{Settings: settings}

	latest, err := s.weights.Latest()
	if err != nil {
		return nil, fmt.Errorf("load latest weight: %w", err)
	}
	if latest != nil {
		w := latest.Weight
		snap.CurrentWeight = &w
	}

	if snap.CurrentWeight != nil && settings.UserHeight != nil {
		bmi := computeBMI(*snap.CurrentWeight, settings.WeightUnit, *settings.UserHeight, settings.HeightUnit)
		snap.BMI = &bmi
	}

	goal, err := s.goals.Latest()
	if err != nil {
		return nil, fmt.Errorf("load goal: %w", err)
	}
	snap.Goal = goal

	if snap.CurrentWeight != nil && goal != nil && goal.StartWeight != nil && goal.TargetWeight != nil {
		totalToLose := *goal.StartWeight - *goal.TargetWeight
		lostSoFar := *goal.StartWeight - *snap.CurrentWeight
		progress := 0.0
		if totalToLose > 0 {
			progress = lostSoFar / totalToLose * 100
		}
		snap.Progress = &progress
	}

	return snap, nil
}

// UserContext returns the prompt context for a session kind: weight figures
// for fasting, the sleep target for sleep. Absent data stays absent.
func (s *Service) UserContext(kind model.SessionKind) (recommend.UserContext, error) {
	var uc recommend.UserContext

	switch kind {
	case model.KindFasting:
		settings, err := s.settings.Get()
		if err != nil {
			return uc, fmt.Errorf("load settings: %w", err)
		}
		uc.WeightUnit = settings.WeightUnit

		latest, err := s.weights.Latest()
		if err != nil {
			return uc, fmt.Errorf("load latest weight: %w", err)
		}
		if latest != nil {
			w := latest.Weight
			uc.CurrentWeight = &w
		}

		goal, err := s.goals.Latest()
		if err != nil {
			return uc, fmt.Errorf("load goal: %w", err)
		}
		if goal != nil && goal.TargetWeight != nil {
			uc.GoalWeight = goal.TargetWeight
		}
	case model.KindSleep:
		goal, err := s.goals.LatestSleepGoal()
		if err != nil {
			return uc, fmt.Errorf("load sleep goal: %w", err)
		}
		if goal != nil {
			h := goal.TargetHours
			uc.TargetSleepHours = &h
		}
	}

	return uc, nil
}

func computeBMI(weight float64, weightUnit string, height float64, heightUnit string) float64 {
	weightKg := weight
	if weightUnit == "lbs" {
		weightKg = weight * 0.453592
	}

	var heightM float64
	if heightUnit == "inches" {
		heightM = height * 0.0254
	} else {
		heightM = height / 100
	}

	bmi := weightKg / (heightM * heightM)
	return math.Round(bmi*10) / 10
}
