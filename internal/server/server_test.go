package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mward/vitalog/internal/database"
	"github.com/mward/vitalog/internal/model"
)

type stubGenerator struct {
	text string
	err  error
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.text, nil
}

func setupServer(t *testing.T, cfg Config) *httptest.Server {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := New(db, &stubGenerator{text: "eat more fiber"}, cfg, logger)

	srv.Worker().Start(context.Background())
	t.Cleanup(srv.Worker().Stop)

	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return ts
}

func doJSON(t *testing.T, method, url string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request: %v", err)
		}
	} else {
		buf.WriteString("{}")
	}

	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &decoded); err != nil {
			// List endpoints return arrays; callers decode those themselves.
			decoded = nil
		}
	}
	return resp, decoded
}

func TestHealthEndpoint(t *testing.T) {
	ts := setupServer(t, Config{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v, want status ok", body)
	}
}

func TestFastingSessionLifecycleOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/fasting/start", map[string]any{
		"start_time":   "2024-01-01T20:00:00Z",
		"target_hours": 16,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("start status = %d, want 201 (%v)", resp.StatusCode, body)
	}
	if body["kind"] != "fasting" {
		t.Errorf("kind = %v, want fasting", body["kind"])
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/fasting/current", nil)
	if resp.StatusCode != http.StatusOK || body == nil {
		t.Fatalf("current status = %d body = %v, want open session", resp.StatusCode, body)
	}

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/fasting/end", map[string]any{
		"end_time": "2024-01-02T12:00:00Z",
		"notes":    "felt hungry in the evening",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["success"] != true {
		t.Errorf("success = %v, want true", body["success"])
	}
	if body["actual_hours"] != 16.0 {
		t.Errorf("actual_hours = %v, want 16", body["actual_hours"])
	}
	recID, ok := body["recommendation_id"].(float64)
	if !ok {
		t.Fatalf("recommendation_id = %v, want a job id for a close with notes", body["recommendation_id"])
	}

	// The job settles to completed in the background.
	deadline := time.Now().Add(3 * time.Second)
	for {
		resp, body = doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/recommendations/%d", ts.URL, int64(recID)), nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("get job status = %d, want 200", resp.StatusCode)
		}
		status, _ := body["status"].(string)
		if model.RecommendationStatus(status).Terminal() {
			if status != string(model.StatusCompleted) {
				t.Fatalf("job status = %q, want completed (%v)", status, body)
			}
			if body["recommendation"] != "eat more fiber" {
				t.Errorf("recommendation = %v, want generator output", body["recommendation"])
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("job never settled, last status %q", status)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Closed means no current session anymore.
	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/fasting/current", nil)
	if resp.StatusCode != http.StatusOK || body != nil {
		t.Errorf("current after close = %v, want null", body)
	}
}

func TestEndWithoutNotesSkipsRecommendation(t *testing.T) {
	ts := setupServer(t, Config{})

	doJSON(t, http.MethodPost, ts.URL+"/api/sleep/start", map[string]any{
		"start_time": "2024-01-01T23:00:00Z",
	})
	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/sleep/end", map[string]any{
		"end_time": "2024-01-02T07:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["actual_hours"] != 8.0 {
		t.Errorf("actual_hours = %v, want 8", body["actual_hours"])
	}
	if body["recommendation_id"] != nil {
		t.Errorf("recommendation_id = %v, want null without notes", body["recommendation_id"])
	}
}

func TestEndWithNoActiveSessionIs404(t *testing.T) {
	ts := setupServer(t, Config{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/fasting/end", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404 (%v)", resp.StatusCode, body)
	}
}

func TestStartValidationOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{})

	// Fasting without a target duration.
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/fasting/start", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing target status = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/sleep/start", map[string]any{
		"start_time": "yesterday evening",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad timestamp status = %d, want 400", resp.StatusCode)
	}
}

func TestStrictModeConflictOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{StrictSessions: true})

	start := map[string]any{"start_time": "2024-01-01T23:00:00Z"}
	resp, _ := doJSON(t, http.MethodPost, ts.URL+"/api/sleep/start", start)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first start status = %d, want 201", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/sleep/start", start)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("second start status = %d, want 409", resp.StatusCode)
	}
}

func TestEndSessionByIDOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{})

	_, body := doJSON(t, http.MethodPost, ts.URL+"/api/fasting/start", map[string]any{
		"start_time":   "2024-01-01T08:00:00Z",
		"target_hours": 12,
	})
	id := int64(body["id"].(float64))

	url := fmt.Sprintf("%s/api/fasting/%d/end", ts.URL, id)
	resp, body := doJSON(t, http.MethodPatch, url, map[string]any{
		"end_time": "2024-01-01T20:00:00Z",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("end status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["actual_hours"] != 12.0 {
		t.Errorf("actual_hours = %v, want 12", body["actual_hours"])
	}

	// Already closed: closing again by id is a 404.
	resp, _ = doJSON(t, http.MethodPatch, url, map[string]any{
		"end_time": "2024-01-01T21:00:00Z",
	})
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("second end status = %d, want 404", resp.StatusCode)
	}
}

func TestRecommendationListFiltersOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{})

	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/recommendations?status=bogus", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad status filter = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/recommendations?type=nap", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad type filter = %d, want 400", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/recommendations?status=pending&type=fasting", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("valid filters = %d, want 200", resp.StatusCode)
	}
}

func TestWeightAndStatsOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{})

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/weight", map[string]any{
		"weight": 180.5,
		"date":   "2024-01-15",
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create weight status = %d, want 201 (%v)", resp.StatusCode, body)
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/weight", map[string]any{"weight": -5})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("negative weight status = %d, want 400", resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodGet, ts.URL+"/api/stats", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("stats status = %d, want 200", resp.StatusCode)
	}
	if body["currentWeight"] != 180.5 {
		t.Errorf("currentWeight = %v, want 180.5", body["currentWeight"])
	}
}

func TestSettingsRoundTripOverHTTP(t *testing.T) {
	ts := setupServer(t, Config{})

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/settings", nil)
	if resp.StatusCode != http.StatusOK || body["weight_unit"] != "lbs" {
		t.Fatalf("default settings = %v (status %d), want lbs", body, resp.StatusCode)
	}

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/settings", map[string]any{
		"weight_unit": "kg",
		"height_unit": "cm",
		"user_height": 178,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update settings status = %d, want 200 (%v)", resp.StatusCode, body)
	}
	if body["weight_unit"] != "kg" {
		t.Errorf("weight_unit = %v, want kg", body["weight_unit"])
	}

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/settings", map[string]any{
		"weight_unit": "stone",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad unit status = %d, want 400", resp.StatusCode)
	}
}
