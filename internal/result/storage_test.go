package result_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sightlab/visionbench/internal/result"
)

func TestCreateRunDir(t *testing.T) {
	base := t.TempDir()
	runDir, err := result.CreateRunDir(base)
	if err != nil {
		t.Fatalf("CreateRunDir failed: %v", err)
	}
	if _, err := os.Stat(runDir); err != nil {
		t.Errorf("run dir not created: %v", err)
	}
	latest, err := filepath.EvalSymlinks(filepath.Join(base, "latest"))
	if err != nil {
		t.Fatalf("latest symlink: %v", err)
	}
	resolved, _ := filepath.EvalSymlinks(runDir)
	if latest != resolved {
		t.Errorf("latest points to %s, want %s", latest, resolved)
	}
}

func TestWriteReadScoreResult(t *testing.T) {
	runDir := t.TempDir()
	res := &result.ScoreResult{
		AttemptID:   "a1b2",
		Competition: "birds",
		Submission:  "team-7",
		Status:      result.StatusSuccess,
		PublicScore: 0.75,
		Metrics:     map[string]float64{"accuracy": 0.75},
		Logs: []result.LogLine{
			{Level: result.LevelInfo, Message: "started scoring"},
		},
	}

	dir := result.AttemptDir(runDir, res.Competition, res.Submission, res.AttemptID)
	if err := result.WriteScoreResult(dir, res); err != nil {
		t.Fatalf("WriteScoreResult failed: %v", err)
	}

	got, err := result.ReadScoreResult(filepath.Join(dir, "result.json"))
	if err != nil {
		t.Fatalf("ReadScoreResult failed: %v", err)
	}
	if got.PublicScore != 0.75 {
		t.Errorf("public score: got %f, want 0.75", got.PublicScore)
	}
	if got.Status != result.StatusSuccess {
		t.Errorf("status: got %q, want success", got.Status)
	}
	if len(got.Logs) != 1 || got.Logs[0].Message != "started scoring" {
		t.Errorf("logs did not round trip: %+v", got.Logs)
	}
}

func TestAttemptDirIsPerAttempt(t *testing.T) {
	a := result.AttemptDir("/runs/x", "comp", "sub", "attempt1")
	b := result.AttemptDir("/runs/x", "comp", "sub", "attempt2")
	if a == b {
		t.Error("different attempts must not share a directory")
	}
}

func TestReadScoreResultMissing(t *testing.T) {
	if _, err := result.ReadScoreResult(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Error("expected error for missing result file")
	}
}
