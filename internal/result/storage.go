package result

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

func CreateRunDir(baseDir string) (string, error) {
	runsDir := filepath.Join(baseDir, "runs")
	stamp := time.Now().UTC().Format("2006-01-02T15-04-05")
	runDir := filepath.Join(runsDir, stamp)
	runDir, err := filepath.Abs(runDir)
	if err != nil {
		return "", fmt.Errorf("resolving run dir: %w", err)
	}
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", fmt.Errorf("creating run dir: %w", err)
	}
	latest := filepath.Join(baseDir, "latest")
	os.Remove(latest)
	if err := os.Symlink(runDir, latest); err != nil {
		return "", fmt.Errorf("creating latest symlink: %w", err)
	}
	return runDir, nil
}

// AttemptDir returns the directory for one scoring attempt. Attempts are
// keyed by their uuid so retries never overwrite a prior result.
func AttemptDir(runDir, competition, submission, attemptID string) string {
	return filepath.Join(runDir, competition, submission, "attempt-"+attemptID)
}

func WriteScoreResult(attemptDir string, res *ScoreResult) error {
	if err := os.MkdirAll(attemptDir, 0o755); err != nil {
		return fmt.Errorf("creating attempt dir: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling result: %w", err)
	}
	return os.WriteFile(filepath.Join(attemptDir, "result.json"), data, 0o644)
}

func ReadScoreResult(path string) (*ScoreResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading result: %w", err)
	}
	var res ScoreResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("parsing result: %w", err)
	}
	return &res, nil
}
