package custom

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/sightlab/visionbench/internal/result"
	"github.com/sightlab/visionbench/internal/sandbox"
	"github.com/sightlab/visionbench/internal/scoring"
)

type FailureKind string

const (
	FailureTimeout  FailureKind = "timeout"
	FailureOOM      FailureKind = "oom"
	FailureExit     FailureKind = "exit"
	FailureSentinel FailureKind = "sentinel"
)

// ScriptError reports why a custom scoring script failed. Message is safe to
// show participants; the captured output travels separately in the log lines.
type ScriptError struct {
	Kind     FailureKind
	Message  string
	ExitCode int
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("scoring script failed (%s): %s", e.Kind, e.Message)
}

type Opts struct {
	ScriptPath      string
	PredictionPath  string
	GroundTruthPath string
	Image           string
	Timeout         time.Duration
	CPULimit        float64
	MemoryLimit     int64 // bytes
}

// interpreterFor picks the container command for the script by extension.
func interpreterFor(scriptPath string) []string {
	switch filepath.Ext(scriptPath) {
	case ".py":
		return []string{"python3", "/scoring/script"}
	default:
		return []string{"sh", "/scoring/script"}
	}
}

// Run executes an organizer-supplied scoring script inside an isolated
// container: no network, read-only inputs, CPU/memory limits, and a hard
// wall-clock timeout. The script reads the mounted prediction and ground
// truth files and prints its result using the SCORE sentinel protocol.
func Run(ctx context.Context, opts *Opts) (*scoring.Outcome, error) {
	scriptAbs, err := filepath.Abs(opts.ScriptPath)
	if err != nil {
		return nil, fmt.Errorf("resolving script path: %w", err)
	}
	predAbs, err := filepath.Abs(opts.PredictionPath)
	if err != nil {
		return nil, fmt.Errorf("resolving prediction path: %w", err)
	}
	gtAbs, err := filepath.Abs(opts.GroundTruthPath)
	if err != nil {
		return nil, fmt.Errorf("resolving ground truth path: %w", err)
	}

	runRes, err := sandbox.Run(ctx, &sandbox.RunOpts{
		Image:   opts.Image,
		Command: interpreterFor(opts.ScriptPath),
		Env: map[string]string{
			"PREDICTION_PATH":   "/scoring/prediction.csv",
			"GROUND_TRUTH_PATH": "/scoring/ground_truth.csv",
		},
		Mounts: []sandbox.Mount{
			{Source: scriptAbs, Target: "/scoring/script", ReadOnly: true},
			{Source: predAbs, Target: "/scoring/prediction.csv", ReadOnly: true},
			{Source: gtAbs, Target: "/scoring/ground_truth.csv", ReadOnly: true},
		},
		WorkDir:     "/scoring",
		Timeout:     opts.Timeout,
		CPULimit:    opts.CPULimit,
		MemoryLimit: opts.MemoryLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("running scoring script: %w", err)
	}

	out := &scoring.Outcome{Metrics: map[string]float64{}}
	captureOutput(out, runRes)

	if runRes.TimedOut {
		return out, &ScriptError{
			Kind:    FailureTimeout,
			Message: fmt.Sprintf("script exceeded the %s time limit", opts.Timeout),
		}
	}
	if runRes.OOMKill {
		return out, &ScriptError{
			Kind:     FailureOOM,
			Message:  fmt.Sprintf("script exceeded the %d MB memory limit", opts.MemoryLimit/(1<<20)),
			ExitCode: runRes.ExitCode,
		}
	}
	if runRes.ExitCode != 0 {
		return out, &ScriptError{
			Kind:     FailureExit,
			Message:  fmt.Sprintf("script exited with status %d", runRes.ExitCode),
			ExitCode: runRes.ExitCode,
		}
	}

	score, metrics, err := ParseSentinel(runRes.Stdout)
	if err != nil {
		return out, err
	}
	out.Primary = score
	for k, v := range metrics {
		out.Metrics[k] = v
	}
	return out, nil
}

// captureOutput folds both streams into the participant-visible log, keeping
// them labeled so operators can tell them apart.
func captureOutput(out *scoring.Outcome, runRes *sandbox.RunResult) {
	for _, line := range splitOutput(runRes.Stdout) {
		out.Logs = append(out.Logs, result.LogLine{Level: result.LevelInfo, Message: "stdout: " + line})
	}
	for _, line := range splitOutput(runRes.Stderr) {
		out.Logs = append(out.Logs, result.LogLine{Level: result.LevelWarning, Message: "stderr: " + line})
	}
}

func splitOutput(s string) []string {
	s = strings.TrimRight(s, "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}
