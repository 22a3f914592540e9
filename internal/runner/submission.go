package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/custom"
	"github.com/sightlab/visionbench/internal/dataset"
	"github.com/sightlab/visionbench/internal/result"
	"github.com/sightlab/visionbench/internal/scoring"
)

type SubmissionOpts struct {
	Competition    *config.Competition
	Limits         config.Limits
	Sandbox        config.Sandbox
	SubmissionID   string
	PredictionPath string
	RunDir         string
}

// ScoreSubmission runs one scoring attempt end to end. It always returns a
// terminal ScoreResult: engine errors and panics become Failed results with a
// sanitized participant-facing message, never a crash of the calling worker.
func ScoreSubmission(ctx context.Context, opts *SubmissionOpts) *result.ScoreResult {
	res := &result.ScoreResult{
		AttemptID:   uuid.NewString(),
		Competition: opts.Competition.ID,
		Submission:  opts.SubmissionID,
		Status:      result.StatusRunning,
	}
	start := time.Now()
	res.AddLog(result.LevelInfo, "started scoring")

	defer func() {
		if r := recover(); r != nil {
			log.Printf("panic scoring %s/%s: %v\n%s", res.Competition, res.Submission, r, debug.Stack())
			fail(res, &result.ErrorDetail{
				Kind:     "system",
				Message:  "internal error while scoring; the operators have been notified",
				Internal: fmt.Sprintf("panic: %v\n%s", r, debug.Stack()),
			})
		}
		res.DurationS = int(time.Since(start).Seconds())
		res.ScoredAt = time.Now().UTC()
		if opts.RunDir != "" {
			dir := result.AttemptDir(opts.RunDir, res.Competition, res.Submission, res.AttemptID)
			if err := result.WriteScoreResult(dir, res); err != nil {
				log.Printf("warning: writing result for %s/%s: %v", res.Competition, res.Submission, err)
			}
		}
	}()

	if _, err := os.Stat(opts.PredictionPath); err != nil {
		fail(res, classify(fmt.Errorf("prediction file unreadable: %w", err)))
		return res
	}

	// Public score.
	publicOut, err := scoreAgainst(ctx, opts, opts.Competition.PublicGroundTruth)
	if publicOut != nil {
		res.Logs = append(res.Logs, publicOut.Logs...)
	}
	if err != nil {
		fail(res, classify(err))
		return res
	}
	res.PublicScore = publicOut.Primary
	res.Metrics = publicOut.Metrics
	res.AddLog(result.LevelInfo, fmt.Sprintf("scoring completed, score: %.6f", res.PublicScore))

	// Private score, when the competition defines a held-out split. Its log
	// lines stay out of the participant-visible log.
	if opts.Competition.PrivateGroundTruth != "" {
		privateOut, err := scoreAgainst(ctx, opts, opts.Competition.PrivateGroundTruth)
		if err != nil {
			log.Printf("warning: private scoring failed for %s/%s: %v", res.Competition, res.Submission, err)
			fail(res, classify(err))
			return res
		}
		res.PrivateScore = privateOut.Primary
		res.HasPrivate = true
	}

	res.Status = result.StatusSuccess
	return res
}

func scoreAgainst(ctx context.Context, opts *SubmissionOpts, groundTruthPath string) (*scoring.Outcome, error) {
	comp := opts.Competition
	if comp.TaskType == config.TaskCustom {
		return custom.Run(ctx, &custom.Opts{
			ScriptPath:      comp.ScoringScript,
			PredictionPath:  opts.PredictionPath,
			GroundTruthPath: groundTruthPath,
			Image:           comp.ScriptImage,
			Timeout:         time.Duration(comp.ScriptTimeoutSec) * time.Second,
			CPULimit:        opts.Sandbox.CPULimit,
			MemoryLimit:     opts.Sandbox.MemoryLimitMB * (1 << 20),
		})
	}

	engine, err := scoring.ForCompetition(comp, opts.Limits)
	if err != nil {
		return nil, err
	}
	return engine.Score(ctx, opts.PredictionPath, groundTruthPath)
}

func fail(res *result.ScoreResult, detail *result.ErrorDetail) {
	// Terminal states are written once; a late panic must not overwrite an
	// already-failed result.
	if res.Status == result.StatusFailed || res.Status == result.StatusSuccess {
		return
	}
	res.Status = result.StatusFailed
	res.Error = detail
	res.AddLog(result.LevelError, detail.Message)
}

// classify maps engine errors onto the participant-facing taxonomy. Anything
// unrecognized is a system error whose detail stays operator-side.
func classify(err error) *result.ErrorDetail {
	var verr *dataset.ValidationError
	if errors.As(err, &verr) {
		return &result.ErrorDetail{Kind: "validation", Message: verr.Error()}
	}
	var merr *scoring.MetricError
	if errors.As(err, &merr) {
		return &result.ErrorDetail{Kind: "metric", Message: merr.Error()}
	}
	var serr *custom.ScriptError
	if errors.As(err, &serr) {
		return &result.ErrorDetail{Kind: "script", Message: serr.Error()}
	}
	return &result.ErrorDetail{
		Kind:     "system",
		Message:  "scoring failed due to a system error; please retry or contact the organizers",
		Internal: err.Error(),
	}
}
