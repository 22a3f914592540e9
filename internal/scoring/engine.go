package scoring

import (
	"context"
	"fmt"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/dataset"
	"github.com/sightlab/visionbench/internal/result"
)

// Outcome is what a metric engine hands back to the orchestrator: the primary
// score under the competition's metric plus any secondary metrics and the
// participant-visible log lines produced along the way.
type Outcome struct {
	Primary float64
	Metrics map[string]float64
	Logs    []result.LogLine
}

func (o *Outcome) log(level result.LogLevel, format string, args ...any) {
	o.Logs = append(o.Logs, result.LogLine{Level: level, Message: fmt.Sprintf(format, args...)})
}

// MetricError marks an internal numeric failure inside an engine, as opposed
// to bad participant input. The orchestrator reports these without exposing
// detail.
type MetricError struct {
	Metric string
	Reason string
}

func (e *MetricError) Error() string {
	return fmt.Sprintf("computing %s: %s", e.Metric, e.Reason)
}

// Engine scores one prediction file against one ground truth file. Engines
// hold no state between calls: both files are parsed fresh on every Score, so
// concurrent invocations never share data.
type Engine interface {
	TaskType() config.TaskType
	Score(ctx context.Context, predictionPath, groundTruthPath string) (*Outcome, error)
}

// ForCompetition selects the engine matching the competition's declared task
// type. Custom tasks are dispatched by the orchestrator to the script runner
// and have no engine here.
func ForCompetition(comp *config.Competition, limits config.Limits) (Engine, error) {
	opts := dataset.Options{MaxRows: limits.MaxRows, Strict: limits.StrictColumns}
	switch comp.TaskType {
	case config.TaskClassification:
		return &ClassificationEngine{Metric: comp.MetricType, Opts: opts}, nil
	case config.TaskDetection:
		return &DetectionEngine{Metric: comp.MetricType, Thresholds: comp.IoUThresholds, Opts: opts}, nil
	case config.TaskSegmentation:
		return &SegmentationEngine{Height: comp.ImageHeight, Width: comp.ImageWidth, Opts: opts}, nil
	default:
		return nil, fmt.Errorf("no metric engine for task type %q", comp.TaskType)
	}
}
