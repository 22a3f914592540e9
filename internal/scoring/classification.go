package scoring

import (
	"context"
	"sort"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/dataset"
	"github.com/sightlab/visionbench/internal/result"
)

// ClassificationEngine scores image classification submissions with accuracy
// and macro-averaged F1. The primary score follows the competition's metric
// type; both aggregates plus per-class precision, recall and F1 are always
// reported as secondary metrics.
type ClassificationEngine struct {
	Metric config.MetricType
	Opts   dataset.Options
}

func (e *ClassificationEngine) TaskType() config.TaskType { return config.TaskClassification }

func (e *ClassificationEngine) Score(ctx context.Context, predictionPath, groundTruthPath string) (*Outcome, error) {
	gt, err := dataset.ParseClassification(groundTruthPath, e.Opts)
	if err != nil {
		return nil, err
	}

	preds, err := dataset.ParseClassification(predictionPath, e.Opts)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Metrics: map[string]float64{}}
	out.log(result.LevelInfo, "loaded ground truth with %d rows, prediction with %d rows", len(gt), len(preds))

	predByID := make(map[string]string, len(preds))
	ignored := 0
	gtIDs := make(map[string]bool, len(gt))
	for _, g := range gt {
		gtIDs[g.ImageID] = true
	}
	for _, p := range preds {
		if !gtIDs[p.ImageID] {
			// Prediction for an unknown image: excluded from the
			// denominator rather than treated as an error.
			ignored++
			continue
		}
		predByID[p.ImageID] = p.Label
	}
	if ignored > 0 {
		out.log(result.LevelWarning, "%d predictions reference image ids not in ground truth and were ignored", ignored)
	}

	missing := 0
	correct := 0
	// Confusion counts per class. A ground-truth image with no prediction
	// counts as a wrong prediction of a reserved absent label, so it stays
	// in every denominator.
	const absentLabel = "\x00missing"
	tp := map[string]int{}
	fp := map[string]int{}
	fn := map[string]int{}

	for _, g := range gt {
		predicted, ok := predByID[g.ImageID]
		if !ok {
			predicted = absentLabel
			missing++
		}
		if predicted == g.Label {
			correct++
			tp[g.Label]++
		} else {
			fn[g.Label]++
			fp[predicted]++
		}
	}
	if missing > 0 {
		out.log(result.LevelWarning, "%d ground truth images have no prediction; counted as incorrect", missing)
	}

	if len(gt) == 0 {
		return nil, &MetricError{Metric: "accuracy", Reason: "ground truth has no rows"}
	}
	accuracy := float64(correct) / float64(len(gt))

	// Macro F1 over classes present in ground truth. Classes with zero true
	// instances do not appear here and are excluded from the average.
	classes := make([]string, 0, len(fn))
	seen := map[string]bool{}
	for _, g := range gt {
		if !seen[g.Label] {
			seen[g.Label] = true
			classes = append(classes, g.Label)
		}
	}
	sort.Strings(classes)

	var f1Sum float64
	for _, c := range classes {
		precision, recall, f1 := prfForClass(tp[c], fp[c], fn[c])
		out.Metrics["precision/"+c] = precision
		out.Metrics["recall/"+c] = recall
		out.Metrics["f1/"+c] = f1
		f1Sum += f1
	}
	f1Macro := f1Sum / float64(len(classes))

	out.log(result.LevelInfo, "accuracy: %.4f", accuracy)
	out.log(result.LevelInfo, "f1 (macro): %.4f", f1Macro)

	out.Metrics["accuracy"] = accuracy
	out.Metrics["f1_macro"] = f1Macro
	out.Metrics["total"] = float64(len(gt))
	out.Metrics["missing_predictions"] = float64(missing)
	out.Metrics["ignored_predictions"] = float64(ignored)

	if e.Metric == config.MetricF1 {
		out.Primary = f1Macro
	} else {
		out.Primary = accuracy
	}
	return out, nil
}

func prfForClass(tp, fp, fn int) (precision, recall, f1 float64) {
	if tp+fp > 0 {
		precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		recall = float64(tp) / float64(tp+fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}
