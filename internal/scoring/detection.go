package scoring

import (
	"context"
	"fmt"
	"sort"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/dataset"
	"github.com/sightlab/visionbench/internal/result"
)

// DetectionEngine scores object detection submissions with mean Average
// Precision. AP uses 11-point interpolation. Matching is greedy: predictions
// in descending confidence order (stable sort, so equal confidences keep
// their input order) each take the highest-IoU unmatched ground-truth box of
// the same class, and the match only counts at or above the IoU threshold.
type DetectionEngine struct {
	Metric     config.MetricType
	Thresholds []float64
	Opts       dataset.Options
}

func (e *DetectionEngine) TaskType() config.TaskType { return config.TaskDetection }

func (e *DetectionEngine) Score(ctx context.Context, predictionPath, groundTruthPath string) (*Outcome, error) {
	gtOpts := e.Opts
	gtOpts.RequireConfidence = false
	gt, err := dataset.ParseDetection(groundTruthPath, gtOpts)
	if err != nil {
		return nil, err
	}

	predOpts := e.Opts
	predOpts.RequireConfidence = true
	preds, err := dataset.ParseDetection(predictionPath, predOpts)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Metrics: map[string]float64{}}
	out.log(result.LevelInfo, "loaded %d ground truth boxes, %d predicted boxes", len(gt), len(preds))

	classes := classesOf(gt)
	out.log(result.LevelInfo, "%d classes in ground truth", len(classes))

	thresholds := e.Thresholds
	if len(thresholds) == 0 {
		thresholds = config.DefaultIoUThresholds()
	}

	var mapSum float64
	var map50 float64
	perClass50 := map[string]float64{}
	for _, t := range thresholds {
		var apSum float64
		for _, c := range classes {
			ap := averagePrecision(preds, gt, c, t)
			apSum += ap
			if t == 0.5 {
				perClass50[c] = ap
			}
		}
		// Classes come from ground truth, so each contributes an AP term.
		mAP := apSum / float64(len(classes))
		out.Metrics[fmt.Sprintf("map_%.0f", t*100)] = mAP
		if t == 0.5 {
			map50 = mAP
		}
		mapSum += mAP
	}
	map5095 := mapSum / float64(len(thresholds))
	out.Metrics["map_50_95"] = map5095

	for c, ap := range perClass50 {
		out.Metrics["ap_50/"+c] = ap
	}

	out.log(result.LevelInfo, "mAP@0.5: %.4f", map50)
	out.log(result.LevelInfo, "mAP over %d thresholds: %.4f", len(thresholds), map5095)

	if e.Metric == config.MetricMAP5095 {
		out.Primary = map5095
	} else {
		out.Primary = map50
	}
	return out, nil
}

func classesOf(records []dataset.DetectionRecord) []string {
	seen := map[string]bool{}
	var classes []string
	for _, r := range records {
		if !seen[r.Class] {
			seen[r.Class] = true
			classes = append(classes, r.Class)
		}
	}
	sort.Strings(classes)
	return classes
}

// iou computes intersection over union of two boxes.
func iou(a, b dataset.Box) float64 {
	x1 := max(a.XMin, b.XMin)
	y1 := max(a.YMin, b.YMin)
	x2 := min(a.XMax, b.XMax)
	y2 := min(a.YMax, b.YMax)

	inter := max(0, x2-x1) * max(0, y2-y1)
	areaA := (a.XMax - a.XMin) * (a.YMax - a.YMin)
	areaB := (b.XMax - b.XMin) * (b.YMax - b.YMin)
	union := areaA + areaB - inter
	if union == 0 {
		return 0
	}
	return inter / union
}

// averagePrecision computes AP for one class at one IoU threshold.
// A class with no ground-truth boxes is never passed here; a class with no
// predictions yields 0.
func averagePrecision(preds, gt []dataset.DetectionRecord, class string, threshold float64) float64 {
	gtBoxes := map[string][]dataset.Box{}
	totalGT := 0
	for _, g := range gt {
		if g.Class != class {
			continue
		}
		gtBoxes[g.ImageID] = append(gtBoxes[g.ImageID], g.Box)
		totalGT++
	}
	if totalGT == 0 {
		return 0
	}

	var classPreds []dataset.DetectionRecord
	for _, p := range preds {
		if p.Class == class {
			classPreds = append(classPreds, p)
		}
	}
	if len(classPreds) == 0 {
		return 0
	}
	// Stable keeps input order for tied confidences, so AP is deterministic.
	sort.SliceStable(classPreds, func(i, j int) bool {
		return classPreds[i].Confidence > classPreds[j].Confidence
	})

	matched := map[string][]bool{}
	for id, boxes := range gtBoxes {
		matched[id] = make([]bool, len(boxes))
	}

	tp := make([]int, len(classPreds))
	for i, p := range classPreds {
		boxes, ok := gtBoxes[p.ImageID]
		if !ok {
			// Prediction for an image with no ground truth of this
			// class: false positive.
			continue
		}
		bestIoU := 0.0
		bestIdx := -1
		for j, g := range boxes {
			if matched[p.ImageID][j] {
				continue
			}
			if v := iou(p.Box, g); v > bestIoU {
				bestIoU = v
				bestIdx = j
			}
		}
		if bestIdx >= 0 && bestIoU >= threshold {
			tp[i] = 1
			matched[p.ImageID][bestIdx] = true
		}
	}

	precision := make([]float64, len(tp))
	recall := make([]float64, len(tp))
	cumTP, cumFP := 0, 0
	for i, hit := range tp {
		if hit == 1 {
			cumTP++
		} else {
			cumFP++
		}
		precision[i] = float64(cumTP) / float64(cumTP+cumFP)
		recall[i] = float64(cumTP) / float64(totalGT)
	}
	return interpolatedAP(precision, recall)
}

// interpolatedAP implements 11-point interpolation: the mean of the maximum
// precision at recall >= t for t in {0.0, 0.1, ..., 1.0}.
func interpolatedAP(precision, recall []float64) float64 {
	if len(precision) == 0 {
		return 0
	}
	var ap float64
	for i := 0; i <= 10; i++ {
		t := float64(i) / 10
		var p float64
		for j := range recall {
			if recall[j] >= t && precision[j] > p {
				p = precision[j]
			}
		}
		ap += p / 11
	}
	return ap
}
