package scoring_test

import (
	"context"
	"testing"

	"github.com/sightlab/visionbench/internal/config"
	"github.com/sightlab/visionbench/internal/scoring"
)

func TestDetectionPerfectMatch(t *testing.T) {
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\n"+
			"a,car,10,10,50,50\n"+
			"a,person,60,60,80,90\n"+
			"b,car,0,0,20,20\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\n"+
			"a,car,0.9,10,10,50,50\n"+
			"a,person,0.8,60,60,80,90\n"+
			"b,car,0.95,0,0,20,20\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if absf(out.Primary-1.0) > 1e-9 {
		t.Errorf("mAP@0.5 of identical boxes: got %f, want 1.0", out.Primary)
	}
}

func TestDetectionSingleBoxScenario(t *testing.T) {
	// One gt box [10,10,50,50] "car", one prediction [12,12,48,48] at 0.9.
	// IoU is well above 0.5, so AP for "car" is 1.0.
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\na,car,0.9,12,12,48,48\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if absf(out.Primary-1.0) > 1e-9 {
		t.Errorf("AP: got %f, want 1.0", out.Primary)
	}
	if absf(out.Metrics["ap_50/car"]-1.0) > 1e-9 {
		t.Errorf("per-class AP: got %f, want 1.0", out.Metrics["ap_50/car"])
	}
}

func TestDetectionWrongClassIsFalsePositive(t *testing.T) {
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\na,truck,0.9,10,10,50,50\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if out.Primary != 0 {
		t.Errorf("mAP with only a wrong-class prediction: got %f, want 0", out.Primary)
	}
}

func TestDetectionNoPredictionsForClass(t *testing.T) {
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\n"+
			"a,car,10,10,50,50\n"+
			"a,person,60,60,80,90\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\na,car,0.9,10,10,50,50\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	// car AP 1, person AP 0 -> mAP 0.5
	if absf(out.Primary-0.5) > 1e-9 {
		t.Errorf("mAP: got %f, want 0.5", out.Primary)
	}
}

func TestDetectionPredictionForUnknownImage(t *testing.T) {
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\n"+
			"a,car,0.9,10,10,50,50\n"+
			"zz,car,0.3,10,10,50,50\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score should not fail on unknown image ids: %v", err)
	}
	// The high-confidence true positive comes first, so recall hits 1.0 at
	// precision 1.0 before the stray false positive; 11-point AP stays 1.0.
	if absf(out.Primary-1.0) > 1e-9 {
		t.Errorf("AP: got %f, want 1.0", out.Primary)
	}
}

func TestDetectionDoubleDetectionPenalized(t *testing.T) {
	// Two predictions on one gt box: the second is a false positive.
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\n"+
			"a,car,0.9,10,10,50,50\n"+
			"a,car,0.8,11,11,49,49\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if absf(out.Primary-1.0) > 1e-9 {
		t.Errorf("AP: got %f, want 1.0 (true positive ranks above the duplicate)", out.Primary)
	}
}

func TestDetectionBelowThreshold(t *testing.T) {
	// IoU of [10,10,50,50] vs [40,40,80,80] is far below 0.5.
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\na,car,0.9,40,40,80,80\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if out.Primary != 0 {
		t.Errorf("AP below threshold: got %f, want 0", out.Primary)
	}
}

func TestDetectionMap5095(t *testing.T) {
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\na,car,0.9,10,10,50,50\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP5095}
	out, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	// Identical boxes have IoU 1 at every threshold.
	if absf(out.Primary-1.0) > 1e-9 {
		t.Errorf("mAP@[0.5:0.95]: got %f, want 1.0", out.Primary)
	}
	if absf(out.Metrics["map_50_95"]-1.0) > 1e-9 {
		t.Errorf("map_50_95 metric: got %f, want 1.0", out.Metrics["map_50_95"])
	}
}

func TestDetectionTieBreakIsStable(t *testing.T) {
	// Two predictions with equal confidence: input order decides matching,
	// so scoring the same file twice gives identical results.
	gt := writeFile(t, "gt.csv",
		"image_id,class_label,xmin,ymin,xmax,ymax\na,car,10,10,50,50\n")
	pred := writeFile(t, "pred.csv",
		"image_id,class_label,confidence,xmin,ymin,xmax,ymax\n"+
			"a,car,0.9,10,10,50,50\n"+
			"a,car,0.9,40,40,80,80\n")

	e := &scoring.DetectionEngine{Metric: config.MetricMAP, Thresholds: []float64{0.5}}
	first, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	second, err := e.Score(context.Background(), pred, gt)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if first.Primary != second.Primary {
		t.Errorf("tied confidences must score deterministically: %f vs %f", first.Primary, second.Primary)
	}
}
