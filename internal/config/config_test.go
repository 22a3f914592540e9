package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sightlab/visionbench/internal/config"
)

func TestLoadMinimal(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Competitions) != 1 {
		t.Errorf("expected 1 competition, got %d", len(cfg.Competitions))
	}
	c := cfg.Competitions[0]
	if c.ID != "birds" {
		t.Errorf("expected competition id 'birds', got %q", c.ID)
	}
	if c.MetricType != config.MetricAccuracy {
		t.Errorf("expected default metric accuracy, got %q", c.MetricType)
	}
	if cfg.Limits.MaxRows != 200000 {
		t.Errorf("expected default max rows 200000, got %d", cfg.Limits.MaxRows)
	}
	if cfg.Sandbox.TimeoutSeconds != 300 {
		t.Errorf("expected default sandbox timeout 300, got %d", cfg.Sandbox.TimeoutSeconds)
	}
}

func TestLoadFull(t *testing.T) {
	cfg, err := config.Load("../../testdata/full.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.Competitions) != 4 {
		t.Fatalf("expected 4 competitions, got %d", len(cfg.Competitions))
	}

	det, err := cfg.Find("vehicles")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(det.IoUThresholds) != 2 {
		t.Errorf("expected 2 IoU thresholds, got %d", len(det.IoUThresholds))
	}

	seg, _ := cfg.Find("lesions")
	if seg.ImageHeight != 4 || seg.ImageWidth != 5 {
		t.Errorf("expected 4x5 image size, got %dx%d", seg.ImageHeight, seg.ImageWidth)
	}

	cust, _ := cfg.Find("depth")
	if cust.MetricType != config.MetricCustom {
		t.Errorf("expected custom metric type, got %q", cust.MetricType)
	}
	if cust.ScriptTimeoutSec != 60 {
		t.Errorf("expected script timeout 60, got %d", cust.ScriptTimeoutSec)
	}
}

func TestLoadDetectionThresholdsWithoutHalf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	content := `competitions:
  - id: vehicles
    task_type: detection
    metric_type: map
    public_ground_truth: gt.csv
    iou_thresholds: [0.75, 0.9]
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	_, err := config.Load(path)
	if err == nil {
		t.Fatal("expected error: metric_type map needs the 0.5 threshold")
	}
	if !strings.Contains(err.Error(), "0.5") {
		t.Errorf("error should name the missing threshold: %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := config.Load("nonexistent.yaml")
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	_, err := config.Load("../../testdata/invalid.yaml")
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestDefaultIoUThresholds(t *testing.T) {
	ts := config.DefaultIoUThresholds()
	if len(ts) != 10 {
		t.Fatalf("expected 10 thresholds, got %d", len(ts))
	}
	if ts[0] != 0.5 {
		t.Errorf("first threshold: got %v, want 0.5", ts[0])
	}
	if ts[9] < 0.949 || ts[9] > 0.951 {
		t.Errorf("last threshold: got %v, want 0.95", ts[9])
	}
}

func TestFindUnknown(t *testing.T) {
	cfg, err := config.Load("../../testdata/minimal.yaml")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := cfg.Find("nope"); err == nil {
		t.Error("expected error for unknown competition id")
	}
}
