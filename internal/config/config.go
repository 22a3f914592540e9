package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type TaskType string

const (
	TaskClassification TaskType = "classification"
	TaskDetection      TaskType = "detection"
	TaskSegmentation   TaskType = "segmentation"
	TaskCustom         TaskType = "custom"
)

type MetricType string

const (
	MetricAccuracy MetricType = "accuracy"
	MetricF1       MetricType = "f1"
	MetricMAP      MetricType = "map"
	MetricMAP5095  MetricType = "map_50_95"
	MetricMIoU     MetricType = "miou"
	MetricCustom   MetricType = "custom"
)

type Config struct {
	Competitions []Competition `yaml:"competitions"`
	Sandbox      Sandbox       `yaml:"sandbox"`
	Limits       Limits        `yaml:"limits"`
	Results      Results       `yaml:"results"`
}

type Competition struct {
	ID                 string     `yaml:"id"`
	Name               string     `yaml:"name"`
	TaskType           TaskType   `yaml:"task_type"`
	MetricType         MetricType `yaml:"metric_type"`
	PublicGroundTruth  string     `yaml:"public_ground_truth"`
	PrivateGroundTruth string     `yaml:"private_ground_truth"`
	IoUThresholds      []float64  `yaml:"iou_thresholds"`
	ImageHeight        int        `yaml:"image_height"`
	ImageWidth         int        `yaml:"image_width"`
	ScoringScript      string     `yaml:"scoring_script"`
	ScriptImage        string     `yaml:"script_image"`
	ScriptTimeoutSec   int        `yaml:"script_timeout_s"`
}

type Sandbox struct {
	Image          string  `yaml:"image"`
	CPULimit       float64 `yaml:"cpu_limit"`
	MemoryLimitMB  int64   `yaml:"memory_limit_mb"`
	TimeoutSeconds int     `yaml:"timeout_s"`
}

type Limits struct {
	MaxRows       int  `yaml:"max_rows"`
	StrictColumns bool `yaml:"strict_columns"`
}

type Results struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

func validate(cfg *Config) error {
	if len(cfg.Competitions) == 0 {
		return fmt.Errorf("no competitions defined")
	}
	// Sandbox defaults first: custom competitions inherit them.
	if cfg.Sandbox.Image == "" {
		cfg.Sandbox.Image = "python:3.12-slim"
	}
	if cfg.Sandbox.TimeoutSeconds <= 0 {
		cfg.Sandbox.TimeoutSeconds = 300
	}
	if cfg.Sandbox.CPULimit <= 0 {
		cfg.Sandbox.CPULimit = 1.0
	}
	if cfg.Sandbox.MemoryLimitMB <= 0 {
		cfg.Sandbox.MemoryLimitMB = 1024
	}
	if cfg.Limits.MaxRows <= 0 {
		cfg.Limits.MaxRows = 200000
	}
	if cfg.Results.Dir == "" {
		cfg.Results.Dir = "results"
	}

	seen := map[string]bool{}
	for i := range cfg.Competitions {
		c := &cfg.Competitions[i]
		if c.ID == "" {
			return fmt.Errorf("competition %d: id is required", i)
		}
		if seen[c.ID] {
			return fmt.Errorf("competition %q: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if c.PublicGroundTruth == "" {
			return fmt.Errorf("competition %q: public_ground_truth is required", c.ID)
		}
		switch c.TaskType {
		case TaskClassification:
			if c.MetricType == "" {
				c.MetricType = MetricAccuracy
			}
		case TaskDetection:
			if c.MetricType == "" {
				c.MetricType = MetricMAP
			}
			if len(c.IoUThresholds) == 0 {
				c.IoUThresholds = DefaultIoUThresholds()
			}
			for _, t := range c.IoUThresholds {
				if t <= 0 || t > 1 {
					return fmt.Errorf("competition %q: iou threshold %v out of range (0,1]", c.ID, t)
				}
			}
			// The map metric is mAP@0.5; without that threshold the primary
			// score would silently read as zero.
			if c.MetricType == MetricMAP && !containsThreshold(c.IoUThresholds, 0.5) {
				return fmt.Errorf("competition %q: metric_type map requires 0.5 in iou_thresholds", c.ID)
			}
		case TaskSegmentation:
			if c.MetricType == "" {
				c.MetricType = MetricMIoU
			}
			if c.ImageHeight <= 0 || c.ImageWidth <= 0 {
				return fmt.Errorf("competition %q: image_height and image_width are required for segmentation", c.ID)
			}
		case TaskCustom:
			c.MetricType = MetricCustom
			if c.ScoringScript == "" {
				return fmt.Errorf("competition %q: scoring_script is required for custom tasks", c.ID)
			}
			if c.ScriptImage == "" {
				c.ScriptImage = cfg.Sandbox.Image
			}
			if c.ScriptTimeoutSec <= 0 {
				c.ScriptTimeoutSec = cfg.Sandbox.TimeoutSeconds
			}
		default:
			return fmt.Errorf("competition %q: unknown task_type %q", c.ID, c.TaskType)
		}
	}
	return nil
}

func containsThreshold(thresholds []float64, want float64) bool {
	for _, t := range thresholds {
		if t == want {
			return true
		}
	}
	return false
}

// DefaultIoUThresholds returns 0.50 through 0.95 in steps of 0.05.
func DefaultIoUThresholds() []float64 {
	out := make([]float64, 0, 10)
	for i := 0; i < 10; i++ {
		out = append(out, 0.5+0.05*float64(i))
	}
	return out
}

// Find returns the competition with the given id.
func (c *Config) Find(id string) (*Competition, error) {
	for i := range c.Competitions {
		if c.Competitions[i].ID == id {
			return &c.Competitions[i], nil
		}
	}
	return nil, fmt.Errorf("competition %q not found in config", id)
}
