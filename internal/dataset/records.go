package dataset

import "fmt"

// ValidationError describes a malformed prediction or ground truth file.
// Row is 1-based counting the header; zero Row/Column means the failure is
// file-level rather than cell-level.
type ValidationError struct {
	Row    int
	Column string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row > 0 && e.Column != "" {
		return fmt.Sprintf("row %d, column %q: %s (got %q)", e.Row, e.Column, e.Reason, e.Value)
	}
	if e.Row > 0 {
		return fmt.Sprintf("row %d: %s", e.Row, e.Reason)
	}
	return e.Reason
}

type ClassificationRecord struct {
	ImageID string
	Label   string
}

type Box struct {
	XMin, YMin, XMax, YMax float64
}

type DetectionRecord struct {
	ImageID    string
	Class      string
	Confidence float64
	Box        Box
}

type SegmentationRecord struct {
	ImageID string
	Class   string
	RLE     []int
}

// Options configures parsing limits and schema strictness.
type Options struct {
	// MaxRows bounds the number of data rows accepted. Zero means the
	// package default.
	MaxRows int
	// Strict rejects columns outside the task schema instead of ignoring them.
	Strict bool
	// RequireConfidence controls whether the detection schema demands a
	// confidence column. True for predictions, false for ground truth.
	RequireConfidence bool
}

const defaultMaxRows = 200000

func (o Options) maxRows() int {
	if o.MaxRows > 0 {
		return o.MaxRows
	}
	return defaultMaxRows
}
