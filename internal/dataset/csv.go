package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// header maps schema column names to their position in the CSV header row.
type header map[string]int

func readHeader(r *csv.Reader, path string, required []string, strict bool) (header, error) {
	record, err := r.Read()
	if err == io.EOF {
		return nil, &ValidationError{Reason: fmt.Sprintf("%s is empty (no header row)", path)}
	}
	if err != nil {
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}

	h := make(header, len(record))
	for i, name := range record {
		h[strings.TrimSpace(name)] = i
	}

	var missing []string
	for _, name := range required {
		if _, ok := h[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ValidationError{
			Row:    1,
			Reason: fmt.Sprintf("missing required columns %v; expected %v", missing, required),
		}
	}

	if strict {
		allowed := make(map[string]bool, len(required))
		for _, name := range required {
			allowed[name] = true
		}
		for name := range h {
			if !allowed[name] {
				return nil, &ValidationError{
					Row:    1,
					Column: name,
					Reason: "unexpected column",
				}
			}
		}
	}
	return h, nil
}

func (h header) field(record []string, name string) string {
	i := h[name]
	if i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

func floatField(h header, record []string, row int, name string) (float64, error) {
	raw := h.field(record, name)
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Row: row, Column: name, Value: raw, Reason: "not a number"}
	}
	return v, nil
}

// forEachRow streams data rows, enforcing the row limit and rejecting files
// with no data rows at all.
func forEachRow(path string, required []string, opts Options, fn func(h header, row int, record []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	h, err := readHeader(r, path, required, opts.Strict)
	if err != nil {
		return err
	}

	rows := 0
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &ValidationError{Row: rows + 2, Reason: fmt.Sprintf("malformed CSV: %v", err)}
		}
		rows++
		if rows > opts.maxRows() {
			return &ValidationError{Row: rows + 1, Reason: fmt.Sprintf("file exceeds the %d row limit", opts.maxRows())}
		}
		// Row numbers reported to participants count the header line.
		if err := fn(h, rows+1, record); err != nil {
			return err
		}
	}
	if rows == 0 {
		return &ValidationError{Reason: fmt.Sprintf("%s has no data rows", path)}
	}
	return nil
}

// ParseClassification reads image_id,label rows. Duplicate image ids are
// rejected: a classification submission must contain exactly one label per
// image.
func ParseClassification(path string, opts Options) ([]ClassificationRecord, error) {
	required := []string{"image_id", "label"}
	var records []ClassificationRecord
	seen := map[string]int{}

	err := forEachRow(path, required, opts, func(h header, row int, record []string) error {
		id := h.field(record, "image_id")
		if id == "" {
			return &ValidationError{Row: row, Column: "image_id", Reason: "empty image id"}
		}
		if prev, dup := seen[id]; dup {
			return &ValidationError{
				Row:    row,
				Column: "image_id",
				Value:  id,
				Reason: fmt.Sprintf("duplicate image id (first seen at row %d)", prev),
			}
		}
		seen[id] = row
		records = append(records, ClassificationRecord{ImageID: id, Label: h.field(record, "label")})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ParseDetection reads detection rows. Multiple rows per (image, class) are
// legal: each row is one box. Ground truth omits the confidence column; set
// opts.RequireConfidence for prediction files.
func ParseDetection(path string, opts Options) ([]DetectionRecord, error) {
	required := []string{"image_id", "class_label", "xmin", "ymin", "xmax", "ymax"}
	if opts.RequireConfidence {
		required = []string{"image_id", "class_label", "confidence", "xmin", "ymin", "xmax", "ymax"}
	}

	var records []DetectionRecord
	err := forEachRow(path, required, opts, func(h header, row int, record []string) error {
		rec := DetectionRecord{
			ImageID: h.field(record, "image_id"),
			Class:   h.field(record, "class_label"),
		}
		if rec.ImageID == "" {
			return &ValidationError{Row: row, Column: "image_id", Reason: "empty image id"}
		}
		if rec.Class == "" {
			return &ValidationError{Row: row, Column: "class_label", Reason: "empty class label"}
		}

		var err error
		if rec.Box.XMin, err = floatField(h, record, row, "xmin"); err != nil {
			return err
		}
		if rec.Box.YMin, err = floatField(h, record, row, "ymin"); err != nil {
			return err
		}
		if rec.Box.XMax, err = floatField(h, record, row, "xmax"); err != nil {
			return err
		}
		if rec.Box.YMax, err = floatField(h, record, row, "ymax"); err != nil {
			return err
		}
		if rec.Box.XMin >= rec.Box.XMax {
			return &ValidationError{Row: row, Column: "xmax", Value: h.field(record, "xmax"), Reason: "xmin must be less than xmax"}
		}
		if rec.Box.YMin >= rec.Box.YMax {
			return &ValidationError{Row: row, Column: "ymax", Value: h.field(record, "ymax"), Reason: "ymin must be less than ymax"}
		}

		if opts.RequireConfidence {
			if rec.Confidence, err = floatField(h, record, row, "confidence"); err != nil {
				return err
			}
			if rec.Confidence < 0 || rec.Confidence > 1 {
				return &ValidationError{Row: row, Column: "confidence", Value: h.field(record, "confidence"), Reason: "confidence must be between 0 and 1"}
			}
		}

		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ParseSegmentation reads image_id,class_label,rle_mask rows. The RLE column
// is a space-separated list of non-negative integers; run semantics are
// validated by the scoring engine against the competition's image size.
// Duplicate (image, class) pairs keep the first row; the caller receives the
// duplicate rows it should warn about.
func ParseSegmentation(path string, opts Options) ([]SegmentationRecord, []int, error) {
	required := []string{"image_id", "class_label", "rle_mask"}

	var records []SegmentationRecord
	var dupRows []int
	seen := map[[2]string]bool{}

	err := forEachRow(path, required, opts, func(h header, row int, record []string) error {
		id := h.field(record, "image_id")
		class := h.field(record, "class_label")
		if id == "" {
			return &ValidationError{Row: row, Column: "image_id", Reason: "empty image id"}
		}
		if class == "" {
			return &ValidationError{Row: row, Column: "class_label", Reason: "empty class label"}
		}
		key := [2]string{id, class}
		if seen[key] {
			dupRows = append(dupRows, row)
			return nil
		}
		seen[key] = true

		raw := h.field(record, "rle_mask")
		rle, err := parseRLEField(raw, row)
		if err != nil {
			return err
		}
		records = append(records, SegmentationRecord{ImageID: id, Class: class, RLE: rle})
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return records, dupRows, nil
}

func parseRLEField(raw string, row int) ([]int, error) {
	if raw == "" {
		return nil, nil
	}
	fields := strings.Fields(raw)
	rle := make([]int, 0, len(fields))
	for _, tok := range fields {
		n, err := strconv.Atoi(tok)
		if err != nil || n < 0 {
			return nil, &ValidationError{Row: row, Column: "rle_mask", Value: tok, Reason: "RLE values must be non-negative integers"}
		}
		rle = append(rle, n)
	}
	return rle, nil
}
