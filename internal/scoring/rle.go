package scoring

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sightlab/visionbench/internal/dataset"
)

// RLE masks use the pairs convention: space-separated "start length" pairs
// where start is a 1-based index into the row-major flattened mask. Runs must
// be strictly increasing and non-overlapping, and the final run must end
// within the mask. Anything else is rejected outright rather than decoded
// into a truncated or padded mask.

// DecodeRLE expands run pairs into a flat boolean mask of pixels pixels.
func DecodeRLE(rle []int, pixels int) ([]bool, error) {
	if len(rle)%2 != 0 {
		return nil, &dataset.ValidationError{
			Column: "rle_mask",
			Reason: fmt.Sprintf("RLE has %d values, expected an even count of start/length pairs", len(rle)),
		}
	}
	mask := make([]bool, pixels)
	prevEnd := 0
	for i := 0; i < len(rle); i += 2 {
		start, length := rle[i], rle[i+1]
		if start < 1 || length < 1 {
			return nil, &dataset.ValidationError{
				Column: "rle_mask",
				Value:  fmt.Sprintf("%d %d", start, length),
				Reason: "RLE starts must be >= 1 and lengths >= 1",
			}
		}
		// Adjacent runs are rejected too: a canonical encoding merges
		// them, and canonical form is what makes encode(decode(r)) == r.
		if i > 0 && start <= prevEnd+1 {
			return nil, &dataset.ValidationError{
				Column: "rle_mask",
				Value:  strconv.Itoa(start),
				Reason: "RLE runs must be increasing, non-overlapping and non-adjacent",
			}
		}
		end := start + length - 1
		if end > pixels {
			return nil, &dataset.ValidationError{
				Column: "rle_mask",
				Value:  fmt.Sprintf("%d %d", start, length),
				Reason: fmt.Sprintf("RLE run ends at pixel %d but the mask has only %d pixels", end, pixels),
			}
		}
		for p := start - 1; p < end; p++ {
			mask[p] = true
		}
		prevEnd = end
	}
	return mask, nil
}

// EncodeRLE is the inverse of DecodeRLE: encode(decode(r)) == r for any
// well-formed r.
func EncodeRLE(mask []bool) []int {
	var runs []int
	i := 0
	for i < len(mask) {
		if !mask[i] {
			i++
			continue
		}
		start := i + 1
		length := 0
		for i < len(mask) && mask[i] {
			length++
			i++
		}
		runs = append(runs, start, length)
	}
	return runs
}

// FormatRLE renders runs in the CSV wire format.
func FormatRLE(rle []int) string {
	parts := make([]string, len(rle))
	for i, v := range rle {
		parts[i] = strconv.Itoa(v)
	}
	return strings.Join(parts, " ")
}
