package custom

import (
	"fmt"
	"strconv"
	"strings"
)

// Scripts report their result on stdout. The last line of the form
// "SCORE=<float>" is the primary score; any "METRIC <name>=<float>" lines add
// secondary metrics. Everything else is treated as free-form log output.

// ParseSentinel extracts the score protocol from captured stdout.
func ParseSentinel(stdout string) (score float64, metrics map[string]float64, err error) {
	found := false
	metrics = map[string]float64{}

	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "SCORE="):
			v, perr := strconv.ParseFloat(strings.TrimPrefix(line, "SCORE="), 64)
			if perr != nil {
				return 0, nil, &ScriptError{
					Kind:    FailureSentinel,
					Message: fmt.Sprintf("unparsable score line %q", line),
				}
			}
			score = v
			found = true
		case strings.HasPrefix(line, "METRIC "):
			body := strings.TrimPrefix(line, "METRIC ")
			name, raw, ok := strings.Cut(body, "=")
			if !ok {
				continue
			}
			v, perr := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if perr != nil {
				continue
			}
			metrics[strings.TrimSpace(name)] = v
		}
	}
	if !found {
		return 0, nil, &ScriptError{
			Kind:    FailureSentinel,
			Message: "script produced no SCORE=<float> line",
		}
	}
	return score, metrics, nil
}
