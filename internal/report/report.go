package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/sightlab/visionbench/internal/result"
)

type LeaderboardEntry struct {
	Competition  string  `json:"competition"`
	Submission   string  `json:"submission"`
	PublicScore  float64 `json:"public_score"`
	PrivateScore float64 `json:"private_score,omitempty"`
	HasPrivate   bool    `json:"has_private,omitempty"`
	Attempts     int     `json:"attempts"`
	Failures     int     `json:"failures"`
}

type Options struct {
	Format        string // table, markdown, json
	RevealPrivate bool
}

// Generate walks a run directory and writes a leaderboard per competition:
// the best successful public score for each submission, with attempt and
// failure counts. Private scores stay hidden until the competition closes and
// the report is generated with RevealPrivate.
func Generate(runDir string, opts Options, w io.Writer) error {
	results, err := collectResults(runDir)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		return fmt.Errorf("no results found in %s", runDir)
	}

	entries := aggregate(results)
	if !opts.RevealPrivate {
		for i := range entries {
			entries[i].PrivateScore = 0
			entries[i].HasPrivate = false
		}
	}

	switch opts.Format {
	case "markdown":
		return writeMarkdown(entries, opts.RevealPrivate, w)
	case "json":
		return writeJSON(entries, w)
	default:
		return writeTable(entries, opts.RevealPrivate, w)
	}
}

func collectResults(runDir string) ([]*result.ScoreResult, error) {
	var results []*result.ScoreResult
	err := filepath.Walk(runDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.Name() == "result.json" {
			res, err := result.ReadScoreResult(path)
			if err != nil {
				return nil
			}
			results = append(results, res)
		}
		return nil
	})
	return results, err
}

func aggregate(results []*result.ScoreResult) []LeaderboardEntry {
	type key struct{ competition, submission string }
	byKey := map[key]*LeaderboardEntry{}

	for _, r := range results {
		k := key{r.Competition, r.Submission}
		e, ok := byKey[k]
		if !ok {
			e = &LeaderboardEntry{Competition: r.Competition, Submission: r.Submission}
			byKey[k] = e
		}
		e.Attempts++
		if r.Status != result.StatusSuccess {
			e.Failures++
			continue
		}
		if r.PublicScore > e.PublicScore || e.Attempts == e.Failures+1 {
			e.PublicScore = r.PublicScore
			e.PrivateScore = r.PrivateScore
			e.HasPrivate = r.HasPrivate
		}
	}

	entries := make([]LeaderboardEntry, 0, len(byKey))
	for _, e := range byKey {
		entries = append(entries, *e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Competition != entries[j].Competition {
			return entries[i].Competition < entries[j].Competition
		}
		if entries[i].PublicScore != entries[j].PublicScore {
			return entries[i].PublicScore > entries[j].PublicScore
		}
		return entries[i].Submission < entries[j].Submission
	})
	return entries
}

func writeTable(entries []LeaderboardEntry, private bool, w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if private {
		fmt.Fprintln(tw, "COMPETITION\tSUBMISSION\tPUBLIC\tPRIVATE\tATTEMPTS\tFAILURES")
	} else {
		fmt.Fprintln(tw, "COMPETITION\tSUBMISSION\tPUBLIC\tATTEMPTS\tFAILURES")
	}
	fmt.Fprintln(tw, strings.Repeat("-", 72))
	for _, e := range entries {
		if private {
			fmt.Fprintf(tw, "%s\t%s\t%.6f\t%s\t%d\t%d\n",
				e.Competition, e.Submission, e.PublicScore, privateCell(e), e.Attempts, e.Failures)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%.6f\t%d\t%d\n",
				e.Competition, e.Submission, e.PublicScore, e.Attempts, e.Failures)
		}
	}
	return tw.Flush()
}

func writeMarkdown(entries []LeaderboardEntry, private bool, w io.Writer) error {
	if private {
		fmt.Fprintln(w, "| Competition | Submission | Public | Private | Attempts | Failures |")
		fmt.Fprintln(w, "|---|---|---|---|---|---|")
	} else {
		fmt.Fprintln(w, "| Competition | Submission | Public | Attempts | Failures |")
		fmt.Fprintln(w, "|---|---|---|---|---|")
	}
	for _, e := range entries {
		if private {
			fmt.Fprintf(w, "| %s | %s | %.6f | %s | %d | %d |\n",
				e.Competition, e.Submission, e.PublicScore, privateCell(e), e.Attempts, e.Failures)
		} else {
			fmt.Fprintf(w, "| %s | %s | %.6f | %d | %d |\n",
				e.Competition, e.Submission, e.PublicScore, e.Attempts, e.Failures)
		}
	}
	return nil
}

func privateCell(e LeaderboardEntry) string {
	if !e.HasPrivate {
		return "-"
	}
	return fmt.Sprintf("%.6f", e.PrivateScore)
}

func writeJSON(entries []LeaderboardEntry, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries)
}
