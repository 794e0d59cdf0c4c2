// Package report turns statistics into the text summary and chart artifacts
// sent back to subscribers.
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/jgoulah/gridmeter/pkg/models"
	"github.com/shopspring/decimal"
)

// MaxMessageLength is the largest chunk SplitMessage produces by default.
const MaxMessageLength = 4096

// Output is a rendered report. The caller owns the chart files and must
// call Cleanup once they have been delivered.
type Output struct {
	Text   string   `json:"text"`
	Charts []string `json:"charts,omitempty"`
}

// Cleanup removes the chart artifacts.
func (o *Output) Cleanup() error {
	var errs []error
	for _, path := range o.Charts {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
		}
	}
	o.Charts = nil
	return errors.Join(errs...)
}

// Reporter renders reports into a picture directory.
type Reporter struct {
	dir  string
	unit string
	seq  atomic.Uint64
}

// NewReporter creates a reporter writing charts under dir, labelling values with unit.
func NewReporter(dir, unit string) *Reporter {
	return &Reporter{dir: dir, unit: unit}
}

// Text returns the newline-joined summary lines.
func (r *Reporter) Text(rep *models.Report) string {
	lines := []string{
		fmt.Sprintf("Month so far: %s", r.amount(rep.MonthToDate)),
	}

	if rep.HasDeltaFromPrev {
		lines = append(lines, fmt.Sprintf("Delta from the previous time is %s", r.amount(rep.DeltaFromPrev)))
	} else {
		lines = append(lines, "Delta from the previous time: not enough data")
	}

	if rep.DailyStats.HasMean {
		lines = append(lines, fmt.Sprintf("Daily average for this month so far: %s", r.amount(rep.DailyStats.Mean)))
	} else {
		lines = append(lines, "Daily average for this month so far: not applicable")
	}
	if rep.DailyStats.HasStdDev {
		lines = append(lines, fmt.Sprintf("STD for this month so far: %s", r.amount(rep.DailyStats.StdDev)))
	} else {
		lines = append(lines, "STD for this month so far: not applicable")
	}

	return strings.Join(lines, "\n")
}

// Render produces the text summary and writes one chart per non-empty series.
func (r *Reporter) Render(rep *models.Report) (*Output, error) {
	out := &Output{Text: r.Text(rep)}

	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating picture directory: %w", err)
	}

	if len(rep.Daily) > 0 {
		path, err := r.write(rep, dailyChart(rep.Daily, rep.DailyStats, r.unit))
		if err != nil {
			return nil, err
		}
		out.Charts = append(out.Charts, path)
	}

	if len(rep.Hourly) > 0 {
		path, err := r.write(rep, hourlyChart(rep.Hourly, r.unit))
		if err != nil {
			out.Cleanup()
			return nil, err
		}
		out.Charts = append(out.Charts, path)
	}

	return out, nil
}

// ArtifactName builds the file name of the n-th chart rendered by this process.
func ArtifactName(rep *models.Report, n uint64) string {
	stamp := strings.NewReplacer(":", "_", " ", "_").Replace(rep.AsOf.Format("2006-01-02 15:04:05"))
	return fmt.Sprintf("stats_%d_%s_%d.svg", rep.SubscriberID, stamp, n)
}

func (r *Reporter) write(rep *models.Report, svg string) (string, error) {
	n := r.seq.Add(1) - 1
	path := filepath.Join(r.dir, ArtifactName(rep, n))
	if err := os.WriteFile(path, []byte(svg), 0644); err != nil {
		return "", fmt.Errorf("writing chart: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}

func (r *Reporter) amount(v float64) string {
	return FormatAmount(v) + " " + r.unit
}

// FormatAmount rounds v half away from zero to one decimal place.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(1)
}

// SplitMessage cuts text into chunks of at most limit runes.
func SplitMessage(text string, limit int) []string {
	if limit <= 0 {
		limit = MaxMessageLength
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return []string{text}
	}

	chunks := make([]string, 0, len(runes)/limit+1)
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}
