package ui

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cheggaaa/pb/v3"
)

// progressTemplate shows transferred bytes, a bar, percentage, speed and ETA
const progressTemplate = `{{string . "prefix"}}{{counters . }} {{bar . }} {{percent . }} {{speed . }} {{rtime . "ETA %s"}}`

// ProgressBar renders download progress on a terminal
type ProgressBar struct {
	mu        sync.Mutex
	bar       *pb.ProgressBar
	out       io.Writer
	quiet     bool
	startTime time.Time
	current   int64
	total     int64
}

// Summary contains final transfer statistics
type Summary struct {
	URL         string
	Destination string
	Status      string
	TotalBytes  int64
	TotalTime   time.Duration
}

// AverageSpeed returns bytes per second over the whole transfer
func (s Summary) AverageSpeed() float64 {
	if s.TotalTime <= 0 {
		return 0
	}
	return float64(s.TotalBytes) / s.TotalTime.Seconds()
}

// NewProgressBar creates a progress bar writing to out. A quiet bar only
// tracks counters.
func NewProgressBar(out io.Writer, prefix string, quiet bool) *ProgressBar {
	p := &ProgressBar{out: out, quiet: quiet, startTime: time.Now(), total: -1}
	if !quiet {
		bar := pb.ProgressBarTemplate(progressTemplate).New(0)
		bar.SetWriter(out)
		bar.Set(pb.Bytes, true)
		bar.Set("prefix", prefix)
		p.bar = bar
	}
	return p
}

// Update sets the received and expected byte counts. Expected is -1 when
// unknown.
func (p *ProgressBar) Update(received, expected int64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current = received
	if p.bar == nil {
		p.total = expected
		return
	}
	if expected != p.total {
		p.total = expected
		if expected > 0 {
			p.bar.SetTotal(expected)
		}
	}
	if !p.bar.IsStarted() {
		p.bar.Start()
	}
	p.bar.SetCurrent(received)
}

// Current returns the last reported byte count
func (p *ProgressBar) Current() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

// Finish stops rendering and returns the transfer summary
func (p *ProgressBar) Finish() Summary {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.bar != nil && p.bar.IsStarted() {
		p.bar.Finish()
	}
	return Summary{
		TotalBytes: p.current,
		TotalTime:  time.Since(p.startTime),
	}
}

// PrintSummary writes the transfer summary block
func PrintSummary(w io.Writer, s Summary) {
	line := "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"
	_, _ = fmt.Fprintf(w, "\n%s\n", line)
	_, _ = fmt.Fprintf(w, "%s✓ Transfer Complete%s\n\n", Colors.Green, Colors.Reset)
	_, _ = fmt.Fprintf(w, "Summary:\n")
	if s.URL != "" {
		_, _ = fmt.Fprintf(w, "  URL:          %s\n", s.URL)
	}
	if s.Status != "" {
		_, _ = fmt.Fprintf(w, "  Status:       %s\n", s.Status)
	}
	_, _ = fmt.Fprintf(w, "  Size:         %s\n", FormatBytes(s.TotalBytes))
	_, _ = fmt.Fprintf(w, "  Time:         %s\n", FormatDuration(s.TotalTime))
	if speed := s.AverageSpeed(); speed > 0 {
		_, _ = fmt.Fprintf(w, "  Avg Speed:    %s\n", FormatSpeed(speed))
	}
	if s.Destination != "" {
		_, _ = fmt.Fprintf(w, "  Saved to:     %s\n", s.Destination)
	}
	_, _ = fmt.Fprintf(w, "%s\n", line)
}
