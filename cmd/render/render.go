// Package render drives the anonymizer's live terminal feedback: a spinner
// tracking a running search's observer snapshots, and the colored,
// cycling title banner shown while a background-worker search is in
// flight.
package render

import (
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/kyleking/kanon/internal/kanon"
)

// pollInterval matches the ~17ms cadence the background-worker contract
// calls for: fast enough to feel live, slow enough not to contend with the
// search goroutine over the observer's mutex.
const pollInterval = 17 * time.Millisecond

// IsInteractive reports whether stdout is a terminal a human is watching.
// Progress and the title banner are both skipped when this is false, so
// piped or redirected output stays clean.
func IsInteractive() bool {
	return isatty.IsTerminal(os.Stdout.Fd())
}

// Progress polls a search's Observer and renders a spinner line describing
// its current best score and how many states it has explored.
type Progress struct {
	sp       *spinner.Spinner
	observer *kanon.Observer
	stop     chan struct{}
	done     chan struct{}
}

// NewProgress creates a Progress over observer. Call Start to begin polling.
func NewProgress(observer *kanon.Observer) *Progress {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Color("cyan") //nolint:errcheck

	return &Progress{sp: sp, observer: observer, stop: make(chan struct{}), done: make(chan struct{})}
}

// Start begins polling the observer at pollInterval and updating the
// spinner's suffix text until Stop is called.
func (p *Progress) Start() {
	p.sp.Start()

	go func() {
		defer close(p.done)

		ticker := time.NewTicker(pollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-p.stop:
				return
			case <-ticker.C:
				p.render(p.observer.Snapshot())
			}
		}
	}()
}

// Stop halts polling and clears the spinner line.
func (p *Progress) Stop() {
	close(p.stop)
	<-p.done
	p.sp.Stop()
}

func (p *Progress) render(snap kanon.Snapshot) {
	scoreText := "inf"
	if !isInf(snap.BestScore) {
		scoreText = fmt.Sprintf("%.2f", snap.BestScore)
	}

	totalText := "?"
	if snap.Total != kanon.Unbounded {
		totalText = fmt.Sprintf("%d", snap.Total)
	}

	style := lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	p.sp.Suffix = style.Render(fmt.Sprintf("  states %d/%s  best %s", snap.States, totalText, scoreText))
}

func isInf(f float64) bool {
	return f > 1e300 || f < -1e300
}

// titleColors cycles through the same five-color palette the terminal
// banner used, now expressed as lipgloss styles instead of raw escapes.
var titleColors = []lipgloss.Color{
	lipgloss.Color("1"), // red
	lipgloss.Color("3"), // yellow
	lipgloss.Color("2"), // green
	lipgloss.Color("4"), // blue
	lipgloss.Color("5"), // magenta
}

// Banner renders mode's name ("mg" or "ga") as a colored banner, the color
// of each character chosen by one of six positional patterns picked at
// random per call - a coordinate-based palette cycle rather than a fixed
// color, so repeated calls during a long-running search don't look static.
func Banner(mode string) string {
	label := strings.ToUpper(mode)
	pattern := rand.Intn(6) //nolint:gosec

	var b strings.Builder

	for y, line := range bannerArt(label) {
		for x, ch := range line {
			color := titleColors[bannerIndex(pattern, x, y, len(line))%len(titleColors)]
			b.WriteString(lipgloss.NewStyle().Foreground(color).Render(string(ch)))
		}

		b.WriteByte('\n')
	}

	return b.String()
}

// bannerIndex reproduces the six coordinate combinations the cycling title
// used to pick a palette offset: by column, by row, by diagonal, or a fixed
// no-op pattern.
func bannerIndex(pattern, x, y, width int) int {
	switch pattern {
	case 1:
		return x + y
	case 2:
		return x
	case 3:
		return y
	case 4:
		return (width - x) + y
	case 5:
		return width - x
	default:
		return 0
	}
}

// bannerArt draws label as a blocky three-line banner; simple enough to
// stay legible at any width, unlike the original's fixed-width ASCII art.
func bannerArt(label string) []string {
	top := strings.Repeat("=", len(label)*3)
	mid := "  " + strings.Join(strings.Split(label, ""), "   ") + "  "
	bot := top

	return []string{top, mid, bot}
}
