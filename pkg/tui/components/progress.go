// Package components provides reusable TUI components for playlist song
// tournaments. This file implements a textual progress bar that tracks
// comparison completion within the current tournament scope.
package components

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// ProgressBar displays comparison completion for one matchup scope
type ProgressBar struct {
	// UI components
	container *tview.Flex
	bar       *tview.TextView
	label     *tview.TextView

	// Display configuration
	width         int
	progressColor tcell.Color
	completeColor tcell.Color
	textColor     tcell.Color
	borderColor   tcell.Color

	// Current values
	completed int
	total     int
}

// ProgressBarConfig holds configuration options for the progress bar
type ProgressBarConfig struct {
	Width         int
	ProgressColor tcell.Color
	CompleteColor tcell.Color
	TextColor     tcell.Color
	BorderColor   tcell.Color
}

// DefaultProgressBarConfig returns sensible defaults for the progress bar
func DefaultProgressBarConfig() ProgressBarConfig {
	return ProgressBarConfig{
		Width:         30,
		ProgressColor: tcell.ColorBlue,
		CompleteColor: tcell.ColorGreen,
		TextColor:     tcell.ColorWhite,
		BorderColor:   tcell.ColorDarkGray,
	}
}

// NewProgressBar creates a new progress bar component
func NewProgressBar(config ProgressBarConfig) *ProgressBar {
	p := &ProgressBar{
		container:     tview.NewFlex(),
		bar:           tview.NewTextView(),
		label:         tview.NewTextView(),
		width:         config.Width,
		progressColor: config.ProgressColor,
		completeColor: config.CompleteColor,
		textColor:     config.TextColor,
		borderColor:   config.BorderColor,
	}

	// Set default values if not specified
	if p.width <= 0 {
		p.width = 30
	}
	if p.progressColor == 0 {
		p.progressColor = tcell.ColorBlue
	}
	if p.completeColor == 0 {
		p.completeColor = tcell.ColorGreen
	}
	if p.textColor == 0 {
		p.textColor = tcell.ColorWhite
	}
	if p.borderColor == 0 {
		p.borderColor = tcell.ColorDarkGray
	}

	p.initializeUI()
	return p
}

// initializeUI sets up the progress bar layout and styling
func (p *ProgressBar) initializeUI() {
	p.bar.SetBorder(true).SetTitle("Progress")
	p.bar.SetBorderColor(p.borderColor)
	p.bar.SetTextColor(p.textColor)
	p.bar.SetDynamicColors(true)
	p.bar.SetTextAlign(tview.AlignCenter)

	p.label.SetTextColor(p.textColor)
	p.label.SetDynamicColors(true)
	p.label.SetTextAlign(tview.AlignCenter)

	p.container.SetDirection(tview.FlexRow).
		AddItem(p.bar, 0, 2, false).
		AddItem(p.label, 1, 0, false)

	p.refresh("")
}

// GetContainer returns the primitive holding the progress bar
func (p *ProgressBar) GetContainer() tview.Primitive {
	return p.container
}

// Update sets the current scope label and completion counts
func (p *ProgressBar) Update(label string, completed, total int) {
	p.completed = completed
	p.total = total
	p.refresh(label)
}

// Completed returns the current completed count
func (p *ProgressBar) Completed() int {
	return p.completed
}

// Total returns the current total count
func (p *ProgressBar) Total() int {
	return p.total
}

func (p *ProgressBar) refresh(label string) {
	p.bar.SetText(p.renderBar())
	p.label.SetText(label)
}

// renderBar draws the progress bar with percentage and counts
func (p *ProgressBar) renderBar() string {
	if p.total <= 0 {
		return fmt.Sprintf("[%s]%s[-] 0/0", colorTag(p.progressColor), strings.Repeat("░", p.width))
	}

	ratio := float64(p.completed) / float64(p.total)
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(p.width))

	color := p.progressColor
	if p.completed >= p.total {
		color = p.completeColor
	}

	return fmt.Sprintf("[%s]%s%s[-] %d/%d (%.0f%%)",
		colorTag(color),
		strings.Repeat("█", filled),
		strings.Repeat("░", p.width-filled),
		p.completed, p.total, ratio*100)
}

// colorTag converts a tcell color into a tview dynamic color tag name
func colorTag(c tcell.Color) string {
	for name, color := range tcell.ColorNames {
		if color == c {
			return name
		}
	}
	return "white"
}
