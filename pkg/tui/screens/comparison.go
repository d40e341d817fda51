// Package screens provides TUI screen implementations for playlist song
// tournaments. This file implements the comparison screen where users pick
// the winner of the currently offered song pair.
package screens

import (
	"context"
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tunebrawl/tunebrawl/pkg/config"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
	"github.com/tunebrawl/tunebrawl/pkg/tui/components"
)

// ComparisonScreen implements the pairwise comparison interface
type ComparisonScreen struct {
	// UI components
	container    *tview.Flex
	leftPanel    *tview.Flex
	rightPanel   *tview.Flex
	songsPanel   *tview.Flex
	songCards    [2]*tview.TextView
	interlude    *tview.TextView
	controlPanel *tview.TextView
	progressBar  *components.ProgressBar
	statusBar    *tview.TextView

	// Comparison state
	currentPair      *tournament.Pair
	showingInterlude bool

	// App reference - we'll use any and cast as needed
	app any
}

// NewComparisonScreen creates a new comparison screen instance
func NewComparisonScreen() *ComparisonScreen {
	cs := &ComparisonScreen{
		container:    tview.NewFlex(),
		leftPanel:    tview.NewFlex(),
		rightPanel:   tview.NewFlex(),
		songsPanel:   tview.NewFlex(),
		interlude:    tview.NewTextView(),
		controlPanel: tview.NewTextView(),
		progressBar:  components.NewProgressBar(components.DefaultProgressBarConfig()),
		statusBar:    tview.NewTextView(),
	}

	cs.setupUI()
	return cs
}

// setupUI initializes the comparison screen layout
func (cs *ComparisonScreen) setupUI() {
	// Configure main container as horizontal split
	cs.container.SetDirection(tview.FlexColumn)

	// Setup left panel for song display
	cs.leftPanel.SetDirection(tview.FlexRow).
		SetBorder(true).
		SetTitle("Which song wins?").
		SetBorderColor(tcell.ColorBlue)

	// Setup right panel for controls
	cs.rightPanel.SetDirection(tview.FlexRow).
		SetBorder(true).
		SetTitle("Comparison Controls").
		SetBorderColor(tcell.ColorGreen)

	// Two song cards side by side
	cs.songsPanel.SetDirection(tview.FlexColumn)
	titles := [2]string{"Song 1 (Left)", "Song 2 (Right)"}
	for i := range cs.songCards {
		card := tview.NewTextView()
		card.SetBorder(true)
		card.SetTitle(titles[i])
		card.SetWordWrap(true)
		card.SetDynamicColors(true)

		cs.songCards[i] = card
		cs.songsPanel.AddItem(card, 0, 1, false)
	}

	// Group completion interlude, swapped in for the cards when a group ends
	cs.interlude.
		SetBorder(true).
		SetTitle("Group Complete")
	cs.interlude.SetWordWrap(true)
	cs.interlude.SetDynamicColors(true)
	cs.interlude.SetTextAlign(tview.AlignCenter)

	// Configure control panel
	cs.controlPanel.
		SetBorder(true).
		SetTitle("Instructions")
	cs.controlPanel.SetWordWrap(true)
	cs.controlPanel.SetDynamicColors(true)

	// Configure status bar
	cs.statusBar.
		SetBorder(true).
		SetTitle("Status")
	cs.statusBar.SetDynamicColors(true)

	// Layout left panel: songs panel takes all space
	cs.leftPanel.AddItem(cs.songsPanel, 0, 1, false)

	// Layout right panel: controls, progress, status
	cs.rightPanel.
		AddItem(cs.controlPanel, 0, 2, false).
		AddItem(cs.progressBar.GetContainer(), 6, 0, false).
		AddItem(cs.statusBar, 3, 0, false)

	// Main container: left panel (75%) and right panel (25%)
	cs.container.
		AddItem(cs.leftPanel, 0, 75, true).
		AddItem(cs.rightPanel, 0, 25, false)

	// Set up input handling
	cs.container.SetInputCapture(cs.handleInput)

	cs.updateInstructions()
}

// GetPrimitive returns the main container primitive
func (cs *ComparisonScreen) GetPrimitive() tview.Primitive {
	return cs.container
}

// OnEnter is called when the screen becomes active
func (cs *ComparisonScreen) OnEnter(app any) error {
	cs.app = app
	cs.loadCurrentPair()
	cs.updateDisplay()
	return nil
}

// OnExit is called when leaving the screen
func (cs *ComparisonScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (cs *ComparisonScreen) GetTitle() string {
	return "Comparison"
}

// handleInput processes keyboard input for the comparison screen
func (cs *ComparisonScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if cs.showingInterlude {
		switch event.Key() {
		case tcell.KeyEnter, tcell.KeyEscape:
			cs.dismissInterlude()
			return nil
		}
		if event.Rune() == ' ' {
			cs.dismissInterlude()
			return nil
		}
		return event
	}

	switch event.Key() {
	case tcell.KeyLeft:
		cs.selectWinner(0)
		return nil
	case tcell.KeyRight:
		cs.selectWinner(1)
		return nil
	case tcell.KeyUp, tcell.KeyDown:
		// Allow scrolling within song content
		return event
	}

	switch event.Rune() {
	case 'j':
		return tcell.NewEventKey(tcell.KeyDown, 0, tcell.ModNone)
	case 'k':
		return tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone)
	case '1':
		cs.selectWinner(0)
		return nil
	case '2':
		cs.selectWinner(1)
		return nil
	}

	return event
}

// loadCurrentPair pulls the offered pair from the active tournament
func (cs *ComparisonScreen) loadCurrentPair() {
	t := cs.getTournament()
	if t == nil {
		cs.currentPair = nil
		cs.setStatus("[red]No active tournament[-]")
		cs.updateSongDisplay()
		return
	}

	cs.currentPair = t.CurrentPair()
	cs.updateSongDisplay()

	if cs.currentPair == nil {
		cs.setStatus("[green]All comparisons done! Press 'r' for results[-]")
	} else {
		cs.setStatus("Pick the better song")
	}
}

// updateSongDisplay updates the display of both song cards
func (cs *ComparisonScreen) updateSongDisplay() {
	if cs.currentPair == nil {
		for i, card := range cs.songCards {
			card.SetText(fmt.Sprintf("[gray]No song %d available[-]", i+1))
		}
		return
	}

	cs.songCards[0].SetText(cs.formatSongContent(cs.currentPair.Left))
	cs.songCards[1].SetText(cs.formatSongContent(cs.currentPair.Right))
}

// formatSongContent creates formatted text for a song card
func (cs *ComparisonScreen) formatSongContent(song tournament.Song) string {
	var content strings.Builder

	// Name
	content.WriteString(fmt.Sprintf("[white::b]%s[white::-]\n\n", song.Name))

	// Artist (if available)
	if song.Artist != "" {
		content.WriteString(fmt.Sprintf("[yellow]Artist:[-] %s\n\n", song.Artist))
	}

	// Album (if available)
	if song.Album != "" {
		content.WriteString(fmt.Sprintf("[green]Album:[-] %s\n\n", song.Album))
	}

	// Current rating, unless the configuration hides it
	if cs.showRatings() {
		content.WriteString(fmt.Sprintf("[blue]Current Rating:[-] %.0f\n\n", song.Rating))
	}

	// Preview availability, resolved lazily through the app
	if cs.resolvePreview(song) != "" {
		content.WriteString("[aqua]♪ Preview available[-]")
	} else {
		content.WriteString("[gray]No preview[-]")
	}

	return content.String()
}

// selectWinner records the outcome for the chosen side
func (cs *ComparisonScreen) selectWinner(index int) {
	if cs.currentPair == nil {
		cs.setStatus("[yellow]No comparison in progress[-]")
		return
	}

	t := cs.getTournament()
	if t == nil {
		cs.setStatus("[red]No active tournament[-]")
		return
	}

	winner, loser := cs.currentPair.Left, cs.currentPair.Right
	if index == 1 {
		winner, loser = loser, winner
	}

	outcome, err := t.RecordOutcome(cs.getContext(), winner.ID, loser.ID)
	if err != nil {
		cs.setStatus(fmt.Sprintf("[red]Failed to record outcome: %v[-]", err))
		return
	}

	cs.loadCurrentPair()
	cs.updateDisplay()
	cs.setStatus(fmt.Sprintf("[green]%s wins[-] (%+.0f / %+.0f)",
		winner.Name, outcome.Winner.Delta, outcome.Loser.Delta))

	if len(outcome.GroupsCompleted) > 0 || outcome.Complete {
		cs.showInterlude(outcome)
	}
}

// showInterlude swaps the song cards for a group or tournament summary
func (cs *ComparisonScreen) showInterlude(outcome *tournament.Outcome) {
	var content strings.Builder
	content.WriteString("\n")

	for _, group := range outcome.GroupsCompleted {
		content.WriteString(fmt.Sprintf("[white::b]Group %d finished![white::-]\n\n", group.Index+1))
		content.WriteString("Advancing to the finals:\n")
		for _, song := range group.Qualifiers {
			content.WriteString(fmt.Sprintf("  [green]%s[-] - %s (%.0f)\n", song.Name, song.Artist, song.Rating))
		}
		content.WriteString("\n")
	}

	if outcome.FinalsStarted {
		content.WriteString("[yellow::b]The finals begin![yellow::-]\n\n")
	}
	if outcome.Complete {
		content.WriteString("[aqua::b]Tournament complete![aqua::-]\n\nPress 'r' to see the final ranking\n\n")
	}

	content.WriteString("[gray]Press Enter to continue[-]")

	cs.interlude.SetText(content.String())
	cs.leftPanel.Clear()
	cs.leftPanel.AddItem(cs.interlude, 0, 1, false)
	cs.showingInterlude = true
}

// dismissInterlude restores the song cards
func (cs *ComparisonScreen) dismissInterlude() {
	cs.leftPanel.Clear()
	cs.leftPanel.AddItem(cs.songsPanel, 0, 1, false)
	cs.showingInterlude = false
	cs.updateDisplay()
}

// updateDisplay refreshes the control panel components
func (cs *ComparisonScreen) updateDisplay() {
	cs.updateInstructions()
	cs.updateProgress()
}

// updateInstructions sets the control panel help text
func (cs *ComparisonScreen) updateInstructions() {
	instructions := `[white::b]How to compare:[white::-]

[yellow]←[-] or [yellow]1[-]  Left song wins
[yellow]→[-] or [yellow]2[-]  Right song wins

[yellow]↑/↓[-]      Scroll song details
[yellow]r[-]        Show results
[yellow]e[-]        Export ranking
[yellow]Ctrl+C[-]   Exit`

	cs.controlPanel.SetText(instructions)
}

// updateProgress feeds the current scope progress to the progress bar
func (cs *ComparisonScreen) updateProgress() {
	t := cs.getTournament()
	if t == nil {
		return
	}

	progress := t.Progress()
	label := fmt.Sprintf("%s | %s", scopeLabel(progress.Scope, t), t.Phase())
	cs.progressBar.Update(label, progress.Completed, progress.Total)
}

// scopeLabel renders a matchup scope for display
func scopeLabel(scope tournament.ScopeID, t *tournament.Tournament) string {
	if idx, ok := scope.GroupIndex(); ok {
		return fmt.Sprintf("Group %d of %d", idx+1, t.GroupCount())
	}
	return "Finals"
}

func (cs *ComparisonScreen) setStatus(text string) {
	cs.statusBar.SetText(text)
}

// getTournament casts the app reference to reach the active tournament
func (cs *ComparisonScreen) getTournament() *tournament.Tournament {
	if app, ok := cs.app.(interface {
		GetTournament() *tournament.Tournament
	}); ok {
		return app.GetTournament()
	}
	return nil
}

func (cs *ComparisonScreen) getContext() context.Context {
	if app, ok := cs.app.(interface{ GetContext() context.Context }); ok {
		return app.GetContext()
	}
	return context.Background()
}

func (cs *ComparisonScreen) resolvePreview(song tournament.Song) string {
	if song.PreviewURL != "" {
		return song.PreviewURL
	}
	if app, ok := cs.app.(interface{ ResolvePreview(songID string) string }); ok {
		return app.ResolvePreview(song.ID)
	}
	return ""
}

func (cs *ComparisonScreen) showRatings() bool {
	if app, ok := cs.app.(interface{ GetConfig() *config.Config }); ok {
		if cfg := app.GetConfig(); cfg != nil {
			return cfg.UI.ShowRatings
		}
	}
	return true
}
