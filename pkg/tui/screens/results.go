// Package screens provides TUI screen implementations for playlist song
// tournaments. This file implements the results screen where users view the
// ranking with tiers and trigger exports.
package screens

import (
	"fmt"
	"sort"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tunebrawl/tunebrawl/pkg/export"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// ResultsScreen implements the ranking display interface
type ResultsScreen struct {
	// UI components
	container     *tview.Flex
	mainLayout    *tview.Flex
	sidebarLayout *tview.Flex

	// Main ranking display
	rankingTable *tview.Table

	// Sidebar components
	statisticsPanel *tview.TextView

	// Control panels
	statusBar *tview.TextView

	// Current state
	entries []export.Entry
	isFinal bool

	// App reference
	app any
}

// NewResultsScreen creates a new results screen instance
func NewResultsScreen() *ResultsScreen {
	rs := &ResultsScreen{
		container:       tview.NewFlex(),
		mainLayout:      tview.NewFlex(),
		sidebarLayout:   tview.NewFlex(),
		rankingTable:    tview.NewTable(),
		statisticsPanel: tview.NewTextView(),
		statusBar:       tview.NewTextView(),
	}

	rs.setupUI()
	return rs
}

// setupUI initializes the results screen layout
func (rs *ResultsScreen) setupUI() {
	// Configure ranking table
	rs.rankingTable.
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0).
		SetBorder(true).
		SetTitle("Ranking").
		SetBorderColor(tcell.ColorBlue)

	// Configure statistics panel
	rs.statisticsPanel.
		SetBorder(true).
		SetTitle("Statistics")
	rs.statisticsPanel.SetDynamicColors(true)
	rs.statisticsPanel.SetWordWrap(true)

	// Configure status bar
	rs.statusBar.
		SetBorder(true).
		SetTitle("Status")
	rs.statusBar.SetDynamicColors(true)

	// Layout sidebar
	rs.sidebarLayout.SetDirection(tview.FlexRow).
		AddItem(rs.statisticsPanel, 0, 1, false)

	// Layout main area: table (75%) and sidebar (25%)
	rs.mainLayout.SetDirection(tview.FlexColumn).
		AddItem(rs.rankingTable, 0, 75, true).
		AddItem(rs.sidebarLayout, 0, 25, false)

	// Full layout: main area and status bar
	rs.container.SetDirection(tview.FlexRow).
		AddItem(rs.mainLayout, 0, 1, true).
		AddItem(rs.statusBar, 3, 0, false)

	rs.container.SetInputCapture(rs.handleInput)
}

// GetPrimitive returns the main primitive for the results screen
func (rs *ResultsScreen) GetPrimitive() tview.Primitive {
	return rs.container
}

// OnEnter is called when the results screen becomes active
func (rs *ResultsScreen) OnEnter(app any) error {
	rs.app = app

	rs.loadRanking()
	rs.updateTable()
	rs.updateStatistics()
	rs.updateStatus()

	return nil
}

// OnExit is called when leaving the results screen
func (rs *ResultsScreen) OnExit(app any) error {
	return nil
}

// GetTitle returns the screen title
func (rs *ResultsScreen) GetTitle() string {
	if rs.isFinal {
		return fmt.Sprintf("Final Ranking (%d songs)", len(rs.entries))
	}
	return fmt.Sprintf("Provisional Standings (%d songs)", len(rs.entries))
}

// handleInput processes keyboard input for the results screen
func (rs *ResultsScreen) handleInput(event *tcell.EventKey) *tcell.EventKey {
	if event.Key() == tcell.KeyEscape {
		rs.backToComparison()
		return nil
	}
	if event.Rune() == 'q' {
		rs.backToComparison()
		return nil
	}
	return event
}

func (rs *ResultsScreen) backToComparison() {
	if app, ok := rs.app.(interface{ ShowComparison() error }); ok {
		_ = app.ShowComparison()
	}
}

// loadRanking builds the displayed entries. A complete tournament yields the
// final ranking; an unfinished one falls back to provisional standings over
// every song sorted by rating
func (rs *ResultsScreen) loadRanking() {
	rs.entries = nil
	rs.isFinal = false

	t := rs.getTournament()
	if t == nil {
		return
	}

	ranked, err := t.FinalRanking()
	if err == nil {
		rs.isFinal = true
	} else {
		ranked = t.Songs()
		sort.SliceStable(ranked, func(i, j int) bool {
			return ranked[i].Rating > ranked[j].Rating
		})
	}

	rs.entries = export.BuildRanking(t.PlaylistID(), ranked).Entries
}

// updateTable redraws the ranking table
func (rs *ResultsScreen) updateTable() {
	rs.rankingTable.Clear()

	headers := []string{"Rank", "Tier", "Name", "Artist", "Album", "Rating"}
	for col, header := range headers {
		cell := tview.NewTableCell(header).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false)
		rs.rankingTable.SetCell(0, col, cell)
	}

	for i, entry := range rs.entries {
		row := i + 1
		rs.rankingTable.SetCell(row, 0, tview.NewTableCell(fmt.Sprintf("%d", entry.Rank)))
		rs.rankingTable.SetCell(row, 1, tview.NewTableCell(string(entry.Tier)).
			SetTextColor(tierColor(entry.Tier)))
		rs.rankingTable.SetCell(row, 2, tview.NewTableCell(entry.Name))
		rs.rankingTable.SetCell(row, 3, tview.NewTableCell(entry.Artist))
		rs.rankingTable.SetCell(row, 4, tview.NewTableCell(entry.Album))
		rs.rankingTable.SetCell(row, 5, tview.NewTableCell(fmt.Sprintf("%.0f", entry.Rating)).
			SetAlign(tview.AlignRight))
	}

	if len(rs.entries) > 0 {
		rs.rankingTable.Select(1, 0)
	}
}

// tierColor maps a tier to its display color
func tierColor(tier tournament.Tier) tcell.Color {
	switch tier {
	case tournament.TierS:
		return tcell.ColorGold
	case tournament.TierA:
		return tcell.ColorGreen
	case tournament.TierB:
		return tcell.ColorAqua
	case tournament.TierC:
		return tcell.ColorOrange
	case tournament.TierD:
		return tcell.ColorRed
	default:
		return tcell.ColorWhite
	}
}

// tierColorName maps a tier to a tview dynamic color tag
func tierColorName(tier tournament.Tier) string {
	switch tier {
	case tournament.TierS:
		return "gold"
	case tournament.TierA:
		return "green"
	case tournament.TierB:
		return "aqua"
	case tournament.TierC:
		return "orange"
	case tournament.TierD:
		return "red"
	default:
		return "white"
	}
}

// updateStatistics refreshes the sidebar metrics
func (rs *ResultsScreen) updateStatistics() {
	if len(rs.entries) == 0 {
		rs.statisticsPanel.SetText("[gray]No songs ranked yet[-]")
		return
	}

	var sum float64
	tierCounts := make(map[tournament.Tier]int)
	for _, entry := range rs.entries {
		sum += entry.Rating
		tierCounts[entry.Tier]++
	}
	mean := sum / float64(len(rs.entries))

	text := fmt.Sprintf("[white::b]Songs:[white::-] %d\n[white::b]Mean rating:[white::-] %.0f\n\n[white::b]Tiers:[white::-]\n", len(rs.entries), mean)
	for _, tier := range []tournament.Tier{tournament.TierS, tournament.TierA, tournament.TierB, tournament.TierC, tournament.TierD} {
		if count := tierCounts[tier]; count > 0 {
			text += fmt.Sprintf("  [%s]%s[-]: %d\n", tierColorName(tier), tier, count)
		}
	}

	rs.statisticsPanel.SetText(text)
}

// updateStatus refreshes the status bar
func (rs *ResultsScreen) updateStatus() {
	switch {
	case rs.getTournament() == nil:
		rs.statusBar.SetText("[red]No active tournament[-]")
	case rs.isFinal:
		rs.statusBar.SetText("[green]Tournament complete.[-] Press 'e' to export, 'q' to go back")
	default:
		rs.statusBar.SetText("[yellow]Tournament in progress.[-] Standings reflect current ratings, press 'c' to keep comparing")
	}
}

// getTournament casts the app reference to reach the active tournament
func (rs *ResultsScreen) getTournament() *tournament.Tournament {
	if app, ok := rs.app.(interface {
		GetTournament() *tournament.Tournament
	}); ok {
		return app.GetTournament()
	}
	return nil
}
