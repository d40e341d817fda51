// Package tui provides the terminal interface for playlist song tournaments.
// It implements the main TUI application structure with screen management and
// global keyboard shortcuts following the established terminal UI patterns.
package tui

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tunebrawl/tunebrawl/pkg/config"
	"github.com/tunebrawl/tunebrawl/pkg/export"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// ScreenType represents different screens in the TUI application
type ScreenType int

const (
	ScreenComparison ScreenType = iota
	ScreenResults
)

// String returns the string representation of ScreenType
func (s ScreenType) String() string {
	switch s {
	case ScreenComparison:
		return "comparison"
	case ScreenResults:
		return "results"
	default:
		return "unknown"
	}
}

// Screen interface defines the contract for all TUI screens
type Screen interface {
	// GetPrimitive returns the tview.Primitive for this screen
	GetPrimitive() tview.Primitive

	// OnEnter is called when the screen becomes active
	OnEnter(app any) error

	// OnExit is called when leaving the screen
	OnExit(app any) error

	// GetTitle returns the screen title for display
	GetTitle() string
}

// AppState represents the current application state
type AppState struct {
	mu             sync.RWMutex
	tournament     *tournament.Tournament
	config         *config.Config
	currentScreen  ScreenType
	previousScreen ScreenType
	isRunning      bool
	lastExportTime *time.Time // Track last successful export
}

// App represents the main TUI application
type App struct {
	tviewApp *tview.Application
	pages    *tview.Pages
	header   *tview.TextView
	footer   *tview.TextView
	state    *AppState
	service  *tournament.Service
	screens  map[ScreenType]Screen
	ctx      context.Context
	cancel   context.CancelFunc
	mu       sync.RWMutex
}

// KeyBinding represents a keyboard shortcut
type KeyBinding struct {
	Key         tcell.Key
	Rune        rune
	Description string
	Handler     func(app *App) error
}

// Global key bindings available across all screens
var globalKeyBindings = []KeyBinding{
	{Key: tcell.KeyCtrlC, Description: "Exit", Handler: (*App).Exit},
	{Key: tcell.KeyRune, Rune: 'r', Description: "Show results", Handler: (*App).ShowResults},
	{Key: tcell.KeyRune, Rune: 'c', Description: "Show comparison", Handler: (*App).ShowComparison},
	{Key: tcell.KeyRune, Rune: 'e', Description: "Export ranking", Handler: (*App).ExportRanking},
}

// NewApp creates a new TUI application instance
func NewApp(config *config.Config, service *tournament.Service) (*App, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	ctx, cancel := context.WithCancel(context.Background())

	app := &App{
		tviewApp: tview.NewApplication(),
		pages:    tview.NewPages(),
		header:   tview.NewTextView(),
		footer:   tview.NewTextView(),
		state: &AppState{
			config:        config,
			currentScreen: ScreenComparison,
			isRunning:     false,
		},
		service: service,
		screens: make(map[ScreenType]Screen),
		ctx:     ctx,
		cancel:  cancel,
	}

	app.setupUI()

	return app, nil
}

// setupUI initializes the UI components and layout
func (a *App) setupUI() {
	a.mu.Lock()
	defer a.mu.Unlock()

	// Configure header
	a.header.SetBorder(true).
		SetTitle("Playlist Song Tournament").
		SetTitleAlign(tview.AlignCenter).
		SetBackgroundColor(tcell.ColorDarkBlue)
	a.header.SetTextColor(tcell.ColorWhite)

	// Configure footer with help text
	a.footer.SetBorder(true).
		SetTitle("Keyboard Shortcuts").
		SetTitleAlign(tview.AlignCenter).
		SetBackgroundColor(tcell.ColorDarkGreen)
	a.footer.SetTextColor(tcell.ColorWhite)

	a.updateFooter()

	// Create main layout
	mainLayout := tview.NewFlex().SetDirection(tview.FlexRow)

	// Add header (fixed height)
	mainLayout.AddItem(a.header, 3, 0, false)

	// Add pages container (flexible)
	mainLayout.AddItem(a.pages, 0, 1, true)

	// Add footer (fixed height)
	mainLayout.AddItem(a.footer, 3, 0, false)

	// Set up global input capture
	mainLayout.SetInputCapture(a.handleGlobalInput)

	// Set the main layout as root
	a.tviewApp.SetRoot(mainLayout, true)

	// Configure application settings
	a.tviewApp.EnableMouse(true)
	a.tviewApp.SetBeforeDrawFunc(func(screen tcell.Screen) bool {
		a.updateHeader()
		return false
	})
}

// RegisterScreen registers a screen with the application
func (a *App) RegisterScreen(screenType ScreenType, screen Screen) error {
	if screen == nil {
		return fmt.Errorf("screen cannot be nil")
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.screens[screenType] = screen
	a.pages.AddPage(screenType.String(), screen.GetPrimitive(), true, false)

	return nil
}

// NavigateTo switches to the specified screen
func (a *App) NavigateTo(screenType ScreenType) error {
	a.state.mu.Lock()

	screen, exists := a.screens[screenType]
	if !exists {
		a.state.mu.Unlock()
		return fmt.Errorf("screen %s not registered", screenType.String())
	}

	// Get current screen for exit
	currentScreen, hasCurrentScreen := a.screens[a.state.currentScreen]
	previousScreen := a.state.currentScreen

	a.state.mu.Unlock()

	// Exit current screen (without lock to avoid deadlock)
	if hasCurrentScreen {
		if err := currentScreen.OnExit(a); err != nil {
			return fmt.Errorf("failed to exit screen %s: %w", previousScreen.String(), err)
		}
	}

	// Update state (with lock)
	a.state.mu.Lock()
	a.state.previousScreen = a.state.currentScreen
	a.state.currentScreen = screenType
	a.state.mu.Unlock()

	// Enter new screen (without lock to avoid deadlock)
	if err := screen.OnEnter(a); err != nil {
		// Restore previous screen on error
		a.state.mu.Lock()
		a.state.currentScreen = a.state.previousScreen
		a.state.mu.Unlock()
		return fmt.Errorf("failed to enter screen %s: %w", screenType.String(), err)
	}

	// Show the page
	a.pages.SwitchToPage(screenType.String())

	return nil
}

// ShowResults displays the results screen
func (a *App) ShowResults() error {
	return a.NavigateTo(ScreenResults)
}

// ShowComparison displays the comparison screen
func (a *App) ShowComparison() error {
	return a.NavigateTo(ScreenComparison)
}

// Exit stops the application
func (a *App) Exit() error {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()

	a.state.isRunning = false
	a.cancel()
	a.tviewApp.Stop()

	return nil
}

// StartTournament creates or resumes the tournament for a playlist and makes
// it the active one
func (a *App) StartTournament(playlistID string) error {
	t, err := a.service.Initialize(a.ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to start tournament: %w", err)
	}

	a.SetTournament(t)
	return nil
}

// ExportRanking writes the final ranking next to the database file
func (a *App) ExportRanking() error {
	a.state.mu.RLock()
	t := a.state.tournament
	a.state.mu.RUnlock()

	if t == nil {
		a.showErrorDialog("Export Error", "No active tournament to export")
		return fmt.Errorf("no active tournament to export")
	}

	ranked, err := t.FinalRanking()
	if err != nil {
		a.showErrorDialog("Export Error", "The tournament is not finished yet; complete all comparisons first")
		return fmt.Errorf("failed to build ranking: %w", err)
	}

	ranking := export.BuildRanking(t.PlaylistID(), ranked)
	filename := fmt.Sprintf("%s-ranking.csv", t.PlaylistID())

	if err := export.NewExporter().ExportToFile(ranking, filename, export.FormatCSV); err != nil {
		a.showErrorDialog("Export Failed", fmt.Sprintf("Failed to export ranking:\n\n%v", err))
		return fmt.Errorf("failed to export ranking: %w", err)
	}

	// Update last export time on success
	now := time.Now()
	a.state.mu.Lock()
	a.state.lastExportTime = &now
	a.state.mu.Unlock()

	// Force header update
	a.updateHeader()

	return nil
}

// Run starts the TUI application
func (a *App) Run() error {
	a.state.mu.Lock()
	a.state.isRunning = true
	a.state.mu.Unlock()

	// Always start with the comparison screen
	if err := a.NavigateTo(ScreenComparison); err != nil {
		return fmt.Errorf("failed to navigate to comparison screen: %w", err)
	}

	// Run the application
	return a.tviewApp.Run()
}

// Stop gracefully stops the application
func (a *App) Stop() {
	a.state.mu.RLock()
	running := a.state.isRunning
	a.state.mu.RUnlock()

	if running {
		a.Exit()
	}
}

// SetTournament updates the active tournament
func (a *App) SetTournament(t *tournament.Tournament) {
	a.state.mu.Lock()
	defer a.state.mu.Unlock()
	a.state.tournament = t
}

// GetTournament returns the active tournament
func (a *App) GetTournament() *tournament.Tournament {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.tournament
}

// GetService returns the tournament service
func (a *App) GetService() *tournament.Service {
	return a.service
}

// GetConfig returns the current configuration
func (a *App) GetConfig() *config.Config {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.config
}

// GetContext returns the application context, cancelled when the app exits
func (a *App) GetContext() context.Context {
	return a.ctx
}

// GetTViewApp returns the underlying tview application for advanced usage
func (a *App) GetTViewApp() *tview.Application {
	return a.tviewApp
}

// ResolvePreview returns preview audio for a song when one can be found.
// Best effort; an empty string means no preview
func (a *App) ResolvePreview(songID string) string {
	a.state.mu.RLock()
	t := a.state.tournament
	a.state.mu.RUnlock()

	if t == nil {
		return ""
	}
	return t.ResolvePreview(a.ctx, songID)
}

// handleGlobalInput handles global keyboard shortcuts
func (a *App) handleGlobalInput(event *tcell.EventKey) *tcell.EventKey {
	for _, binding := range globalKeyBindings {
		if (binding.Key != tcell.KeyRune && event.Key() == binding.Key) ||
			(binding.Key == tcell.KeyRune && event.Rune() == binding.Rune) {

			// Execute handler in a goroutine to prevent blocking
			go func(handler func(*App) error) {
				if err := handler(a); err != nil {
					// The handler already surfaced the error in a dialog
					_ = err
				}
			}(binding.Handler)

			return nil // Consume the event
		}
	}

	return event // Let other handlers process the event
}

// updateHeader updates the header text with current screen information
func (a *App) updateHeader() {
	a.state.mu.RLock()
	currentScreen := a.state.currentScreen
	t := a.state.tournament
	lastExport := a.state.lastExportTime
	a.state.mu.RUnlock()

	screen, exists := a.screens[currentScreen]
	if !exists {
		return
	}

	title := screen.GetTitle()
	tournamentInfo := ""

	if t != nil {
		tournamentInfo = fmt.Sprintf(" | Playlist: %s (%s)", t.PlaylistID(), t.Phase())
	}

	// Add export status
	exportStatus := ""
	if lastExport != nil {
		// Show relative time (e.g., "2m ago")
		elapsed := time.Since(*lastExport)
		if elapsed < time.Minute {
			exportStatus = fmt.Sprintf(" | Last exported: %ds ago", int(elapsed.Seconds()))
		} else if elapsed < time.Hour {
			exportStatus = fmt.Sprintf(" | Last exported: %dm ago", int(elapsed.Minutes()))
		} else {
			exportStatus = fmt.Sprintf(" | Last exported: %s", lastExport.Format("15:04"))
		}
	} else {
		exportStatus = " | Not exported yet"
	}

	headerText := fmt.Sprintf("Screen: %s%s%s", title, tournamentInfo, exportStatus)
	a.header.SetText(headerText)
}

// showErrorDialog displays an error message in a modal dialog
func (a *App) showErrorDialog(title, message string) {
	modal := tview.NewModal().
		SetText(message).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(buttonIndex int, buttonLabel string) {
			a.pages.RemovePage("error-dialog")
		})

	modal.SetTitle(title).
		SetBorder(true).
		SetBackgroundColor(tcell.ColorDarkRed)

	a.pages.AddPage("error-dialog", modal, true, true)
}

// updateFooter updates the footer with current key bindings
func (a *App) updateFooter() {
	helpText := ""
	for i, binding := range globalKeyBindings {
		if i > 0 {
			helpText += " | "
		}

		keyText := ""
		if binding.Key != tcell.KeyRune {
			keyText = tcell.KeyNames[binding.Key]
		} else {
			keyText = string(binding.Rune)
		}

		helpText += fmt.Sprintf("%s: %s", keyText, binding.Description)
	}

	a.footer.SetText(helpText)
}

// IsRunning returns whether the application is currently running
func (a *App) IsRunning() bool {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.isRunning
}

// GetCurrentScreen returns the current screen type
func (a *App) GetCurrentScreen() ScreenType {
	a.state.mu.RLock()
	defer a.state.mu.RUnlock()
	return a.state.currentScreen
}
