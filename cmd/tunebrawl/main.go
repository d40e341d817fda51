// Package main provides the command-line interface for the tunebrawl playlist
// song tournament application. It implements subcommands for playing a
// tournament in the terminal, serving the HTTP API, exporting results and
// resetting playlists.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"

	"github.com/tunebrawl/tunebrawl/pkg/config"
	"github.com/tunebrawl/tunebrawl/pkg/elo"
	"github.com/tunebrawl/tunebrawl/pkg/export"
	"github.com/tunebrawl/tunebrawl/pkg/logger"
	"github.com/tunebrawl/tunebrawl/pkg/source"
	"github.com/tunebrawl/tunebrawl/pkg/store"
	"github.com/tunebrawl/tunebrawl/pkg/tournament"
	"github.com/tunebrawl/tunebrawl/pkg/tui"
	"github.com/tunebrawl/tunebrawl/pkg/tui/screens"
	"github.com/tunebrawl/tunebrawl/pkg/web"
)

// Version information - set by build process
var (
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

// GlobalOptions defines global CLI flags
type GlobalOptions struct {
	Config  string `long:"config" short:"c" description:"Configuration file path" default:"tunebrawl.yaml"`
	Verbose bool   `long:"verbose" short:"v" description:"Enable verbose logging"`
	Version bool   `long:"version" description:"Show version information"`
}

// PlayCommand handles 'tunebrawl play': the interactive terminal tournament
type PlayCommand struct {
	Playlist string `long:"playlist" short:"p" description:"Playlist ID, or CSV file path with --source csv" required:"true"`
	Source   string `long:"source" description:"Track source (spotify/csv)" default:"spotify" choice:"spotify" choice:"csv"`
	Shuffle  bool   `long:"shuffle" description:"Shuffle songs before grouping"`

	Global *GlobalOptions
}

// ServeCommand handles 'tunebrawl serve': the HTTP API with live progress
type ServeCommand struct {
	Addr   string `long:"addr" description:"Listen address (overrides configuration)"`
	Source string `long:"source" description:"Track source (spotify/csv)" default:"spotify" choice:"spotify" choice:"csv"`

	Global *GlobalOptions
}

// ResultsCommand handles 'tunebrawl results': exports a finished ranking
type ResultsCommand struct {
	Playlist string `long:"playlist" short:"p" description:"Playlist ID" required:"true"`
	Output   string `long:"output" short:"o" description:"Output file path (stdout when omitted)"`
	Format   string `long:"format" description:"Export format (csv/json/text)" default:"csv"`

	Global *GlobalOptions
}

// ResetCommand handles 'tunebrawl reset': clears persisted tournament state
type ResetCommand struct {
	Playlist    string `long:"playlist" short:"p" description:"Playlist ID" required:"true"`
	KeepRatings bool   `long:"keep-ratings" description:"Keep song ratings for the next run"`

	Global *GlobalOptions
}

// ErrorCode represents CLI exit codes
type ErrorCode int

const (
	ExitSuccess ErrorCode = iota
	ExitConfigError
	ExitStorageError
	ExitTournamentError
	ExitExportError
)

// CLIError represents a CLI error with exit code
type CLIError struct {
	Code    ErrorCode
	Message string
}

func (e *CLIError) Error() string {
	return e.Message
}

func main() {
	if err := run(); err != nil {
		if cliErr, ok := err.(*CLIError); ok {
			fmt.Fprintln(os.Stderr, "Error:", cliErr.Message)
			os.Exit(int(cliErr.Code))
		}
		log.Fatal(err)
	}
}

func run() error {
	parser := flags.NewParser(nil, flags.Default)
	parser.Usage = "[OPTIONS] COMMAND [COMMAND-OPTIONS]"

	parser.AddCommand("play", "Play a tournament in the terminal", "", &PlayCommand{})
	parser.AddCommand("serve", "Serve the tournament HTTP API", "", &ServeCommand{})
	parser.AddCommand("results", "Export a finished ranking", "", &ResultsCommand{})
	parser.AddCommand("reset", "Clear tournament state for a playlist", "", &ResetCommand{})

	_, err := parser.Parse()
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			switch flagsErr.Type {
			case flags.ErrHelp:
				return nil
			case flags.ErrCommandRequired:
				fmt.Fprintln(os.Stderr, "Error: No command specified")
				parser.WriteHelp(os.Stderr)
				return &CLIError{Code: ExitConfigError, Message: "no command specified"}
			default:
				return &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("invalid arguments: %v", err)}
			}
		}
		return err
	}

	return nil
}

// runtime bundles everything a subcommand needs after setup
type runtime struct {
	cfg     *config.Config
	log     logger.Logger
	storage *store.SQLite
}

func (r *runtime) Close() {
	if err := r.storage.Close(); err != nil {
		r.log.Warn("failed to close storage", "error", err)
	}
}

func setup(global *GlobalOptions) (*runtime, error) {
	cfg, err := config.Load(global.Config)
	if err != nil {
		return nil, &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("failed to load configuration: %v", err)}
	}

	lg := logger.New()
	if global.Verbose {
		lg.SetLevel(logger.ParseLevel("debug"))
	} else {
		lg.SetLevel(logger.ParseLevel(cfg.LogLevel))
	}

	storage, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, &CLIError{Code: ExitStorageError, Message: fmt.Sprintf("failed to open database: %v", err)}
	}

	return &runtime{cfg: cfg, log: lg, storage: storage}, nil
}

func buildSource(ctx context.Context, rt *runtime, name string) (tournament.TrackSource, error) {
	switch name {
	case "csv":
		return source.NewCSVSource(), nil
	default:
		client, err := source.NewSpotifyClient(ctx, rt.cfg.Spotify)
		if err != nil {
			return nil, &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("failed to create Spotify client: %v", err)}
		}
		return client, nil
	}
}

// buildEngine translates the rating section of the configuration file into a
// validated rating engine. The K-factor is stored as a float in YAML but the
// engine works with whole-point sensitivity.
func buildEngine(cfg config.EloConfig) (*elo.Engine, error) {
	return elo.NewEngine(elo.Config{
		InitialRating: cfg.InitialRating,
		KFactor:       int(cfg.KFactor),
		MinRating:     cfg.MinRating,
		MaxRating:     cfg.MaxRating,
	})
}

func buildService(ctx context.Context, rt *runtime, sourceName string, shuffle bool) (*tournament.Service, error) {
	trackSource, err := buildSource(ctx, rt, sourceName)
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(rt.cfg.Elo)
	if err != nil {
		return nil, &CLIError{Code: ExitConfigError, Message: fmt.Sprintf("invalid rating configuration: %v", err)}
	}

	svc, err := tournament.NewService(tournament.Config{
		Store:    rt.storage,
		Source:   trackSource,
		Previews: source.NewITunesClient(rt.log),
		Engine:   engine,
		Log:      rt.log,
		Shuffle:  shuffle,
	})
	if err != nil {
		return nil, &CLIError{Code: ExitTournamentError, Message: fmt.Sprintf("failed to create tournament service: %v", err)}
	}
	return svc, nil
}

// Execute implements the Command interface for PlayCommand
func (c *PlayCommand) Execute(args []string) error {
	if c.Global != nil && c.Global.Version {
		return showVersion()
	}

	rt, err := setup(c.Global)
	if err != nil {
		return err
	}
	defer rt.Close()

	// Terminal output belongs to tview while playing; keep log records in a
	// side file instead of the screen
	logFile, err := os.OpenFile("tunebrawl.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err == nil {
		defer logFile.Close()
		rt.log = logger.NewWithWriter(logFile, logger.ParseLevel(rt.cfg.LogLevel))
	} else {
		rt.log = logger.Nop()
	}

	ctx := context.Background()
	svc, err := buildService(ctx, rt, c.Source, c.Shuffle || rt.cfg.UI.Shuffle)
	if err != nil {
		return err
	}

	app, err := tui.NewApp(rt.cfg, svc)
	if err != nil {
		return &CLIError{Code: ExitTournamentError, Message: fmt.Sprintf("failed to create TUI: %v", err)}
	}

	if err := app.RegisterScreen(tui.ScreenComparison, screens.NewComparisonScreen()); err != nil {
		return err
	}
	if err := app.RegisterScreen(tui.ScreenResults, screens.NewResultsScreen()); err != nil {
		return err
	}

	if err := app.StartTournament(c.Playlist); err != nil {
		return &CLIError{Code: ExitTournamentError, Message: err.Error()}
	}

	return app.Run()
}

// Execute implements the Command interface for ServeCommand
func (c *ServeCommand) Execute(args []string) error {
	if c.Global != nil && c.Global.Version {
		return showVersion()
	}

	rt, err := setup(c.Global)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := buildService(ctx, rt, c.Source, rt.cfg.UI.Shuffle)
	if err != nil {
		return err
	}

	hub := web.NewHub(rt.log)
	hub.Start()

	handlers := &web.Handlers{
		Service: svc,
		Journal: rt.storage,
		Hub:     hub,
		Log:     rt.log,
	}

	serverCfg := rt.cfg.Server
	if c.Addr != "" {
		serverCfg.Addr = c.Addr
	}

	server := web.NewServer(serverCfg, handlers.Router(), rt.log)
	return server.Run(ctx)
}

// Execute implements the Command interface for ResultsCommand
func (c *ResultsCommand) Execute(args []string) error {
	if c.Global != nil && c.Global.Version {
		return showVersion()
	}

	format, err := export.ParseFormat(c.Format)
	if err != nil {
		return &CLIError{Code: ExitExportError, Message: err.Error()}
	}

	rt, err := setup(c.Global)
	if err != nil {
		return err
	}
	defer rt.Close()

	ctx := context.Background()

	// Results only need persisted state, never a track source
	svc, err := tournament.NewService(tournament.Config{
		Store:  rt.storage,
		Source: source.NewCSVSource(),
		Log:    rt.log,
	})
	if err != nil {
		return &CLIError{Code: ExitTournamentError, Message: err.Error()}
	}

	tour, err := svc.Get(ctx, c.Playlist)
	if err != nil {
		return &CLIError{Code: ExitTournamentError, Message: fmt.Sprintf("failed to load tournament: %v", err)}
	}

	ranked, err := tour.FinalRanking()
	if err != nil {
		return &CLIError{Code: ExitTournamentError, Message: fmt.Sprintf("tournament is not finished: %v", err)}
	}

	ranking := export.BuildRanking(c.Playlist, ranked)
	exporter := export.NewExporter()

	if c.Output == "" {
		if err := exporter.Export(ranking, os.Stdout, format); err != nil {
			return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("export failed: %v", err)}
		}
		return nil
	}

	if err := exporter.ExportToFile(ranking, c.Output, format); err != nil {
		return &CLIError{Code: ExitExportError, Message: fmt.Sprintf("export failed: %v", err)}
	}

	fmt.Printf("Exported ranking to: %s\n", c.Output)
	return nil
}

// Execute implements the Command interface for ResetCommand
func (c *ResetCommand) Execute(args []string) error {
	if c.Global != nil && c.Global.Version {
		return showVersion()
	}

	rt, err := setup(c.Global)
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.storage.Reset(context.Background(), c.Playlist, c.KeepRatings); err != nil {
		return &CLIError{Code: ExitStorageError, Message: fmt.Sprintf("reset failed: %v", err)}
	}

	if c.KeepRatings {
		fmt.Printf("Reset tournament for %s, ratings kept\n", c.Playlist)
	} else {
		fmt.Printf("Reset tournament for %s\n", c.Playlist)
	}
	return nil
}

func showVersion() error {
	fmt.Printf("tunebrawl version %s\n", Version)
	fmt.Printf("Build date: %s\n", BuildDate)
	fmt.Printf("Git commit: %s\n", GitCommit)
	return nil
}
