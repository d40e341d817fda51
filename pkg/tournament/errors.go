package tournament

import "errors"

// Error types for tournament operations
var (
	// ErrNotEnoughSongs means the source collection has fewer than 2 songs,
	// so there is nothing to compare.
	ErrNotEnoughSongs = errors.New("not enough songs to run a tournament")

	// ErrMissingScopeData means an operation was attempted against a group or
	// finals scope that has no matchup map. The persisted state is corrupted
	// or was never initialized; callers must not retry blindly.
	ErrMissingScopeData = errors.New("no matchup data for scope")

	// ErrStateNotFound is returned by a Store when no tournament has been
	// persisted for the playlist.
	ErrStateNotFound = errors.New("no tournament state for playlist")

	// ErrGateway wraps any persistence or track-source failure. It is never
	// conflated with empty state: a load failure must not look like a fresh
	// playlist, and a save failure must reach the caller so it can retry.
	ErrGateway = errors.New("gateway operation failed")

	// ErrStaleMatchup means an outcome was submitted for a pair that is
	// already completed. Rejecting it keeps a client retry from applying the
	// same Elo delta twice.
	ErrStaleMatchup = errors.New("matchup already completed")

	// ErrNotReady means the final ranking was requested before every finals
	// matchup has been completed.
	ErrNotReady = errors.New("tournament is not complete")

	// ErrUnknownSong means an outcome referenced a song ID that is not part
	// of the current scope.
	ErrUnknownSong = errors.New("song is not part of the current scope")

	// ErrPreviewNotFound is returned by a PreviewFinder when no preview audio
	// could be located for a track. Previews are best effort; this error
	// never affects tournament correctness.
	ErrPreviewNotFound = errors.New("no preview found")
)
