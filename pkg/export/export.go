// Package export writes final rankings to CSV, JSON and plain-text report
// formats for use outside the application.
package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// Format represents the format for exporting results
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatCSV, FormatJSON, FormatText:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", s)
	}
}

// Entry is one ranked song in an export.
type Entry struct {
	Rank   int             `json:"rank"`
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Artist string          `json:"artist,omitempty"`
	Album  string          `json:"album,omitempty"`
	Rating float64         `json:"rating"`
	Tier   tournament.Tier `json:"tier"`
}

// Ranking is the complete export data structure.
type Ranking struct {
	PlaylistID string    `json:"playlist_id"`
	ExportedAt time.Time `json:"exported_at"`
	Entries    []Entry   `json:"entries"`
}

// BuildRanking turns rating-ordered songs into an export ranking with tiers
// computed over the whole pool.
func BuildRanking(playlistID string, songs []tournament.Song) *Ranking {
	tiers := tournament.AssignTiers(songs)
	ranking := &Ranking{
		PlaylistID: playlistID,
		ExportedAt: time.Now().UTC(),
		Entries:    make([]Entry, 0, len(songs)),
	}
	for i, song := range songs {
		ranking.Entries = append(ranking.Entries, Entry{
			Rank:   i + 1,
			ID:     song.ID,
			Name:   song.Name,
			Artist: song.Artist,
			Album:  song.Album,
			Rating: song.Rating,
			Tier:   tiers[song.ID],
		})
	}
	return ranking
}

// Exporter handles ranking export operations
type Exporter struct{}

// NewExporter creates a new exporter instance
func NewExporter() *Exporter {
	return &Exporter{}
}

// ExportToFile exports a ranking to a file with the specified format. The
// write is atomic: content lands in a temporary file first and replaces the
// target on success.
func (e *Exporter) ExportToFile(ranking *Ranking, filePath string, format Format) error {
	dir := filepath.Dir(filePath)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	tempFile := filePath + ".tmp"
	file, err := os.Create(tempFile)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		file.Close()
		if err != nil {
			os.Remove(tempFile)
		}
	}()

	if err = e.Export(ranking, file, format); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if err = file.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	if err = os.Rename(tempFile, filePath); err != nil {
		os.Remove(tempFile)
		return fmt.Errorf("failed to replace target file: %w", err)
	}
	return nil
}

// Export writes a ranking to the writer in the given format.
func (e *Exporter) Export(ranking *Ranking, writer io.Writer, format Format) error {
	switch format {
	case FormatCSV:
		return e.ExportCSV(ranking, writer)
	case FormatJSON:
		return e.ExportJSON(ranking, writer)
	case FormatText:
		return e.ExportText(ranking, writer)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// ExportCSV writes the ranking as CSV with a header row.
func (e *Exporter) ExportCSV(ranking *Ranking, writer io.Writer) error {
	if len(ranking.Entries) == 0 {
		return fmt.Errorf("no entries to export")
	}

	csvWriter := csv.NewWriter(writer)
	defer csvWriter.Flush()

	headers := []string{"rank", "id", "name", "artist", "album", "rating", "tier"}
	if err := csvWriter.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range ranking.Entries {
		record := []string{
			strconv.Itoa(entry.Rank),
			entry.ID,
			entry.Name,
			entry.Artist,
			entry.Album,
			strconv.FormatFloat(entry.Rating, 'f', -1, 64),
			string(entry.Tier),
		}
		if err := csvWriter.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record for %s: %w", entry.ID, err)
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

// ExportJSON writes the ranking as indented JSON.
func (e *Exporter) ExportJSON(ranking *Ranking, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(ranking); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// ExportText writes a human-readable ranking report.
func (e *Exporter) ExportText(ranking *Ranking, writer io.Writer) error {
	if len(ranking.Entries) == 0 {
		return fmt.Errorf("no entries to export")
	}

	fmt.Fprintf(writer, "Final Ranking: %s\n", ranking.PlaylistID)
	fmt.Fprintf(writer, "Exported: %s\n\n", ranking.ExportedAt.Format(time.RFC3339))

	for _, entry := range ranking.Entries {
		line := fmt.Sprintf("%3d. [%s] %s", entry.Rank, entry.Tier, entry.Name)
		if entry.Artist != "" {
			line += " - " + entry.Artist
		}
		fmt.Fprintf(writer, "%s (%.0f)\n", line, entry.Rating)
	}
	return nil
}
