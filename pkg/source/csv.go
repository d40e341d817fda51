package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tunebrawl/tunebrawl/pkg/tournament"
)

// ErrCSVParsing is returned when a CSV track file cannot be parsed.
var ErrCSVParsing = errors.New("CSV parsing failed")

// CSVColumns maps track fields to column names (with a header row) or
// zero-based column indices (without one).
type CSVColumns struct {
	ID      string `yaml:"id" json:"id"`           // Required
	Name    string `yaml:"name" json:"name"`       // Required
	Artist  string `yaml:"artist" json:"artist"`   // Optional
	Album   string `yaml:"album" json:"album"`     // Optional
	Cover   string `yaml:"cover" json:"cover"`     // Optional
	Preview string `yaml:"preview" json:"preview"` // Optional
}

// DefaultCSVColumns returns the column names expected by default.
func DefaultCSVColumns() CSVColumns {
	return CSVColumns{
		ID:      "id",
		Name:    "name",
		Artist:  "artist",
		Album:   "album",
		Cover:   "cover_url",
		Preview: "preview_url",
	}
}

// CSVSource reads tracks from a local CSV file, one file per playlist ID.
// It implements tournament.TrackSource for offline use.
type CSVSource struct {
	Columns   CSVColumns
	HasHeader bool
	Delimiter rune
}

// NewCSVSource returns a source with default column names, a header row and
// comma separation.
func NewCSVSource() *CSVSource {
	return &CSVSource{
		Columns:   DefaultCSVColumns(),
		HasHeader: true,
		Delimiter: ',',
	}
}

// FetchTracks treats the playlist ID as a file path and parses it.
func (s *CSVSource) FetchTracks(_ context.Context, playlistID string) ([]tournament.Song, error) {
	file, err := os.Open(playlistID)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", tournament.ErrGateway, playlistID, err)
	}
	defer file.Close()

	songs, err := s.Parse(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", tournament.ErrGateway, playlistID, err)
	}
	return songs, nil
}

// Parse reads tracks from a CSV reader using the configured columns.
func (s *CSVSource) Parse(reader io.Reader) ([]tournament.Song, error) {
	csvReader := csv.NewReader(reader)
	if s.Delimiter != 0 {
		csvReader.Comma = s.Delimiter
	}

	var songs []tournament.Song
	var columnMap map[string]int
	rowNumber := 0

	for {
		record, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: failed to read CSV: %v", ErrCSVParsing, err)
		}

		rowNumber++

		if rowNumber == 1 {
			if s.HasHeader {
				columnMap = s.buildColumnMap(record)
				if err := requireColumns(columnMap); err != nil {
					return nil, err
				}
				continue
			}
			columnMap = s.buildColumnMapFromIndices(len(record))
			if err := requireColumns(columnMap); err != nil {
				return nil, err
			}
		}

		song, err := parseCSVRow(record, columnMap, rowNumber)
		if err != nil {
			return nil, err
		}
		songs = append(songs, song)
	}

	return songs, nil
}

// buildColumnMap resolves configured column names against the header row.
func (s *CSVSource) buildColumnMap(headers []string) map[string]int {
	columnMap := make(map[string]int)
	for i, header := range headers {
		name := strings.TrimSpace(strings.ToLower(header))
		switch name {
		case strings.ToLower(s.Columns.ID):
			columnMap["id"] = i
		case strings.ToLower(s.Columns.Name):
			columnMap["name"] = i
		case strings.ToLower(s.Columns.Artist):
			columnMap["artist"] = i
		case strings.ToLower(s.Columns.Album):
			columnMap["album"] = i
		case strings.ToLower(s.Columns.Cover):
			columnMap["cover"] = i
		case strings.ToLower(s.Columns.Preview):
			columnMap["preview"] = i
		}
	}
	return columnMap
}

// buildColumnMapFromIndices interprets configured columns as numeric indices.
func (s *CSVSource) buildColumnMapFromIndices(numColumns int) map[string]int {
	columnMap := make(map[string]int)
	assign := func(field, value string) {
		if idx, err := strconv.Atoi(value); err == nil && idx >= 0 && idx < numColumns {
			columnMap[field] = idx
		}
	}
	assign("id", s.Columns.ID)
	assign("name", s.Columns.Name)
	assign("artist", s.Columns.Artist)
	assign("album", s.Columns.Album)
	assign("cover", s.Columns.Cover)
	assign("preview", s.Columns.Preview)
	return columnMap
}

func requireColumns(columnMap map[string]int) error {
	for _, field := range []string{"id", "name"} {
		if _, ok := columnMap[field]; !ok {
			return fmt.Errorf("%w: required column %q not found", ErrCSVParsing, field)
		}
	}
	return nil
}

func parseCSVRow(record []string, columnMap map[string]int, rowNumber int) (tournament.Song, error) {
	field := func(name string) string {
		idx, ok := columnMap[name]
		if !ok || idx >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[idx])
	}

	song := tournament.Song{
		ID:            field("id"),
		Name:          field("name"),
		Artist:        field("artist"),
		Album:         field("album"),
		AlbumCoverURL: field("cover"),
		PreviewURL:    field("preview"),
	}
	if song.ID == "" {
		return tournament.Song{}, fmt.Errorf("%w: row %d has no ID", ErrCSVParsing, rowNumber)
	}
	if song.Name == "" {
		return tournament.Song{}, fmt.Errorf("%w: row %d has no name", ErrCSVParsing, rowNumber)
	}
	if err := tournament.ValidateSongID(song.ID); err != nil {
		return tournament.Song{}, fmt.Errorf("%w: row %d: %v", ErrCSVParsing, rowNumber, err)
	}
	return song, nil
}
