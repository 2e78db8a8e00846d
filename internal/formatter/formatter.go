// package formatter exports playlist listings to CSV, Markdown, and plain text
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/desertthunder/tidaldj/internal/models"
)

// FormatBPM renders a tempo hint, em-dash when unknown.
func FormatBPM(bpm float64) string {
	if bpm == 0 {
		return "—"
	}
	return strconv.FormatFloat(bpm, 'f', -1, 64)
}

// ExportToCSV converts a playlist and its tracks to CSV with columns: ID, Title, Artist, Album, BPM, ArtworkURL
func ExportToCSV(playlist models.Playlist, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artist", "Album", "BPM", "ArtworkURL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range tracks {
		bpm := ""
		if track.BPM != 0 {
			bpm = strconv.FormatFloat(track.BPM, 'f', -1, 64)
		}

		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			bpm,
			track.ArtworkURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist and its tracks to a Markdown document
func ExportToMarkdown(playlist models.Playlist, tracks []models.Track) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("# %s\n\n", playlist.Name))

	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("%s\n\n", playlist.Description))
	}

	buf.WriteString(fmt.Sprintf("**Tracks:** %d\n\n", len(tracks)))
	buf.WriteString("| # | Title | Artist | Album | BPM |\n")
	buf.WriteString("|---|-------|--------|-------|-----|\n")

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("| %d | %s | %s | %s | %s |\n",
			i+1, track.Title, track.Artist, track.Album, FormatBPM(track.BPM)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a playlist and its tracks to a plain text listing
func ExportToText(playlist models.Playlist, tracks []models.Track) []byte {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("%s\n", playlist.Name))
	if playlist.Description != "" {
		buf.WriteString(fmt.Sprintf("%s\n", playlist.Description))
	}
	buf.WriteString(fmt.Sprintf("%d tracks\n\n", len(tracks)))

	for i, track := range tracks {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, track.Artist, track.Title))
		if track.Album != "" {
			buf.WriteString(fmt.Sprintf("   Album: %s\n", track.Album))
		}
		if track.BPM != 0 {
			buf.WriteString(fmt.Sprintf("   BPM: %s\n", FormatBPM(track.BPM)))
		}
	}

	return buf.Bytes()
}
