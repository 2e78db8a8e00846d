package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/tidaldj/internal/formatter"
	"github.com/desertthunder/tidaldj/internal/models"
	"github.com/desertthunder/tidaldj/internal/repositories"
	"github.com/desertthunder/tidaldj/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibraryPlaylists lists playlists, from the API by default or from the local
// cache with --cached. API listings refresh the cache as a side effect.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	var playlists []models.Playlist

	if cmd.Bool("cached") {
		db, err := repositories.Open(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer db.Close()

		playlists, err = repositories.NewPlaylistRepository(db).List()
		if err != nil {
			return err
		}
	} else {
		if err := r.requireService(); err != nil {
			return err
		}

		var err error
		playlists, err = r.tidal.Playlists(ctx)
		if err != nil {
			return fmt.Errorf("failed to list playlists: %w", err)
		}

		r.cachePlaylists(playlists)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlists, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Playlists (%d)", len(playlists)))
	for _, pl := range playlists {
		r.writePlain("%s  %s (%d tracks)\n", pl.ID, pl.Name, pl.TrackCount)
	}
	return nil
}

// LibraryTracks lists the tracks in one playlist.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	playlistID := cmd.String("id")

	var tracks []models.Track

	if cmd.Bool("cached") {
		db, err := repositories.Open(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open cache: %w", err)
		}
		defer db.Close()

		tracks, err = repositories.NewTrackRepository(db).ListByPlaylist(playlistID)
		if err != nil {
			return err
		}
	} else {
		if err := r.requireService(); err != nil {
			return err
		}

		var err error
		tracks, err = r.tidal.PlaylistTracks(ctx, playlistID)
		if err != nil {
			return fmt.Errorf("failed to list tracks: %w", err)
		}

		r.cacheTracks(playlistID, tracks)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Tracks (%d)", len(tracks)))
	for i, t := range tracks {
		line := fmt.Sprintf("%3d. %s - %s", i+1, t.Artist, t.Title)
		if t.BPM != 0 {
			line = fmt.Sprintf("%s [%s BPM]", line, formatter.FormatBPM(t.BPM))
		}
		r.writePlain("%s\n", line)
	}
	return nil
}

// LibraryExport writes a playlist listing to stdout or a file in the chosen format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	playlistID := cmd.String("id")
	format := strings.ToLower(cmd.String("format"))
	outputPath := cmd.String("output")

	tracks, err := r.tidal.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return fmt.Errorf("failed to list tracks: %w", err)
	}

	playlist := r.lookupPlaylist(ctx, playlistID, len(tracks))

	var data []byte
	switch format {
	case "csv":
		data, err = formatter.ExportToCSV(playlist, tracks)
	case "markdown", "md":
		data, err = formatter.ExportToMarkdown(playlist, tracks)
	case "text", "txt":
		data = formatter.ExportToText(playlist, tracks)
	default:
		return fmt.Errorf("%w: unknown format %q (want csv, markdown, or text)", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if outputPath == "" {
		return r.writePlain("%s", string(data))
	}

	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write export: %w", err)
	}

	r.logger.Info("playlist exported", "path", outputPath, "format", format)
	return r.writePlain("✓ Exported %d tracks to %s\n", len(tracks), outputPath)
}

// LibrarySearch searches tracks and playlists.
func (r *Runner) LibrarySearch(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireService(); err != nil {
		return err
	}

	query := cmd.StringArg("query")

	results, err := r.tidal.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(results, cmd.Bool("pretty"))
	}

	r.writePlainHeader(fmt.Sprintf("Tracks (%d)", len(results.Tracks)))
	for _, t := range results.Tracks {
		r.writePlain("%s  %s - %s\n", t.ID, t.Artist, t.Title)
	}

	r.writePlainln("Playlists (%d)", len(results.Playlists))
	for _, pl := range results.Playlists {
		r.writePlain("%s  %s (%d tracks)\n", pl.ID, pl.Name, pl.TrackCount)
	}
	return nil
}

// lookupPlaylist finds metadata for the playlist being exported; when the
// listing lookup fails a stub with the id is used so exports still work.
func (r *Runner) lookupPlaylist(ctx context.Context, playlistID string, trackCount int) models.Playlist {
	if playlists, err := r.tidal.Playlists(ctx); err == nil {
		for _, pl := range playlists {
			if pl.ID == playlistID {
				return pl
			}
		}
	}

	return models.Playlist{ID: playlistID, Name: playlistID, TrackCount: trackCount}
}

// cachePlaylists refreshes the playlist cache; failures only log.
func (r *Runner) cachePlaylists(playlists []models.Playlist) {
	db, err := repositories.Open(r.config.Database)
	if err != nil {
		r.logger.Warn("skipping cache refresh", "error", err)
		return
	}
	defer db.Close()

	if err := repositories.NewPlaylistRepository(db).SaveAll(playlists); err != nil {
		r.logger.Warn("failed to cache playlists", "error", err)
	}
}

// cacheTracks refreshes one playlist's track cache; failures only log.
func (r *Runner) cacheTracks(playlistID string, tracks []models.Track) {
	db, err := repositories.Open(r.config.Database)
	if err != nil {
		r.logger.Warn("skipping cache refresh", "error", err)
		return
	}
	defer db.Close()

	if err := repositories.NewTrackRepository(db).SaveAll(playlistID, tracks); err != nil {
		r.logger.Warn("failed to cache tracks", "error", err)
	}
}
