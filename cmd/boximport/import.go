package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/llehouerou/musicbox/internal/errmsg"
	"github.com/llehouerou/musicbox/internal/nfc"
	"github.com/llehouerou/musicbox/internal/playlist"
	"github.com/llehouerou/musicbox/internal/store"
	"github.com/llehouerou/musicbox/internal/tags"
)

var errNoMusic = errors.New("no music files found")

type importResult struct {
	PlaylistID int64
	Name       string
	Tracks     int
	Skipped    int
	Bytes      uint64
	Duration   time.Duration
	TagID      string
}

// scanDir returns the music files under dir, sorted by path so disc and
// track prefixes in file names give the play order.
func scanDir(dir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if tags.IsMusicFile(path) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(paths)
	return paths, nil
}

func importDir(ctx context.Context, st *store.Store, dir, name, tagID string, log zerolog.Logger) (importResult, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return importResult{}, err
	}
	paths, err := scanDir(abs)
	if err != nil {
		return importResult{}, err
	}

	res := importResult{Name: name}
	if res.Name == "" {
		res.Name = filepath.Base(abs)
	}

	read := make([]*tags.Tag, 0, len(paths))
	for _, path := range paths {
		t, err := tags.Read(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg(errmsg.Format(errmsg.OpTagRead, err))
			res.Skipped++
			continue
		}
		if info, err := os.Stat(path); err == nil {
			res.Bytes += uint64(info.Size())
		}
		log.Debug().Str("path", path).Str("title", t.Title).Msg("Read tags")
		read = append(read, t)
	}
	slices.SortStableFunc(read, tags.Compare)

	tracks := make(playlist.Tracklist, 0, len(read))
	for _, t := range read {
		tracks = append(tracks, t.Track())
	}
	if len(tracks) == 0 {
		return importResult{}, fmt.Errorf("%w in %s", errNoMusic, abs)
	}
	res.Duration = tracks.Duration()

	res.PlaylistID, err = st.Playlists().Create(res.Name)
	if err != nil {
		return importResult{}, errmsg.WrapWith(errmsg.OpPlaylistCreate, res.Name, err)
	}
	if err := st.Playlists().AddTracks(ctx, res.PlaylistID, tracks); err != nil {
		return importResult{}, err
	}
	res.Tracks = len(tracks)

	if tagID != "" {
		res.TagID = nfc.Normalize(tagID)
		if err := st.Tags().Associate(res.TagID, res.PlaylistID); err != nil {
			return res, errmsg.WrapWith(errmsg.OpTagAssociate, res.TagID, err)
		}
	}
	return res, nil
}

func printResult(w io.Writer, res importResult) {
	fmt.Fprintf(w, "Imported %q (id %d): %d tracks, %s, %s\n",
		res.Name, res.PlaylistID, res.Tracks,
		formatDuration(res.Duration), humanize.Bytes(res.Bytes))
	if res.Skipped > 0 {
		fmt.Fprintf(w, "Skipped %d unreadable files\n", res.Skipped)
	}
	if res.TagID != "" {
		fmt.Fprintf(w, "Tag %s now plays it\n", res.TagID)
	}
}

func listPlaylists(st *store.Store, w io.Writer) error {
	playlists, err := st.Playlists().List()
	if err != nil {
		return err
	}
	bindings, err := st.Tags().List()
	if err != nil {
		return err
	}
	tagsByPlaylist := make(map[int64][]string)
	for _, b := range bindings {
		tagsByPlaylist[b.PlaylistID] = append(tagsByPlaylist[b.PlaylistID], b.TagID)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tTRACKS\tUPDATED\tTAGS")
	for _, p := range playlists {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n",
			p.ID, p.Name, p.TrackCount,
			humanize.Time(time.Unix(p.UpdatedAt, 0)),
			strings.Join(tagsByPlaylist[p.ID], ","))
	}
	return tw.Flush()
}

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
