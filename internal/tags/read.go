package tags

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
)

// Read reads the tags and the stream duration of a music file. A file
// without readable tags still yields a Tag titled after its file name.
func Read(path string) (*Tag, error) {
	t, err := readTags(path)
	if err != nil {
		if _, statErr := os.Stat(path); statErr != nil {
			return nil, statErr
		}
		t = &Tag{Path: path}
	}
	if t.Title == "" {
		t.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if d, err := ReadDuration(path); err == nil {
		t.Duration = d
	}
	return t, nil
}

func readTags(path string) (*Tag, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		if strings.EqualFold(filepath.Ext(path), ExtMP3) {
			// dhowden/tag rejects some UTF-16 ID3 frames that id3v2 reads
			return readID3v2(path)
		}
		return nil, err
	}

	track, _ := m.Track()
	disc, _ := m.Disc()
	return &Tag{
		Path:        path,
		Title:       m.Title(),
		Artist:      firstNonEmpty(m.Artist(), m.AlbumArtist()),
		Album:       m.Album(),
		DiscNumber:  disc,
		TrackNumber: track,
	}, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
