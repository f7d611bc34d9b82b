package tags

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bogem/id3v2/v2"
)

// createMinimalMP3 writes one silent 128kbps MPEG1 Layer3 frame.
func createMinimalMP3(t *testing.T, path string) {
	t.Helper()
	mp3Frame := make([]byte, 417)
	mp3Frame[0] = 0xff
	mp3Frame[1] = 0xfb
	mp3Frame[2] = 0x90
	mp3Frame[3] = 0x00

	if err := os.WriteFile(path, mp3Frame, 0o600); err != nil {
		t.Fatalf("failed to create test MP3: %v", err)
	}
}

func TestReadID3v2(t *testing.T) {
	mp3Path := filepath.Join(t.TempDir(), "test.mp3")
	createMinimalMP3(t, mp3Path)
	tagMP3(t, mp3Path, func(tag *id3v2.Tag) {
		tag.SetTitle("Goodnight Moon")
		tag.SetAlbum("Bedtime")
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, "3/12")
		tag.AddTextFrame("TPOS", id3v2.EncodingUTF8, "2/2")
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, "Various")
	})

	info, err := readID3v2(mp3Path)
	if err != nil {
		t.Fatalf("readID3v2 failed: %v", err)
	}

	want := Tag{
		Path:        mp3Path,
		Title:       "Goodnight Moon",
		Artist:      "Various",
		Album:       "Bedtime",
		DiscNumber:  2,
		TrackNumber: 3,
	}
	if *info != want {
		t.Errorf("readID3v2() = %+v, want %+v", *info, want)
	}
}

func tagMP3(t *testing.T, path string, set func(*id3v2.Tag)) {
	t.Helper()
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatalf("failed to open MP3 for tagging: %v", err)
	}
	set(tag)
	if err := tag.Save(); err != nil {
		t.Fatalf("failed to save ID3 tags: %v", err)
	}
	tag.Close()
}

func TestRead_ArtistPrefersTrackArtist(t *testing.T) {
	mp3Path := filepath.Join(t.TempDir(), "test.mp3")
	createMinimalMP3(t, mp3Path)
	tagMP3(t, mp3Path, func(tag *id3v2.Tag) {
		tag.SetTitle("Song")
		tag.SetArtist("Solo Artist")
		tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, "Various")
	})

	info, err := Read(mp3Path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if info.Title != "Song" {
		t.Errorf("Title = %q, want %q", info.Title, "Song")
	}
	if info.Artist != "Solo Artist" {
		t.Errorf("Artist = %q, want %q", info.Artist, "Solo Artist")
	}
}

func TestRead_TitleFallsBackToFilename(t *testing.T) {
	mp3Path := filepath.Join(t.TempDir(), "my-song.mp3")
	createMinimalMP3(t, mp3Path)
	tagMP3(t, mp3Path, func(tag *id3v2.Tag) {
		tag.SetArtist("Artist")
		tag.SetAlbum("Album")
	})

	info, err := Read(mp3Path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if info.Title != "my-song" {
		t.Errorf("Title = %q, want %q (should fall back to filename)", info.Title, "my-song")
	}
}

func TestRead_UntaggedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "untagged.opus")
	if err := os.WriteFile(path, []byte("not really opus"), 0o600); err != nil {
		t.Fatal(err)
	}

	info, err := Read(path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if info.Title != "untagged" {
		t.Errorf("Title = %q, want %q", info.Title, "untagged")
	}
	if info.Duration != 0 {
		t.Errorf("Duration = %v, want 0", info.Duration)
	}
}

func TestRead_NonexistentFile(t *testing.T) {
	if _, err := Read("/nonexistent/song.mp3"); err == nil {
		t.Error("expected error for missing file")
	}
}
