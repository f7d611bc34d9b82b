package room

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantKind Kind
		wantID   string
		wantErr  bool
	}{
		{name: "global", input: "playlists", wantKind: KindGlobal},
		{name: "playlist with id", input: "playlist:abc", wantKind: KindPlaylist, wantID: "abc"},
		{name: "numeric playlist", input: "playlist:42", wantKind: KindPlaylist, wantID: "42"},
		{name: "nfc tag", input: "nfc:04a2b3", wantKind: KindNFC, wantID: "04a2b3"},
		{name: "id may contain colon", input: "nfc:a:b", wantKind: KindNFC, wantID: "a:b"},
		{name: "empty playlist id", input: "playlist:", wantErr: true},
		{name: "empty nfc id", input: "nfc:", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "singular global", input: "playlist", wantErr: true},
		{name: "unknown prefix", input: "track:1", wantErr: true},
		{name: "case sensitive", input: "Playlists", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidRoom) {
					t.Fatalf("Parse(%q) error = %v, want ErrInvalidRoom", tt.input, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse(%q) unexpected error: %v", tt.input, err)
			}
			if got.Kind != tt.wantKind || got.ID != tt.wantID {
				t.Errorf("Parse(%q) = %+v, want kind %v id %q", tt.input, got, tt.wantKind, tt.wantID)
			}
			if got.String() != tt.input {
				t.Errorf("String() = %q, want %q", got.String(), tt.input)
			}
		})
	}
}

func TestBuilders(t *testing.T) {
	if got := Playlist(7); got != "playlist:7" {
		t.Errorf("Playlist(7) = %q", got)
	}
	if got := NFC("beef"); got != "nfc:beef" {
		t.Errorf("NFC(beef) = %q", got)
	}
	if !Valid(Playlist(1)) || !Valid(NFC("x")) || !Valid(Global) {
		t.Error("builders must produce valid names")
	}
}
