package mpris

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Album art file names, best first. Matching ignores case.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png", "folder.jpeg",
	"front.jpg", "front.png", "front.jpeg",
}

// CoverURL returns a file:// URL for the album art next to trackPath, or
// "" when the directory has none.
func CoverURL(trackPath string) string {
	if trackPath == "" {
		return ""
	}
	dir := filepath.Dir(trackPath)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}

	found := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			found[strings.ToLower(e.Name())] = e.Name()
		}
	}
	for _, name := range coverNames {
		if actual, ok := found[name]; ok {
			return (&url.URL{Scheme: "file", Path: filepath.Join(dir, actual)}).String()
		}
	}
	return ""
}
