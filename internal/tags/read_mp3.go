package tags

import "github.com/bogem/id3v2/v2"

func readID3v2(path string) (*Tag, error) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return nil, err
	}
	defer t.Close()

	return &Tag{
		Path:        path,
		Title:       t.Title(),
		Artist:      firstNonEmpty(t.Artist(), textFrame(t, "TPE2")),
		Album:       t.Album(),
		DiscNumber:  leadingNumber(textFrame(t, "TPOS")),
		TrackNumber: leadingNumber(textFrame(t, "TRCK")),
	}, nil
}

func textFrame(t *id3v2.Tag, id string) string {
	if tf, ok := t.GetLastFrame(id).(id3v2.TextFrame); ok {
		return tf.Text
	}
	return ""
}
