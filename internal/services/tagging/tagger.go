// Package tagging writes ID3v2 metadata and cover art onto finished
// recordings.
package tagging

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bogem/id3v2"

	"aircheck/internal/services"
)

// Metadata carries the frames written onto a recording.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	TrackNumber int
	RecordedAt  time.Time
}

// Tagger applies metadata to audio files.
type Tagger interface {
	Apply(path string, meta Metadata, artwork []byte) error
}

// ID3Tagger writes ID3v2 frames using bogem/id3v2.
type ID3Tagger struct{}

// NewID3Tagger constructs the default tagger.
func NewID3Tagger() *ID3Tagger {
	return &ID3Tagger{}
}

// Apply writes title, artist, album, track, and date frames, replacing any
// existing cover art when artwork is provided.
func (t *ID3Tagger) Apply(path string, meta Metadata, artwork []byte) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "tagging", "open", fmt.Sprintf("open %s", path), err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(meta.Title)
	tag.SetArtist(meta.Artist)
	tag.SetAlbum(meta.Album)
	// Album artist mirrors artist so per-show grouping works in players that
	// ignore TPE1.
	tag.AddTextFrame("TPE2", id3v2.EncodingUTF8, meta.Artist)
	if meta.TrackNumber > 0 {
		tag.AddTextFrame("TRCK", id3v2.EncodingUTF8, strconv.Itoa(meta.TrackNumber))
	}
	if !meta.RecordedAt.IsZero() {
		tag.AddTextFrame("TDRC", id3v2.EncodingUTF8, meta.RecordedAt.Format("2006-01-02"))
	}

	if len(artwork) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     artwork,
		})
	}

	if err := tag.Save(); err != nil {
		return services.Wrap(services.ErrExternalTool, "tagging", "save", fmt.Sprintf("save tags to %s", path), err)
	}
	return nil
}

var _ Tagger = (*ID3Tagger)(nil)
