package library

import (
	"os"
	"strings"

	"github.com/dhowden/tag"
)

// TitleReader returns a title stored in a file's container tags, or "".
type TitleReader func(path string) string

// ReadContainerTitle reads the title from MP4, MP3, FLAC or Ogg tags.
// Any read failure yields "".
func ReadContainerTitle(path string) string {
	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	metadata, err := tag.ReadFrom(file)
	if err != nil || metadata == nil {
		return ""
	}
	return strings.TrimSpace(metadata.Title())
}
