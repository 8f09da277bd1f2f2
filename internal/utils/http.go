package utils

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ErrInvalidRange is returned by ParseRangeHeader for unsatisfiable ranges.
var ErrInvalidRange = errors.New("invalid byte range")

// HTTPRange is an inclusive byte range.
type HTTPRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the range.
func (r HTTPRange) Length() int64 {
	return r.End - r.Start + 1
}

// ParseRangeHeader parses a single "bytes=start-end" or "bytes=-suffix"
// range against a file of fileSize bytes. An end past the file is clamped.
func ParseRangeHeader(rangeHeader string, fileSize int64) (*HTTPRange, error) {
	ranges, ok := strings.CutPrefix(rangeHeader, "bytes=")
	if !ok || strings.Contains(ranges, ",") {
		return nil, ErrInvalidRange
	}
	startStr, endStr, ok := strings.Cut(ranges, "-")
	if !ok {
		return nil, ErrInvalidRange
	}

	if startStr == "" {
		// last N bytes, used by players probing the moov box
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 || fileSize == 0 {
			return nil, ErrInvalidRange
		}
		if n > fileSize {
			n = fileSize
		}
		return &HTTPRange{Start: fileSize - n, End: fileSize - 1}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 || start >= fileSize {
		return nil, ErrInvalidRange
	}
	end := fileSize - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, ErrInvalidRange
		}
		if end >= fileSize {
			end = fileSize - 1
		}
	}
	return &HTTPRange{Start: start, End: end}, nil
}

// PackageContentType returns the MIME type for a file in a DASH package.
func PackageContentType(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "mpd":
		return "application/dash+xml"
	case "m4s":
		return "video/iso.segment"
	case "mp4", "m4v":
		return "video/mp4"
	case "m4a":
		return "audio/mp4"
	case "vtt":
		return "text/vtt"
	case "xml":
		return "application/xml"
	default:
		return "application/octet-stream"
	}
}

// ServeFileWithRange writes filePath to w, honouring HEAD and a single
// Range header.
func ServeFileWithRange(w http.ResponseWriter, r *http.Request, filePath string, contentType string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileInfo, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}
	fileSize := fileInfo.Size()

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Accept-Ranges", "bytes")

	rangeHeader := r.Header.Get("Range")
	if rangeHeader == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(fileSize, 10))
		w.WriteHeader(http.StatusOK)
		if r.Method == http.MethodHead {
			return nil
		}
		_, err = io.Copy(w, file)
		return err
	}

	httpRange, err := ParseRangeHeader(rangeHeader, fileSize)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", fileSize))
		w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
		return nil
	}

	if _, err := file.Seek(httpRange.Start, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek: %w", err)
	}

	w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", httpRange.Start, httpRange.End, fileSize))
	w.Header().Set("Content-Length", strconv.FormatInt(httpRange.Length(), 10))
	w.WriteHeader(http.StatusPartialContent)
	if r.Method == http.MethodHead {
		return nil
	}

	_, err = io.CopyN(w, file, httpRange.Length())
	return err
}
