package imageio

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// ErrNotImage marks a selected file whose media type is not an image.
// Callers treat it as a silent no-op rather than a user-facing error.
var ErrNotImage = errors.New("selected file is not an image")

const defaultPrefix = "data:image/png;base64,"

// Load reads a user-selected file and returns it as a displayable data URI.
// The declared media type (file extension, falling back to content sniffing)
// must be an image type.
func Load(filename string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return Encode(filename, data)
}

// Encode turns raw image bytes into a displayable data URI.
func Encode(filename string, data []byte) (string, error) {
	mediaType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", ErrNotImage
	}

	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// Normalize coerces an image field into a displayable data URI. Already
// prefixed values pass through unchanged, so normalization is idempotent; a
// bare encoded string gets exactly one default PNG prefix.
func Normalize(s string) string {
	if strings.HasPrefix(s, "data:image/") {
		return s
	}
	return defaultPrefix + s
}
