package imageio

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

// Minimal PNG header so content sniffing recognizes an image even without
// a useful extension.
var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func TestLoad(t *testing.T) {
	tests := []struct {
		name       string
		filename   string
		data       []byte
		wantPrefix string
		wantErr    error
	}{
		{
			name:       "png by extension",
			filename:   "photo.png",
			data:       pngHeader,
			wantPrefix: "data:image/png;base64,",
		},
		{
			name:       "jpeg by extension",
			filename:   "selfie.JPG",
			data:       []byte{0xFF, 0xD8, 0xFF},
			wantPrefix: "data:image/jpeg;base64,",
		},
		{
			name:       "no extension, sniffed content",
			filename:   "upload",
			data:       pngHeader,
			wantPrefix: "data:image/png;base64,",
		},
		{
			name:     "text file rejected",
			filename: "notes.txt",
			data:     []byte("just some text"),
			wantErr:  ErrNotImage,
		},
		{
			name:     "unknown binary rejected",
			filename: "blob",
			data:     []byte{0x00, 0x01, 0x02, 0x03},
			wantErr:  ErrNotImage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(tt.filename, bytes.NewReader(tt.data))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if !strings.HasPrefix(got, tt.wantPrefix) {
				t.Errorf("Load() = %q, want prefix %q", got, tt.wantPrefix)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	prefixed := "data:image/jpeg;base64,/9j/4AAQ"

	if got := Normalize(prefixed); got != prefixed {
		t.Errorf("Normalize(prefixed) = %q, want unchanged input", got)
	}

	bare := "iVBORw0KGgo="
	got := Normalize(bare)
	if got != "data:image/png;base64,"+bare {
		t.Errorf("Normalize(bare) = %q, want single default prefix", got)
	}

	// Idempotence: a second pass never double-prefixes.
	if again := Normalize(got); again != got {
		t.Errorf("Normalize(Normalize(x)) = %q, want %q", again, got)
	}
}
