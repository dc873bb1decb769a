package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRouteForTitle(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		wantRoute string
		wantExact bool
	}{
		{"pixar", "Pixar", "pixar", true},
		{"comics", "Comics", "comic", true},
		{"ghibli", "Studio Ghibli", "ghibli", true},
		{"oil painting", "Oil Painting", "oil", true},
		{"pencil sketch", "Pencil Sketch", "sketch", true},
		{"cartoon", "Cartoon", "cartoon", true},
		// The default-to-pixar fallback is deliberate contract behavior,
		// not an error path.
		{"unknown title", "Unknown Style", "pixar", false},
		{"case sensitive", "pixar", "pixar", false},
		{"empty title", "", "pixar", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			route, exact := RouteForTitle(tt.title)
			if route != tt.wantRoute || exact != tt.wantExact {
				t.Errorf("RouteForTitle(%q) = (%q, %v), want (%q, %v)",
					tt.title, route, exact, tt.wantRoute, tt.wantExact)
			}
		})
	}
}

func TestDefaultCatalog(t *testing.T) {
	catalog := DefaultCatalog()
	if len(catalog) != 5 {
		t.Fatalf("DefaultCatalog() has %d entries, want 5", len(catalog))
	}

	seen := make(map[int]bool)
	for _, style := range catalog {
		if style.Title == "" || style.Description == "" {
			t.Errorf("catalog entry %d missing title or description", style.ID)
		}
		if seen[style.ID] {
			t.Errorf("duplicate style id %d", style.ID)
		}
		seen[style.ID] = true
	}
}

func TestFindStyle(t *testing.T) {
	catalog := DefaultCatalog()

	style, ok := FindStyle(catalog, 3)
	if !ok || style.Title != "Pixar" {
		t.Errorf("FindStyle(3) = (%+v, %v), want Pixar", style, ok)
	}

	if _, ok := FindStyle(catalog, 99); ok {
		t.Error("FindStyle(99) found a style, want none")
	}
}

func TestLoadCatalog(t *testing.T) {
	t.Run("empty path returns builtin", func(t *testing.T) {
		catalog, err := LoadCatalog("")
		if err != nil {
			t.Fatalf("LoadCatalog(\"\") error: %v", err)
		}
		if len(catalog) != len(DefaultCatalog()) {
			t.Errorf("got %d styles, want %d", len(catalog), len(DefaultCatalog()))
		}
	})

	t.Run("yaml override", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "styles.yaml")
		content := `styles:
  - id: 1
    title: Watercolor
    description: Soft washes of color.
    image_url: /images/watercolor.png
`
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}

		catalog, err := LoadCatalog(path)
		if err != nil {
			t.Fatalf("LoadCatalog() error: %v", err)
		}
		if len(catalog) != 1 || catalog[0].Title != "Watercolor" {
			t.Errorf("LoadCatalog() = %+v, want one Watercolor entry", catalog)
		}
	})

	t.Run("empty catalog rejected", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "styles.yaml")
		if err := os.WriteFile(path, []byte("styles: []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadCatalog(path); err == nil {
			t.Error("LoadCatalog() accepted an empty catalog")
		}
	})
}
