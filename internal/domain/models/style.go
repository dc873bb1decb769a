package models

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StyleOption is one entry of the fixed style catalog shown to the user.
type StyleOption struct {
	ID          int    `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
	ImageURL    string `json:"imageUrl" yaml:"image_url"`
}

// DefaultStyleRoute is where unrecognized style titles are sent. Keeping the
// historical default-to-pixar policy is part of the backend contract.
const DefaultStyleRoute = "pixar"

// styleRoutes maps a catalog title to the backend route segment of
// POST /api/style/{route}. The table must stay in sync with the server-side
// route names.
var styleRoutes = map[string]string{
	"Pixar":         "pixar",
	"Comics":        "comic",
	"Studio Ghibli": "ghibli",
	"Oil Painting":  "oil",
	"Pencil Sketch": "sketch",
	"Cartoon":       "cartoon",
}

// RouteForTitle resolves a style title to its backend route. The second
// return value reports whether the title was an exact catalog match; unknown
// titles fall back to DefaultStyleRoute.
func RouteForTitle(title string) (string, bool) {
	if route, ok := styleRoutes[title]; ok {
		return route, true
	}
	return DefaultStyleRoute, false
}

// DefaultCatalog returns the built-in style catalog.
func DefaultCatalog() []StyleOption {
	return []StyleOption{
		{ID: 1, Title: "Pencil Sketch", Description: "Transform photos into dynamic comic book illustrations!", ImageURL: "/images/pencilsketch.png"},
		{ID: 2, Title: "Oil Painting", Description: "Give your images a soft, elegant watercolor painting effect.", ImageURL: "/images/oilpainting.png"},
		{ID: 3, Title: "Pixar", Description: "Convert your pictures into detailed digital pencil sketches.", ImageURL: "/images/pixar.png"},
		{ID: 4, Title: "Studio Ghibli", Description: "Re-imagine your portraits in the popular Japanese anime style.", ImageURL: "/images/anime.png"},
		{ID: 5, Title: "Comics", Description: "Create bold, colorful Andy Warhol-inspired pop art.", ImageURL: "/images/comic.png"},
	}
}

// LoadCatalog reads a style catalog from a YAML file. An empty path returns
// the built-in catalog.
func LoadCatalog(path string) ([]StyleOption, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read style catalog: %w", err)
	}

	var catalog struct {
		Styles []StyleOption `yaml:"styles"`
	}
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("failed to parse style catalog: %w", err)
	}

	if len(catalog.Styles) == 0 {
		return nil, fmt.Errorf("style catalog %s contains no styles", path)
	}
	return catalog.Styles, nil
}

// FindStyle returns the catalog entry with the given id.
func FindStyle(catalog []StyleOption, id int) (StyleOption, bool) {
	for _, s := range catalog {
		if s.ID == id {
			return s, true
		}
	}
	return StyleOption{}, false
}
