package interpreter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nbgate/nbgate/pkg/api"
	"github.com/nbgate/nbgate/pkg/observability"
)

// DefaultImagePublicPath is the URL prefix under which extracted images
// are served.
const DefaultImagePublicPath = "/images"

// ImageRenderer extracts image payloads from display_data outputs and
// persists them as addressable PNG files.
type ImageRenderer struct {
	dir        string
	publicPath string
}

// NewImageRenderer creates a renderer writing PNG artifacts into dir and
// referencing them under publicPath ("/images" when empty).
func NewImageRenderer(dir, publicPath string) *ImageRenderer {
	if publicPath == "" {
		publicPath = DefaultImagePublicPath
	}
	return &ImageRenderer{
		dir:        dir,
		publicPath: strings.TrimRight(publicPath, "/"),
	}
}

// Dir returns the filesystem directory artifacts are written to.
func (r *ImageRenderer) Dir() string { return r.dir }

// Render writes one PNG file per display_data output carrying an image
// payload and returns the markdown references, in output order. Non-image
// display payloads are silently skipped. Artifacts are never deduplicated:
// each qualifying output gets a freshly named file.
func (r *ImageRenderer) Render(outputs []api.Output) ([]string, error) {
	var links []string
	for _, out := range outputs {
		display, ok := out.(*api.DisplayData)
		if !ok {
			continue
		}
		img, ok := display.ImagePNG()
		if !ok {
			continue
		}

		if err := os.MkdirAll(r.dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating images directory: %w", err)
		}
		name := api.NewImageFilename()
		if err := os.WriteFile(filepath.Join(r.dir, name), img, 0o644); err != nil {
			return nil, fmt.Errorf("writing image %s: %w", name, err)
		}
		observability.ImagesRenderedTotal.Inc()
		links = append(links, fmt.Sprintf("![Generated Image](%s/%s)", r.publicPath, name))
	}
	return links, nil
}
