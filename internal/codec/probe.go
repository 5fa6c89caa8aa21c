package codec

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// OrientationProber decides whether an image reference is portrait when the
// markup does not say.
type OrientationProber interface {
	Portrait(ref string) bool
}

// ProberFunc adapts a function to OrientationProber.
type ProberFunc func(ref string) bool

func (f ProberFunc) Portrait(ref string) bool { return f(ref) }

// DefaultProber reads the image header of local files. Unreadable or remote
// references are treated as portrait.
var DefaultProber OrientationProber = ProberFunc(probeFile)

func probeFile(ref string) bool {
	path := ref
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" {
		if u.Scheme != "file" {
			return true
		}
		path = u.Path
	}
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return true
	}
	return cfg.Height >= cfg.Width
}
