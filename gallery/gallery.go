// Package gallery owns named images (the scene and templates cut from it).
// Every image lives under exactly one name; create, replace and delete are explicit.
package gallery

import (
	"image"
	"io"
	"sort"
	"sync"

	"github.com/disintegration/imaging"
	"github.com/pkg/errors"

	// Extra decoders on top of png/jpeg/gif
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrNoImage is returned when there is no image with requested name
var ErrNoImage = errors.New("no such image")

// Gallery is a concurrency safe storage of named images
type Gallery struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// New creates empty gallery
func New() *Gallery {
	return &Gallery{
		images: make(map[string]image.Image),
	}
}

// Put stores image under given name, replacing previous one. Reports whether image has been replaced
func (g *Gallery) Put(name string, img image.Image) (bool, error) {
	if img == nil {
		return false, errors.Errorf("nil image for '%s'", name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, replaced := g.images[name]
	g.images[name] = img
	return replaced, nil
}

// Get returns image stored under given name
func (g *Gallery) Get(name string) (image.Image, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	img, ok := g.images[name]
	if !ok {
		return nil, errors.Wrapf(ErrNoImage, "'%s'", name)
	}
	return img, nil
}

// Has reports whether there is image with given name
func (g *Gallery) Has(name string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.images[name]
	return ok
}

// Delete removes image. Reports whether image existed
func (g *Gallery) Delete(name string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.images[name]
	delete(g.images, name)
	return ok
}

// Names returns sorted names of stored images
func (g *Gallery) Names() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	names := make([]string, 0, len(g.images))
	for name := range g.images {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Load decodes image (png, jpeg, gif, bmp, tiff, webp) and stores it under given name.
// EXIF orientation is applied.
func (g *Gallery) Load(name string, r io.Reader) error {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return errors.Wrapf(err, "Can't decode '%s'", name)
	}
	_, err = g.Put(name, img)
	return err
}

// CropROI cuts rectangle out of src image and stores it as dst.
// Rectangle is clipped by source bounds; empty intersection is an error
func (g *Gallery) CropROI(src string, rect image.Rectangle, dst string) (image.Image, error) {
	img, err := g.Get(src)
	if err != nil {
		return nil, err
	}
	roi := rect.Canon().Intersect(img.Bounds())
	if roi.Empty() {
		return nil, errors.Errorf("region %v is outside of '%s' %v", rect, src, img.Bounds())
	}
	cropped := imaging.Crop(img, roi)
	if _, err := g.Put(dst, cropped); err != nil {
		return nil, err
	}
	return cropped, nil
}

// Gray returns single channel intensity copy of image
func (g *Gallery) Gray(name string) (*image.Gray, error) {
	img, err := g.Get(name)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// ToGray converts image to single channel intensity image with origin at (0, 0)
func ToGray(img image.Image) *image.Gray {
	if gray, ok := img.(*image.Gray); ok && gray.Bounds().Min == (image.Point{}) {
		return gray
	}
	// Grayscale keeps luminance in every channel
	nrgba := imaging.Grayscale(img)
	bounds := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+bounds.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}
	return gray
}
