package resolve

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"log/slog"

	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"doc-recognizer/internal/domain"
)

// Page is one renderable surface produced from a document.
type Page struct {
	Index int
	Image image.Image
}

// Document is the uniform resolver output: ordered pages and/or directly
// extracted text. Compound documents may carry both; they are concatenated
// only at export time, never merged here.
type Document struct {
	Pages         []Page
	ExtractedText string
}

// Resolver maps a raw document plus its declared content class to pages and
// extracted text.
type Resolver struct {
	logger *slog.Logger
}

// NewResolver builds a format resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{logger: logger.With("component", "resolver")}
}

// Resolve decodes content according to class. Unrecognized classes and
// undecodable payloads fail with UnsupportedFormat, which is job-fatal.
func (r *Resolver) Resolve(content []byte, class domain.ContentClass) (Document, error) {
	switch class {
	case domain.ContentClassRaster:
		return r.resolveRaster(content)
	case domain.ContentClassMultipage:
		return r.resolveMultipage(content)
	case domain.ContentClassCompound:
		return r.resolveCompound(content)
	default:
		return Document{}, fmt.Errorf("%w: unrecognized content class %q", domain.ErrUnsupportedFormat, class)
	}
}

// resolveRaster decodes a single raster image into one page.
func (r *Resolver) resolveRaster(content []byte) (Document, error) {
	img, format, err := image.Decode(bytes.NewReader(content))
	if err != nil {
		return Document{}, fmt.Errorf("%w: decode raster image: %v", domain.ErrUnsupportedFormat, err)
	}

	r.logger.Debug("decoded raster document", "format", format)
	return Document{Pages: []Page{{Index: 0, Image: img}}}, nil
}

// resolveMultipage decodes a multi-page raster document into ordered pages.
func (r *Resolver) resolveMultipage(content []byte) (Document, error) {
	switch {
	case bytes.HasPrefix(content, []byte("GIF87a")) || bytes.HasPrefix(content, []byte("GIF89a")):
		decoded, err := gif.DecodeAll(bytes.NewReader(content))
		if err != nil {
			return Document{}, fmt.Errorf("%w: decode multi-frame gif: %v", domain.ErrUnsupportedFormat, err)
		}
		pages := make([]Page, 0, len(decoded.Image))
		for i, frame := range decoded.Image {
			pages = append(pages, Page{Index: i, Image: frame})
		}
		return Document{Pages: pages}, nil

	case bytes.HasPrefix(content, []byte("II*\x00")) || bytes.HasPrefix(content, []byte("MM\x00*")):
		// x/image/tiff exposes only the first image file directory.
		img, err := tiff.Decode(bytes.NewReader(content))
		if err != nil {
			return Document{}, fmt.Errorf("%w: decode tiff: %v", domain.ErrUnsupportedFormat, err)
		}
		return Document{Pages: []Page{{Index: 0, Image: img}}}, nil

	case bytes.HasPrefix(content, []byte("BM")):
		img, err := bmp.Decode(bytes.NewReader(content))
		if err != nil {
			return Document{}, fmt.Errorf("%w: decode bmp: %v", domain.ErrUnsupportedFormat, err)
		}
		return Document{Pages: []Page{{Index: 0, Image: img}}}, nil

	default:
		return Document{}, fmt.Errorf("%w: unrecognized multi-page raster payload", domain.ErrUnsupportedFormat)
	}
}
