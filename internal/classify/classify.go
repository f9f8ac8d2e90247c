// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package classify decides whether an input file is a raster image that
// needs wrapping into a PDF or a document that goes to the OCR service
// unchanged.
package classify

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// imageFormats maps each supported extension to the image.DecodeConfig
// format name its content must decode as.
var imageFormats = map[string]string{
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".png":  "png",
	".gif":  "gif",
	".bmp":  "bmp",
	".tiff": "tiff",
	".tif":  "tiff",
	".webp": "webp",
}

// Info describes a classified file.
type Info struct {
	Kind types.InputKind

	// Format is the decoded image format ("png", "jpeg", ...) for images
	// and empty for documents.
	Format string

	// MIMEType is the magic-byte MIME type, empty if the file could not be
	// read.
	MIMEType string
}

// Classify returns KindImage when path has a supported image extension and
// its content decodes as that format. Everything else, including files
// that cannot be read, is KindDocument.
func Classify(path string) types.InputKind {
	kind, _ := imageFormat(path)
	return kind
}

// Detect classifies path and also reports its MIME type.
func Detect(path string) Info {
	kind, format := imageFormat(path)
	info := Info{Kind: kind, Format: format}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("mime detection failed")
		return info
	}
	info.MIMEType = mt.String()

	log.Debug().Str("path", path).Str("kind", string(kind)).Str("mime", info.MIMEType).Msg("classified input")
	return info
}

// IsSupportedImageExt reports whether ext (with leading dot, any case) is a
// supported raster extension.
func IsSupportedImageExt(ext string) bool {
	_, ok := imageFormats[strings.ToLower(ext)]
	return ok
}

func imageFormat(path string) (types.InputKind, string) {
	want, ok := imageFormats[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return types.KindDocument, ""
	}

	f, err := os.Open(path)
	if err != nil {
		return types.KindDocument, ""
	}
	defer f.Close()

	_, got, err := image.DecodeConfig(f)
	if err != nil || got != want {
		return types.KindDocument, ""
	}
	return types.KindImage, got
}
