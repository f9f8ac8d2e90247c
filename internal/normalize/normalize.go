// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize turns any supported input into a single PDF-like
// document ready for OCR submission. Images are wrapped into a one-page
// PDF; documents are used as copied.
package normalize

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/rs/zerolog/log"

	"github.com/pdiddy/mistral-ocr/internal/classify"
	"github.com/pdiddy/mistral-ocr/internal/output"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

const stage = "normalize"

// passThrough lists the formats pdfcpu embeds as is. Other formats are
// transcoded to PNG first.
var passThrough = map[string]bool{
	"jpeg": true,
	"png":  true,
}

// Normalized is the outcome of normalizing one input.
type Normalized struct {
	// Path is the document to submit: converted.pdf for images,
	// origin.<ext> otherwise.
	Path string

	// Origin is the verbatim copy of the input.
	Origin string

	// Info is the classification of the input.
	Info classify.Info
}

// Normalize classifies the run's source, copies it to origin.<ext> and,
// for images, writes converted.pdf. A copy failure is reported as
// types.ErrUnsupportedInput, a conversion failure as types.ErrConversion.
func Normalize(run *output.Run) (*Normalized, error) {
	info := classify.Detect(run.Source)

	origin, err := run.CopyOrigin()
	if err != nil {
		return nil, types.NewError(types.ErrUnsupportedInput, stage, run.Source, err)
	}

	n := &Normalized{Path: origin, Origin: origin, Info: info}
	if info.Kind != types.KindImage {
		log.Debug().Str("run", run.Key).Str("document", origin).Msg("using input as document")
		return n, nil
	}

	pdfPath, err := convertImage(run, info.Format)
	if err != nil {
		return nil, types.NewError(types.ErrConversion, stage, run.Source, err)
	}
	n.Path = pdfPath

	log.Debug().Str("run", run.Key).Str("format", info.Format).Str("document", pdfPath).Msg("converted image to pdf")
	return n, nil
}

// convertImage wraps the run's source image into a one-page PDF.
func convertImage(run *output.Run, format string) (string, error) {
	data, err := os.ReadFile(run.Source)
	if err != nil {
		return "", fmt.Errorf("reading image: %w", err)
	}

	if !passThrough[format] {
		data, err = toPNG(data)
		if err != nil {
			return "", err
		}
	}

	f, err := run.CreateConverted()
	if err != nil {
		return "", err
	}

	imp := pdfcpu.DefaultImportConfig()
	if err := api.ImportImages(nil, f, []io.Reader{bytes.NewReader(data)}, imp, nil); err != nil {
		f.Close()
		return "", fmt.Errorf("importing %s image: %w", format, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", run.ConvertedPath(), err)
	}
	return run.ConvertedPath(), nil
}

// toPNG decodes any registered image format and re-encodes it as PNG.
func toPNG(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("transcoding %s to png: %w", format, err)
	}
	return buf.Bytes(), nil
}

// PageCount returns the page count of a PDF document. Non-PDF documents
// yield an error; callers treat the count as informational.
func PageCount(path string) (int, error) {
	n, err := api.PageCountFile(path)
	if err != nil {
		return 0, fmt.Errorf("counting pages of %s: %w", path, err)
	}
	return n, nil
}
