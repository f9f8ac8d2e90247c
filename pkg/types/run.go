// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// InputKind is the classification of a source file.
type InputKind string

const (
	// KindImage is a raster image that must be wrapped into a PDF.
	KindImage InputKind = "image"
	// KindDocument is passed to the OCR service as is.
	KindDocument InputKind = "document"
)

// Document is the assembled result of one run.
type Document struct {
	// Markdown is the concatenated page text with image references
	// rewritten to images/<id>.png.
	Markdown string

	// OutputDir is the run directory holding complete.md and images/.
	OutputDir string

	// Pages is the number of pages assembled.
	Pages int

	// Images lists the relative paths of the written image assets,
	// in first-seen order.
	Images []string
}

// Result is what callers of ProcessFile receive.
type Result struct {
	Markdown  string
	OutputDir string
}

// Manifest is the optional run.yaml written next to the run artifacts.
type Manifest struct {
	Source      string    `yaml:"source"`
	Kind        InputKind `yaml:"kind"`
	MIMEType    string    `yaml:"mime_type,omitempty"`
	Document    string    `yaml:"document"`
	Model       string    `yaml:"model,omitempty"`
	Pages       int       `yaml:"pages"`
	Images      []string  `yaml:"images,omitempty"`
	CreatedAt   time.Time `yaml:"created_at"`
	CompletedAt time.Time `yaml:"completed_at"`
}
