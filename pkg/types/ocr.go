// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OCRResponse is the structured result of one OCR job. Pages arrive in
// service order; consumers sort by Index before relying on it.
type OCRResponse struct {
	Pages     []OCRPage `json:"pages" yaml:"pages"`
	Model     string    `json:"model" yaml:"model"`
	UsageInfo UsageInfo `json:"usage_info" yaml:"usage_info"`
}

// UsageInfo reports what the service billed for the job.
type UsageInfo struct {
	PagesProcessed int   `json:"pages_processed" yaml:"pages_processed"`
	DocSizeBytes   int64 `json:"doc_size_bytes,omitempty" yaml:"doc_size_bytes,omitempty"`
}

// OCRPage is one page of the OCR response.
type OCRPage struct {
	// Index is the zero-based page position within the submitted document.
	Index int `json:"index" yaml:"index"`

	// Markdown is the recognized page text. Embedded images appear as
	// ![<id>](<id>) references.
	Markdown string `json:"markdown" yaml:"markdown"`

	// Images lists the images embedded on the page.
	Images []OCRImage `json:"images" yaml:"images"`

	Dimensions *PageDimensions `json:"dimensions,omitempty" yaml:"dimensions,omitempty"`
}

// OCRImage is an image cropped from a page.
type OCRImage struct {
	ID           string `json:"id" yaml:"id"`
	TopLeftX     int    `json:"top_left_x" yaml:"top_left_x"`
	TopLeftY     int    `json:"top_left_y" yaml:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x" yaml:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y" yaml:"bottom_right_y"`

	// ImageBase64 is a data URI ("data:image/jpeg;base64,<payload>").
	ImageBase64 string `json:"image_base64,omitempty" yaml:"-"`
}

// PageDimensions holds the rendered size of a page.
type PageDimensions struct {
	DPI    int `json:"dpi" yaml:"dpi"`
	Height int `json:"height" yaml:"height"`
	Width  int `json:"width" yaml:"width"`
}
