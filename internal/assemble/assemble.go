// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assemble turns a multi-page OCR response into one Markdown
// document: page images are written to images/<id>.png, their references
// rewritten to point there, and page texts joined in index order.
package assemble

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/mistral-ocr/internal/output"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

const (
	stage = "assemble"

	// PageSeparator is placed between consecutive pages.
	PageSeparator = "\n\n"
)

// decodedImage is an image payload ready to be written.
type decodedImage struct {
	id   string
	data []byte
}

// Assemble writes every page image of resp into run, rewrites the image
// references of each page and writes the joined text to complete.md.
// References are resolved against the images of the whole response, so a
// page may point at an image extracted from another page.
//
// All payloads are decoded before anything is written, so a malformed
// payload fails with types.ErrAssembly and leaves no images or
// complete.md behind.
func Assemble(resp *types.OCRResponse, run *output.Run) (*types.Document, error) {
	if resp == nil {
		return nil, types.NewError(types.ErrAssembly, stage, run.Dir, fmt.Errorf("nil response"))
	}

	pages := make([]types.OCRPage, len(resp.Pages))
	copy(pages, resp.Pages)
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].Index < pages[j].Index })

	decoded := make([][]decodedImage, len(pages))
	for i, page := range pages {
		for _, img := range page.Images {
			data, err := decodePayload(img)
			if err != nil {
				return nil, types.NewError(types.ErrAssembly, stage, img.ID,
					fmt.Errorf("page %d: %w", page.Index, err))
			}
			decoded[i] = append(decoded[i], decodedImage{id: img.ID, data: data})
		}
	}

	doc := &types.Document{OutputDir: run.Dir, Pages: len(pages)}
	refs := make(map[string]string)
	for _, imgs := range decoded {
		for _, img := range imgs {
			if _, ok := refs[img.id]; ok {
				continue
			}
			ref, err := run.WriteImage(img.id, img.data)
			if err != nil {
				return nil, types.NewError(types.ErrAssembly, stage, img.id, err)
			}
			refs[img.id] = ref
			doc.Images = append(doc.Images, ref)
		}
	}

	texts := make([]string, len(pages))
	for i, page := range pages {
		texts[i] = ReplaceImageRefs(page.Markdown, refs)
	}

	doc.Markdown = strings.Join(texts, PageSeparator)
	if _, err := run.WriteMarkdown(doc.Markdown); err != nil {
		return nil, types.NewError(types.ErrAssembly, stage, run.MarkdownPath(), err)
	}

	log.Debug().Str("run", run.Key).Int("pages", doc.Pages).Int("images", len(doc.Images)).Msg("assembled document")
	return doc, nil
}

// ReplaceImageRefs replaces every literal ![id](id) in markdown with
// ![id](refs[id]). It is a plain substitution: an identifier that happens
// to appear in that exact form elsewhere in the text is rewritten too.
func ReplaceImageRefs(markdown string, refs map[string]string) string {
	ids := make([]string, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		markdown = strings.ReplaceAll(markdown,
			fmt.Sprintf("![%s](%s)", id, id),
			fmt.Sprintf("![%s](%s)", id, refs[id]))
	}
	return markdown
}

// decodePayload decodes a data-URI image payload. Only the part after the
// first comma is payload data.
func decodePayload(img types.OCRImage) ([]byte, error) {
	if err := validateID(img.ID); err != nil {
		return nil, err
	}
	_, payload, ok := strings.Cut(img.ImageBase64, ",")
	if !ok {
		return nil, fmt.Errorf("image %q: payload is not a data URI", img.ID)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("image %q: decoding base64: %w", img.ID, err)
	}
	return data, nil
}

// validateID rejects identifiers that would escape the images directory.
func validateID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("image has an empty id")
	case id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0):
		return fmt.Errorf("image id %q is not a plain file name", id)
	}
	return nil
}

// ImageRefs returns the destinations of all image nodes in markdown, in
// document order.
func ImageRefs(markdown string) []string {
	src := []byte(markdown)
	root := goldmark.New().Parser().Parse(text.NewReader(src))

	var refs []string
	ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			refs = append(refs, string(img.Destination))
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// Dangling returns image references under images/ in doc that have no
// file in the run directory.
func Dangling(doc *types.Document) []string {
	var missing []string
	seen := make(map[string]bool)
	for _, ref := range ImageRefs(doc.Markdown) {
		if !strings.HasPrefix(ref, output.ImagesDir+"/") || seen[ref] {
			continue
		}
		seen[ref] = true
		if _, err := os.Stat(filepath.Join(doc.OutputDir, filepath.FromSlash(ref))); err != nil {
			missing = append(missing, ref)
		}
	}
	return missing
}
