// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package output owns the per-run output directory. A Run is the only writer
// of files below its directory: the original copy, the converted PDF, the
// extracted images, the assembled Markdown and the optional manifest.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/mistral-ocr/pkg/types"
)

const (
	// DefaultRoot is the directory under which runs are created.
	DefaultRoot = "outputs"

	// ImagesDir is the run subdirectory for extracted images.
	ImagesDir = "images"

	originBase    = "origin"
	convertedFile = "converted.pdf"
	markdownFile  = "complete.md"
	manifestFile  = "run.yaml"

	timestampLayout = "20060102_150405"
)

// Run is one processing run and its output directory.
type Run struct {
	// Key is "<timestamp>_<stem>", the directory's base name.
	Key string

	// Dir is the run directory path.
	Dir string

	// Source is the input file path the run was created for.
	Source string

	CreatedAt time.Time
}

// Create makes the run directory root/<YYYYMMDD_HHMMSS>_<stem> for
// sourcePath. Parent directories are created as needed. Two sources with
// the same stem created within the same second share a directory; the
// later run overwrites the earlier one's files.
func Create(root, sourcePath string, now time.Time) (*Run, error) {
	if root == "" {
		root = DefaultRoot
	}
	base := filepath.Base(sourcePath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	key := fmt.Sprintf("%s_%s", now.Format(timestampLayout), stem)
	dir := filepath.Join(root, key)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run directory %s: %w", dir, err)
	}

	log.Debug().Str("run", key).Str("dir", dir).Msg("created run directory")
	return &Run{Key: key, Dir: dir, Source: sourcePath, CreatedAt: now}, nil
}

// OriginPath returns the destination of the verbatim input copy, keeping
// the source extension (origin.pdf, origin.png, ...).
func (r *Run) OriginPath() string {
	return filepath.Join(r.Dir, originBase+filepath.Ext(r.Source))
}

// ConvertedPath returns the path of the PDF produced from an image input.
func (r *Run) ConvertedPath() string {
	return filepath.Join(r.Dir, convertedFile)
}

// MarkdownPath returns the path of the assembled Markdown.
func (r *Run) MarkdownPath() string {
	return filepath.Join(r.Dir, markdownFile)
}

// ImagePath returns the on-disk path for image id.
func (r *Run) ImagePath(id string) string {
	return filepath.Join(r.Dir, ImagesDir, id+".png")
}

// ImageRef returns the relative, slash-separated reference used in
// Markdown for image id.
func ImageRef(id string) string {
	return ImagesDir + "/" + id + ".png"
}

// CopyOrigin copies the source file verbatim to origin.<ext>, preserving
// its permission bits and modification time when possible.
func (r *Run) CopyOrigin() (string, error) {
	dst := r.OriginPath()

	src, err := os.Open(r.Source)
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", r.Source, err)
	}
	defer src.Close()

	info, err := src.Stat()
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", r.Source, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", r.Source)
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		return "", fmt.Errorf("copying %s to %s: %w", r.Source, dst, err)
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", dst, err)
	}

	// Metadata is best effort.
	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		log.Warn().Err(err).Str("path", dst).Msg("could not preserve modification time")
	}
	if err := os.Chmod(dst, info.Mode().Perm()); err != nil {
		log.Warn().Err(err).Str("path", dst).Msg("could not preserve permissions")
	}

	return dst, nil
}

// CreateConverted opens converted.pdf for writing. The caller closes it.
func (r *Run) CreateConverted() (*os.File, error) {
	f, err := os.Create(r.ConvertedPath())
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", r.ConvertedPath(), err)
	}
	return f, nil
}

// WriteImage writes image id under images/ and returns its Markdown
// reference.
func (r *Run) WriteImage(id string, data []byte) (string, error) {
	if err := os.MkdirAll(filepath.Join(r.Dir, ImagesDir), 0o755); err != nil {
		return "", fmt.Errorf("creating images directory: %w", err)
	}
	p := r.ImagePath(id)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("writing image %s: %w", p, err)
	}
	return ImageRef(id), nil
}

// WriteMarkdown writes complete.md. Go strings are written as UTF-8.
func (r *Run) WriteMarkdown(text string) (string, error) {
	p := r.MarkdownPath()
	if err := os.WriteFile(p, []byte(text), 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", p, err)
	}
	return p, nil
}

// WriteManifest marshals m to run.yaml.
func (r *Run) WriteManifest(m types.Manifest) error {
	data, err := yaml.Marshal(&m)
	if err != nil {
		return fmt.Errorf("marshaling manifest: %w", err)
	}
	p := filepath.Join(r.Dir, manifestFile)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", p, err)
	}
	return nil
}
