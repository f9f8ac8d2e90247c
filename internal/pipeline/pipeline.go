// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline drives one input file through the stages: run directory,
// normalization, remote OCR and assembly. It also provides a sequential
// batch driver and a single-goroutine background dispatch.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/mistral-ocr/internal/assemble"
	"github.com/pdiddy/mistral-ocr/internal/mistral"
	"github.com/pdiddy/mistral-ocr/internal/normalize"
	"github.com/pdiddy/mistral-ocr/internal/output"
	"github.com/pdiddy/mistral-ocr/pkg/types"
)

// Backend runs OCR on a normalized document. *mistral.Client implements it.
type Backend interface {
	ProcessDocument(ctx context.Context, path string) (*types.OCRResponse, error)
}

// Processor holds the settings shared by every run. It keeps no state
// between calls and is safe for concurrent use when NewBackend is.
type Processor struct {
	Config types.Config

	// NewBackend builds the OCR backend for one call. Defaults to a
	// mistral.Client configured from Config.OCR.
	NewBackend func(apiKey string) Backend

	// Now stamps run directories. Defaults to time.Now.
	Now func() time.Time
}

// New returns a Processor for cfg with the default backend and clock.
func New(cfg types.Config) *Processor {
	return &Processor{Config: cfg}
}

// ProcessFile runs the whole pipeline for path with the default settings.
func ProcessFile(ctx context.Context, path, apiKey string) (types.Result, error) {
	return New(types.Config{}).ProcessFile(ctx, path, apiKey)
}

// ProcessFile creates a run directory for path, normalizes the input,
// submits it for OCR and assembles complete.md. It blocks until done.
// Failures are *types.Error values; nothing is written to images/ or
// complete.md unless the OCR step succeeded.
func (p *Processor) ProcessFile(ctx context.Context, path, apiKey string) (types.Result, error) {
	run, err := output.Create(p.Config.Output.Root, path, p.now())
	if err != nil {
		return types.Result{}, types.NewError(types.ErrUnsupportedInput, "output", path, err)
	}
	log.Info().Str("run", run.Key).Str("path", path).Msg("processing file")

	norm, err := normalize.Normalize(run)
	if err != nil {
		return types.Result{}, err
	}

	pages, err := normalize.PageCount(norm.Path)
	if err != nil {
		log.Debug().Err(err).Str("run", run.Key).Msg("page count unavailable")
	} else {
		log.Info().Str("run", run.Key).Int("pages", pages).Msg("submitting document")
	}

	resp, err := p.backend(apiKey).ProcessDocument(ctx, norm.Path)
	if err != nil {
		return types.Result{}, err
	}

	doc, err := assemble.Assemble(resp, run)
	if err != nil {
		return types.Result{}, err
	}
	for _, ref := range assemble.Dangling(doc) {
		log.Warn().Str("run", run.Key).Str("ref", ref).Msg("image reference has no file")
	}

	if p.Config.Output.Manifest {
		m := types.Manifest{
			Source:      path,
			Kind:        norm.Info.Kind,
			MIMEType:    norm.Info.MIMEType,
			Document:    norm.Path,
			Model:       resp.Model,
			Pages:       doc.Pages,
			Images:      doc.Images,
			CreatedAt:   run.CreatedAt,
			CompletedAt: p.now(),
		}
		if err := run.WriteManifest(m); err != nil {
			log.Warn().Err(err).Str("run", run.Key).Msg("could not write manifest")
		}
	}

	log.Info().Str("run", run.Key).Int("pages", doc.Pages).Int("images", len(doc.Images)).Msg("processing complete")
	return types.Result{Markdown: doc.Markdown, OutputDir: doc.OutputDir}, nil
}

func (p *Processor) backend(apiKey string) Backend {
	if p.NewBackend != nil {
		return p.NewBackend(apiKey)
	}
	return mistral.NewClient(apiKey, p.Config.OCR)
}

func (p *Processor) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// ContinueFunc is asked after each file but the last whether the batch
// should go on. err is the file's failure, or nil.
type ContinueFunc func(path string, err error) bool

// BatchResult holds the outcome of a batch run.
type BatchResult struct {
	Processed int
	Failed    int
	Skipped   int
}

// Total returns the number of files in the batch.
func (r BatchResult) Total() int {
	return r.Processed + r.Failed + r.Skipped
}

// HasFailures reports whether any file failed.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// ProcessBatch processes paths one after another, printing per-file status
// to w. A nil cont processes every file. Files not reached because cont
// returned false are counted as skipped.
func (p *Processor) ProcessBatch(ctx context.Context, paths []string, apiKey string, cont ContinueFunc, w io.Writer) BatchResult {
	var result BatchResult
	for i, path := range paths {
		fmt.Fprintf(w, "processing: %s (%d/%d)\n", path, i+1, len(paths))

		res, err := p.ProcessFile(ctx, path, apiKey)
		if err != nil {
			fmt.Fprintf(w, "failed:  %s (%v)\n", path, err)
			result.Failed++
		} else {
			fmt.Fprintf(w, "done: %s -> %s\n", path, res.OutputDir)
			result.Processed++
		}

		if i < len(paths)-1 && cont != nil && !cont(path, err) {
			result.Skipped = len(paths) - i - 1
			fmt.Fprintf(w, "stopped: %d file(s) not processed\n", result.Skipped)
			break
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d processed, %d failed, %d skipped (total: %d)\n",
		result.Processed, result.Failed, result.Skipped, result.Total())
	return result
}

// Outcome is the single value posted by Dispatch.
type Outcome struct {
	Result types.Result
	Err    error
}

// Dispatch runs ProcessFile on its own goroutine and delivers the outcome
// on the returned channel, which receives exactly one value and is then
// closed. The caller reads it whenever it is ready.
func (p *Processor) Dispatch(ctx context.Context, path, apiKey string) <-chan Outcome {
	ch := make(chan Outcome, 1)
	go func() {
		defer close(ch)
		res, err := p.ProcessFile(ctx, path, apiKey)
		ch <- Outcome{Result: res, Err: err}
	}()
	return ch
}
