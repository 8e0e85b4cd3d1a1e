// Package images downloads item cover images and normalizes them into a
// predictable on-disk layout.
package images

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"github.com/rsilveira/bookharvest/config"
	"github.com/rsilveira/bookharvest/fetch"
	"github.com/rsilveira/bookharvest/parser"
)

// DecodeError reports a malformed image payload.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode image %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Pipeline downloads, resizes, and re-encodes item images.
type Pipeline struct {
	client    *fetch.Client
	maxWidth  int
	maxHeight int
	quality   int
}

// NewPipeline builds an image pipeline configured from cfg.
func NewPipeline(client *fetch.Client, cfg *config.Config) *Pipeline {
	return &Pipeline{
		client:    client,
		maxWidth:  cfg.ImageMaxWidth,
		maxHeight: cfg.ImageMaxHeight,
		quality:   cfg.JPEGQuality,
	}
}

// FetchAndStore downloads imageURL, scales it down to fit the configured
// bound (aspect preserved, never upscaled), and writes it as a JPEG named
// from the sanitized title. An existing file at that path is overwritten;
// re-encoding is deterministic, so the write is idempotent by itself.
func (p *Pipeline) FetchAndStore(ctx context.Context, imageURL, destDir, title string) error {
	data, err := p.client.Bytes(ctx, imageURL)
	if err != nil {
		return err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return &DecodeError{URL: imageURL, Err: err}
	}
	img = imaging.Fit(img, p.maxWidth, p.maxHeight, imaging.Lanczos)

	path := filepath.Join(destDir, parser.SanitizeFileName(title)+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create image file %s: %w", path, err)
	}
	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(p.quality)); err != nil {
		f.Close()
		return fmt.Errorf("encode image %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close image file %s: %w", path, err)
	}
	return nil
}
