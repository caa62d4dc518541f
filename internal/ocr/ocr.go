// Package ocr recognizes text in the images and scanned pages of an email.
package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"

	"golang.org/x/sync/errgroup"

	"pricecase/internal"
	"pricecase/internal/connectors"
)

type Options struct {
	Binary    string
	Languages []string
	DPI       int
	Workers   int
	Cache     *Cache
	Logger    *slog.Logger
}

// Engine runs tesseract over every image of an email. Failures of single
// images are logged and leave that image out.
type Engine struct {
	languages string
	dpi       int
	workers   int
	cache     *Cache
	logger    *slog.Logger
	recognize func(ctx context.Context, png []byte) (string, error)
}

func NewEngine(opts Options) (*Engine, error) {
	binary := opts.Binary
	if binary == "" {
		binary = "tesseract"
	}
	path, err := exec.LookPath(binary)
	if err != nil {
		return nil, fmt.Errorf("tesseract not found at %s: %w", binary, err)
	}

	e := newEngine(opts)
	e.recognize = func(ctx context.Context, png []byte) (string, error) {
		return tesseract(ctx, path, e.languages, png)
	}
	return e, nil
}

func newEngine(opts Options) *Engine {
	languages := opts.Languages
	if len(languages) == 0 {
		languages = []string{"eng", "slv"}
	}
	dpi := opts.DPI
	if dpi <= 0 {
		dpi = 300
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		languages: strings.Join(languages, "+"),
		dpi:       dpi,
		workers:   workers,
		cache:     opts.Cache,
		logger:    logger,
	}
}

type picture struct {
	origin      string
	contentType string
	data        []byte
	rendered    bool
}

// RecognizeEmail returns "[OCR from <origin>]\n<text>\n" segments in
// origin order, one per image that produced text.
func (e *Engine) RecognizeEmail(ctx context.Context, email internal.EmailItem) (string, error) {
	images := e.collect(email)
	if len(images) == 0 {
		return "", nil
	}

	texts := make([]string, len(images))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i, img := range images {
		g.Go(func() error {
			text, err := e.recognizeImage(gctx, img)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				e.logger.Warn("ocr image failed", "message_id", email.MessageID, "origin", img.origin, "err", err)
				return nil
			}
			texts[i] = text
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	parts := make([]string, 0, len(images)*3)
	for i, img := range images {
		if texts[i] == "" {
			continue
		}
		parts = append(parts, "[OCR from "+img.origin+"]", texts[i], "")
	}
	return strings.Join(parts, "\n"), nil
}

// collect orders inline images, image attachments, then rendered PDF pages.
func (e *Engine) collect(email internal.EmailItem) []picture {
	var out []picture
	for _, att := range email.InlineImages {
		out = append(out, picture{origin: "inline:" + att.Name, contentType: att.ContentType, data: att.Content})
	}
	for _, att := range email.Attachments {
		if connectors.IsImage(att.Name, att.ContentType) {
			out = append(out, picture{origin: "attachment:" + att.Name, contentType: att.ContentType, data: att.Content})
		}
	}
	for _, att := range email.Attachments {
		if !isPDF(att) {
			continue
		}
		pages, err := RenderPDF(att.Content, e.dpi)
		if err != nil {
			e.logger.Warn("pdf render failed", "message_id", email.MessageID, "attachment", att.Name, "err", err)
			continue
		}
		for n, page := range pages {
			out = append(out, picture{
				origin:      fmt.Sprintf("attachment:%s:page%d", att.Name, n+1),
				contentType: "image/png",
				data:        page,
				rendered:    true,
			})
		}
	}
	return out
}

func (e *Engine) recognizeImage(ctx context.Context, img picture) (string, error) {
	data := img.data
	if !img.rendered {
		converted, err := toPNG(img.data, img.contentType)
		if err != nil {
			return "", err
		}
		data = converted
	}

	key := e.cacheKey(data)
	if e.cache != nil {
		if text, ok := e.cache.Get(key); ok {
			return text, nil
		}
	}

	text, err := e.recognize(ctx, data)
	if err != nil {
		return "", err
	}
	if e.cache != nil {
		if err := e.cache.Put(key, text); err != nil {
			e.logger.Warn("ocr cache write failed", "err", err)
		}
	}
	return text, nil
}

func (e *Engine) cacheKey(png []byte) string {
	sum := sha256.Sum256(png)
	return e.languages + ":" + hex.EncodeToString(sum[:])
}

func isPDF(att internal.Attachment) bool {
	return strings.EqualFold(strings.TrimSpace(att.ContentType), "application/pdf") ||
		strings.HasSuffix(strings.ToLower(att.Name), ".pdf")
}
