// Package app wires configuration into a ready Runner for the commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"pricecase/internal/assist"
	"pricecase/internal/config"
	"pricecase/internal/connectors"
	gmailconnector "pricecase/internal/connectors/gmail"
	imapconnector "pricecase/internal/connectors/imap"
	"pricecase/internal/graph"
	"pricecase/internal/ocr"
	"pricecase/internal/pipeline"
	"pricecase/internal/storage"
	"pricecase/internal/upload"
)

// App owns every long-lived resource of a command. Close releases them in
// reverse order of creation.
type App struct {
	Config    config.Config
	Logger    *slog.Logger
	DB        *storage.DB
	Processor *pipeline.Processor

	closers []func() error
	graph   *graph.Client
}

// New opens the database and builds the processor. Mailbox and upload
// wiring happens in Runner so offline commands need no credentials.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger}

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	recognizer := a.recognizer()
	filler, err := a.filler(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var textRecognizer pipeline.TextRecognizer
	if recognizer != nil {
		textRecognizer = recognizer
	}
	a.Processor = pipeline.NewProcessor(textRecognizer, filler, logger)
	return a, nil
}

// Runner connects the configured mailbox and upload target.
func (a *App) Runner(ctx context.Context) (*pipeline.Runner, error) {
	loc, err := a.Config.Location()
	if err != nil {
		return nil, err
	}
	mail, err := a.mailConnector(ctx)
	if err != nil {
		return nil, err
	}
	uploader, err := a.uploader(ctx)
	if err != nil {
		return nil, err
	}

	return &pipeline.Runner{
		Mail:      mail,
		Provider:  a.Config.MailProvider,
		Processor: a.Processor,
		Archive:   connectors.NewRawArchive(a.Config.RawMailDir),
		Uploader:  uploader,
		DB:        a.DB,
		OutputDir: a.Config.OutputDir,
		Location:  loc,
		Logger:    a.Logger,
	}, nil
}

func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) graphClient(ctx context.Context) (*graph.Client, error) {
	if a.graph != nil {
		return a.graph, nil
	}
	client, err := graph.NewClient(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	a.graph = client
	return client, nil
}

func (a *App) mailConnector(ctx context.Context) (connectors.MailConnector, error) {
	switch a.Config.MailProvider {
	case "graph":
		if err := a.Config.Require("MAILBOX_USER_ID", a.Config.MailboxUserID); err != nil {
			return nil, err
		}
		client, err := a.graphClient(ctx)
		if err != nil {
			return nil, err
		}
		loc, err := a.Config.Location()
		if err != nil {
			return nil, err
		}
		return graph.NewMailbox(client, a.Config.MailboxUserID, loc), nil
	case "gmail":
		return gmailconnector.NewConnector(ctx, a.Config)
	case "imap":
		return imapconnector.NewConnector(a.Config)
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", a.Config.MailProvider)
	}
}

func (a *App) uploader(ctx context.Context) (upload.Uploader, error) {
	switch a.Config.UploadTarget {
	case "", "none":
		return nil, nil
	case "local":
		return upload.NewLocal(a.Config.UploadDir), nil
	case "sharepoint":
		if a.Config.SharePointSiteID == "" && a.Config.SharePointDriveID == "" {
			return nil, fmt.Errorf("missing required env var: SHAREPOINT_SITE_ID or SHAREPOINT_DRIVE_ID")
		}
		client, err := a.graphClient(ctx)
		if err != nil {
			return nil, err
		}
		return graph.NewSharePoint(client, a.Config.SharePointSiteID, a.Config.SharePointDriveID, a.Config.SharePointFolder), nil
	case "gcs":
		if err := a.Config.Require("GCS_BUCKET", a.Config.GCSBucket); err != nil {
			return nil, err
		}
		gcs, err := upload.NewGCS(ctx, a.Config.GCSBucket, a.Config.GCSPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gcs.Close)
		return gcs, nil
	default:
		return nil, fmt.Errorf("unsupported upload target: %s", a.Config.UploadTarget)
	}
}

// recognizer returns nil when tesseract is unavailable; the run then goes
// on without the OCR source.
func (a *App) recognizer() *ocr.Engine {
	opts := ocr.Options{
		Binary:    a.Config.TesseractPath,
		Languages: a.Config.OCRLanguages,
		DPI:       a.Config.OCRDPI,
		Workers:   a.Config.OCRWorkers,
		Logger:    a.Logger,
	}
	if a.Config.OCRCachePath != "" {
		if err := os.MkdirAll(filepath.Dir(a.Config.OCRCachePath), 0o755); err == nil {
			cache, err := ocr.OpenCache(a.Config.OCRCachePath)
			if err != nil {
				a.Logger.Warn("ocr cache disabled", "err", err)
			} else {
				opts.Cache = cache
				a.closers = append(a.closers, cache.Close)
			}
		}
	}

	engine, err := ocr.NewEngine(opts)
	if err != nil {
		a.Logger.Warn("ocr disabled", "err", err)
		return nil
	}
	return engine
}

func (a *App) filler(ctx context.Context) (assist.GapFiller, error) {
	var filler assist.GapFiller
	switch a.Config.AIProvider {
	case "", "none":
		return nil, nil
	case "gemini":
		if err := a.Config.Require("GEMINI_API_KEY", a.Config.GeminiAPIKey); err != nil {
			return nil, err
		}
		gemini, err := assist.NewGemini(ctx, a.Config.GeminiAPIKey, a.Config.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gemini.Close)
		filler = gemini
	case "ollama":
		filler = assist.NewOllama(a.Config.OllamaURL, a.Config.OllamaModel)
	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", a.Config.AIProvider)
	}
	a.Logger.Info("gap filler enabled", "provider", a.Config.AIProvider)
	return assist.Throttle(filler, a.Config.AIRateLimitRPS), nil
}
