package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"pricecase/internal"
	"pricecase/internal/connectors"
	"pricecase/internal/storage"
	"pricecase/internal/upload"
)

const lastRunKey = "last_run_id"

// Runner drives one pass over the unread mail of a date range. Archive,
// Uploader and DB are optional.
type Runner struct {
	Mail      connectors.MailConnector
	Provider  string
	Processor *Processor
	Archive   *connectors.RawArchive
	Uploader  upload.Uploader
	DB        *storage.DB
	OutputDir string
	Location  *time.Location
	Logger    *slog.Logger
	Now       func() time.Time
}

type RunOptions struct {
	From   time.Time
	To     time.Time
	DryRun bool
}

type RunSummary struct {
	ID               string
	StartedAt        time.Time
	FinishedAt       time.Time
	From             time.Time
	To               time.Time
	DryRun           bool
	Total            int
	Processed        int
	SkippedBusiness  int
	SkippedTechnical int
	CaseRows         int
	Results          []internal.ProcessResult
	// RawPaths maps message ids of skipped emails to their archived source.
	RawPaths   map[string]string
	ReportPath string
	LogPath    string
	ReportURL  string
	LogURL     string
}

// Rows returns the case rows of every processed email in order.
func (s RunSummary) Rows() []internal.CaseRow {
	var rows []internal.CaseRow
	for _, r := range s.Results {
		rows = append(rows, r.CaseRows...)
	}
	return rows
}

// Run fails only when the mailbox cannot be listed or the run artifacts
// cannot be written; per-email problems end up in the results.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (RunSummary, error) {
	log := loggerOrDefault(r.Logger)
	now := r.now()
	summary := RunSummary{
		ID:        uuid.NewString(),
		StartedAt: now,
		From:      opts.From,
		To:        opts.To,
		DryRun:    opts.DryRun,
		RawPaths:  map[string]string{},
	}
	log = log.With("run_id", summary.ID)

	if r.DB != nil {
		err := r.DB.InsertRun(storage.Run{
			ID:        summary.ID,
			StartedAt: summary.StartedAt,
			DateFrom:  opts.From.Format(dateLayout),
			DateTo:    opts.To.Format(dateLayout),
			DryRun:    opts.DryRun,
		})
		if err != nil {
			return summary, fmt.Errorf("record run: %w", err)
		}
	}

	refs, err := r.Mail.ListUnread(ctx, opts.From, opts.To)
	if err != nil {
		return summary, fmt.Errorf("list unread: %w", err)
	}
	log.Info("unread messages listed", "count", len(refs), "from", opts.From.Format(dateLayout), "to", opts.To.Format(dateLayout))

	for i, ref := range refs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		log.Info("processing email", "n", i+1, "of", len(refs), "subject", ref.Subject)
		result, raw := r.handle(ctx, ref, opts.DryRun, log)
		summary.Results = append(summary.Results, result)

		rawRef := ""
		if result.Status != internal.StatusProcessed && r.Archive != nil && len(raw) > 0 {
			path, err := r.Archive.Save(r.provider(ref), raw)
			if err != nil {
				log.Warn("archive raw message failed", "message_id", result.MessageID, "err", err)
			} else {
				rawRef = path
				summary.RawPaths[result.MessageID] = path
			}
		}
		if r.DB != nil {
			if err := r.persist(summary.ID, result, rawRef); err != nil {
				log.Error("persist email result failed", "message_id", result.MessageID, "err", err)
			}
		}
	}
	summary.count()

	if err := r.writeArtifacts(ctx, &summary, log); err != nil {
		return summary, err
	}

	if r.DB != nil {
		if err := r.finish(summary); err != nil {
			log.Error("persist run summary failed", "err", err)
		}
	}
	log.Info("run finished",
		"total", summary.Total,
		"processed", summary.Processed,
		"skipped_business", summary.SkippedBusiness,
		"skipped_technical", summary.SkippedTechnical,
		"case_rows", summary.CaseRows,
	)
	return summary, nil
}

// handle fetches, processes and acknowledges one message. It also returns
// the message source for archiving.
func (r *Runner) handle(ctx context.Context, ref internal.MessageRef, dryRun bool, log *slog.Logger) (internal.ProcessResult, []byte) {
	email, err := r.Mail.FetchEmail(ctx, ref)
	if err != nil {
		log.Warn("fetch email failed", "message_id", ref.ID, "err", err)
		return internal.ProcessResult{
			MessageID:    ref.ID,
			Sender:       ref.Sender,
			Subject:      ref.Subject,
			ReceivedAt:   ref.ReceivedAt,
			Status:       internal.StatusSkippedTechnical,
			ErrorType:    internal.ErrorUnexpected,
			ErrorMessage: err.Error(),
		}, nil
	}

	result := r.Processor.Process(ctx, email, dryRun)
	if result.Status == internal.StatusProcessed && result.MarkedAsRead {
		if err := r.Mail.MarkRead(ctx, ref); err != nil {
			log.Warn("mark as read failed", "message_id", result.MessageID, "err", err)
			result.MarkedAsRead = false
		}
	}
	return result, email.Raw
}

func (r *Runner) writeArtifacts(ctx context.Context, summary *RunSummary, log *slog.Logger) error {
	outDir := r.OutputDir
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	// Live runs always publish a report, empty or not; dry runs only when
	// there is something to show.
	if rows := summary.Rows(); len(rows) > 0 || !summary.DryRun {
		summary.ReportPath = filepath.Join(outDir, ReportFileName(summary.From, summary.To))
		if err := WriteReport(rows, summary.ReportPath); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		log.Info("report written", "path", summary.ReportPath, "rows", len(rows))
	}

	summary.FinishedAt = r.now()
	summary.LogPath = filepath.Join(outDir, RunLogFileName(summary.StartedAt))
	if err := WriteRunLog(*summary, summary.LogPath); err != nil {
		return fmt.Errorf("write run log: %w", err)
	}

	if summary.DryRun || r.Uploader == nil {
		return nil
	}
	if summary.ReportPath != "" {
		url, err := r.Uploader.Upload(ctx, summary.ReportPath, filepath.Base(summary.ReportPath))
		if err != nil {
			log.Error("report upload failed", "err", err)
		} else {
			summary.ReportURL = url
			log.Info("report uploaded", "location", url)
		}
	}
	url, err := r.Uploader.Upload(ctx, summary.LogPath, filepath.Base(summary.LogPath))
	if err != nil {
		log.Error("run log upload failed", "err", err)
	} else {
		summary.LogURL = url
		log.Info("run log uploaded", "location", url)
	}
	return nil
}

func (r *Runner) persist(runID string, result internal.ProcessResult, rawRef string) error {
	if err := r.DB.InsertEmailResult(runID, result, rawRef); err != nil {
		return err
	}
	if len(result.CaseRows) == 0 {
		return nil
	}
	return r.DB.InsertCaseRows(runID, result.MessageID, result.CaseRows)
}

func (r *Runner) finish(summary RunSummary) error {
	finished := summary.FinishedAt
	run := storage.Run{
		ID:               summary.ID,
		FinishedAt:       &finished,
		Total:            summary.Total,
		Processed:        summary.Processed,
		SkippedBusiness:  summary.SkippedBusiness,
		SkippedTechnical: summary.SkippedTechnical,
		CaseRows:         summary.CaseRows,
		ReportName:       baseName(summary.ReportPath),
		LogName:          baseName(summary.LogPath),
	}
	if err := r.DB.FinishRun(run); err != nil {
		return err
	}
	return r.DB.SetMetadata(lastRunKey, summary.ID)
}

func (s *RunSummary) count() {
	s.Total = len(s.Results)
	s.Processed, s.SkippedBusiness, s.SkippedTechnical, s.CaseRows = 0, 0, 0, 0
	for _, res := range s.Results {
		switch res.Status {
		case internal.StatusProcessed:
			s.Processed++
		case internal.StatusSkippedBusiness:
			s.SkippedBusiness++
		default:
			s.SkippedTechnical++
		}
		s.CaseRows += len(res.CaseRows)
	}
}

func (r *Runner) provider(ref internal.MessageRef) string {
	if ref.Provider != "" {
		return ref.Provider
	}
	if r.Provider != "" {
		return r.Provider
	}
	return "mail"
}

func (r *Runner) now() time.Time {
	now := time.Now()
	if r.Now != nil {
		now = r.Now()
	}
	if r.Location != nil {
		now = now.In(r.Location)
	}
	return now
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

const dateLayout = "2006-01-02"

var (
	ErrDateRangeOrder   = errors.New("--date-from cannot be after --date-to")
	ErrDateRangePartial = errors.New("both --date-from and --date-to must be specified together")
	ErrDateRangeMissing = errors.New("one of --date, --date-from/--date-to or --auto is required")
	ErrDateRangeMixed   = errors.New("--date, --date-from/--date-to and --auto are mutually exclusive")
)

// ResolveRange turns the command line date options into an inclusive day
// range in loc. Auto covers yesterday and today.
func ResolveRange(date, from, to string, auto bool, now time.Time, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	modes := 0
	if date != "" {
		modes++
	}
	if from != "" || to != "" {
		modes++
	}
	if auto {
		modes++
	}
	switch {
	case modes == 0:
		return time.Time{}, time.Time{}, ErrDateRangeMissing
	case modes > 1:
		return time.Time{}, time.Time{}, ErrDateRangeMixed
	}

	if auto {
		now = now.In(loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		return today.AddDate(0, 0, -1), today, nil
	}
	if date != "" {
		d, err := parseDay(date, loc)
		return d, d, err
	}
	if from == "" || to == "" {
		return time.Time{}, time.Time{}, ErrDateRangePartial
	}
	a, err := parseDay(from, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	b, err := parseDay(to, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if a.After(b) {
		return time.Time{}, time.Time{}, ErrDateRangeOrder
	}
	return a, b, nil
}

func parseDay(value string, loc *time.Location) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format: %s, expected YYYY-MM-DD", value)
	}
	return d, nil
}
