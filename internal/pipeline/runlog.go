package pipeline

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pricecase/internal"
)

const (
	logRule         = "================================================================================"
	logTimeLayout   = "2006-01-02 15:04:05"
	logStampLayout  = "20060102_150405"
	emptyLogPayload = "(none)"
)

// RunLogFileName names the log after the run start.
func RunLogFileName(started time.Time) string {
	return "Run_Log_" + started.Format(logStampLayout) + ".txt"
}

// WriteRunLog writes the plain-text log of a run: header, counts, then
// one block per email in processing order.
func WriteRunLog(summary RunSummary, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	line := func(format string, args ...any) {
		fmt.Fprintf(w, format+"\n", args...)
	}

	line(logRule)
	line("Price Discrepancy Email Processor - Run Log")
	line(logRule)
	line("Run ID: %s", summary.ID)
	line("Date range: %s to %s", summary.From.Format("2006-01-02"), summary.To.Format("2006-01-02"))
	line("Dry run: %t", summary.DryRun)
	line("Started: %s", summary.StartedAt.Format(logTimeLayout))
	if !summary.FinishedAt.IsZero() {
		line("Finished: %s", summary.FinishedAt.Format(logTimeLayout))
	}
	line("Total emails: %d", summary.Total)
	line("")
	line("Summary:")
	line("  Processed: %d", summary.Processed)
	line("  Skipped (Business Error): %d", summary.SkippedBusiness)
	line("  Skipped (Technical Error): %d", summary.SkippedTechnical)
	line("  Case rows: %d", summary.CaseRows)
	line("")
	line(logRule)
	line("Email Processing Details")
	line(logRule)
	line("")

	if len(summary.Results) == 0 {
		line(emptyLogPayload)
		line("")
	}
	for i, result := range summary.Results {
		line("Email %d/%d", i+1, len(summary.Results))
		line("  Sender: %s", result.Sender)
		line("  Subject: %s", result.Subject)
		if !result.ReceivedAt.IsZero() {
			line("  Received: %s", result.ReceivedAt.Format(logTimeLayout))
		}
		line("  Status: %s", result.Status)
		if result.ErrorType != "" {
			line("  Error Type: %s", result.ErrorType)
			line("  Error Message: %s", oneLine(result.ErrorMessage))
		}
		if result.Status == internal.StatusProcessed {
			line("  Cases Extracted: %d", len(result.CaseRows))
			line("  Marked as Read: %t", result.MarkedAsRead)
		}
		line("")
	}

	line(logRule)
	line("End of Log")
	line(logRule)

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
