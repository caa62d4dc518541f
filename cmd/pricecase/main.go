package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"

	"pricecase/internal/app"
	"pricecase/internal/config"
	"pricecase/internal/logging"
	"pricecase/internal/pipeline"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	must(err)
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	must(err)
	defer a.Close()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "run":
		fs := ff.NewFlagSet(cmd)
		date := fs.StringLong("date", "", "single day, YYYY-MM-DD")
		from := fs.StringLong("date-from", "", "first day, YYYY-MM-DD")
		to := fs.StringLong("date-to", "", "last day, YYYY-MM-DD")
		auto := fs.BoolLong("auto", "yesterday and today")
		dryRun := fs.BoolLong("dry-run", "do not mark mail as read or upload")
		parse(fs, args)

		loc, err := cfg.Location()
		must(err)
		start, end, err := pipeline.ResolveRange(*date, *from, *to, *auto, time.Now(), loc)
		must(err)

		runner, err := a.Runner(ctx)
		must(err)
		summary, err := runner.Run(ctx, pipeline.RunOptions{From: start, To: end, DryRun: *dryRun})
		must(err)
		fmt.Printf("run %s done emails=%d processed=%d skipped_business=%d skipped_technical=%d case_rows=%d\n",
			summary.ID, summary.Total, summary.Processed, summary.SkippedBusiness, summary.SkippedTechnical, summary.CaseRows)
		if summary.ReportPath != "" {
			fmt.Printf("report: %s\n", summary.ReportPath)
		}
		fmt.Printf("log: %s\n", summary.LogPath)
	case "process:eml":
		fs := ff.NewFlagSet(cmd)
		input := fs.StringLong("input", "", "path to a raw .eml file")
		output := fs.StringLong("output", "", "report xlsx path (optional)")
		parse(fs, args)
		if strings.TrimSpace(*input) == "" {
			must(fmt.Errorf("--input is required"))
		}

		result, err := a.Processor.ProcessFile(ctx, *input, *output)
		must(err)
		fmt.Printf("status=%s rows=%d\n", result.Status, len(result.CaseRows))
		if result.ErrorMessage != "" {
			fmt.Printf("%s: %s\n", result.ErrorType, result.ErrorMessage)
		}
		for _, row := range result.CaseRows {
			fmt.Printf("%s\t%s\t%s\n", row.EAN, row.Store, row.Comments)
		}
	case "export:xlsx":
		fs := ff.NewFlagSet(cmd)
		runID := fs.StringLong("run", "", "run id")
		out := fs.StringLong("out", "", "output xlsx path")
		parse(fs, args)
		if strings.TrimSpace(*runID) == "" || strings.TrimSpace(*out) == "" {
			must(fmt.Errorf("--run and --out are required"))
		}
		rows, err := a.DB.GetCaseRows(*runID)
		must(err)
		if len(rows) == 0 {
			must(fmt.Errorf("no case rows for run=%s", *runID))
		}
		must(pipeline.WriteReport(rows, *out))
		fmt.Printf("exported %d rows to %s\n", len(rows), *out)
	case "runs:list":
		fs := ff.NewFlagSet(cmd)
		limit := fs.IntLong("limit", 20, "number of runs")
		parse(fs, args)
		runs, err := a.DB.ListRuns(*limit)
		must(err)
		for _, run := range runs {
			fmt.Printf("%s\t%s\t%s..%s\tdry_run=%t\temails=%d\tprocessed=%d\tcase_rows=%d\t%s\n",
				run.ID, run.StartedAt.Format("2006-01-02 15:04:05"), run.DateFrom, run.DateTo,
				run.DryRun, run.Total, run.Processed, run.CaseRows, run.ReportName)
		}
	default:
		usage()
		os.Exit(1)
	}
}

func parse(fs *ff.FlagSet, args []string) {
	if err := ff.Parse(fs, args, ff.WithEnvVarPrefix("PRICECASE")); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", ffhelp.Flags(fs))
		must(err)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  pricecase run --date YYYY-MM-DD | --date-from YYYY-MM-DD --date-to YYYY-MM-DD | --auto [--dry-run]")
	fmt.Println("  pricecase process:eml --input message.eml [--output report.xlsx]")
	fmt.Println("  pricecase export:xlsx --run <id> --out report.xlsx")
	fmt.Println("  pricecase runs:list [--limit 20]")
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}
