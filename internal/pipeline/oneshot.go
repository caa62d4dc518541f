package pipeline

import (
	"context"
	"fmt"
	"os"

	"pricecase/internal"
	"pricecase/internal/connectors"
)

// ProcessFile runs a stored .eml file through the processor without
// touching any mailbox. The report is written only when outPath is set
// and the email produced rows.
func (p *Processor) ProcessFile(ctx context.Context, path, outPath string) (internal.ProcessResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return internal.ProcessResult{}, err
	}
	email, err := connectors.ParseRaw(raw, internal.MessageRef{})
	if err != nil {
		return internal.ProcessResult{}, fmt.Errorf("%s: %w", path, err)
	}

	result := p.Process(ctx, email, true)
	if outPath != "" && len(result.CaseRows) > 0 {
		if err := WriteReport(result.CaseRows, outPath); err != nil {
			return result, fmt.Errorf("write report: %w", err)
		}
	}
	return result, nil
}
