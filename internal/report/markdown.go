package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dyike/CortexQuant/models"
)

// WriteMarkdown writes content to dir/name and returns the full path.
func WriteMarkdown(dir, name, content string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create directory %s: %w", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write file %s: %w", path, err)
	}
	return path, nil
}

// AnalysisMarkdown renders one workflow run as a markdown document.
func AnalysisMarkdown(s *models.WorkflowState) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s (%s) %s\n\n", s.CompanyName, s.StockCode, s.CurrentDate)
	fmt.Fprintf(&b, "Price: %.2f\n\n", s.CurrentPrice)

	sections := []struct{ title, body string }{
		{"Fundamental analysis", s.FundamentalAnalysis},
		{"Technical analysis", s.TechnicalAnalysis},
		{"Valuation analysis", s.ValuationAnalysis},
		{"Summary", s.SummaryAnalysis},
		{"Investment analysis", s.InvestmentText},
	}
	for _, sec := range sections {
		if strings.TrimSpace(sec.body) == "" {
			continue
		}
		fmt.Fprintf(&b, "## %s\n\n%s\n\n", sec.title, strings.TrimSpace(sec.body))
	}

	if d := s.Decision; d != nil {
		b.WriteString("## Decision\n\n")
		fmt.Fprintf(&b, "| Field | Value |\n|---|---|\n")
		fmt.Fprintf(&b, "| Action | %s |\n", d.Action)
		fmt.Fprintf(&b, "| Confidence | %.2f |\n", d.Confidence)
		fmt.Fprintf(&b, "| Position size | %s |\n", percent(d.PositionSize))
		fmt.Fprintf(&b, "| Target price | %s |\n", optionalPrice(d.TargetPrice))
		fmt.Fprintf(&b, "| Stop loss | %s |\n", optionalPrice(d.StopLoss))
		fmt.Fprintf(&b, "| Holding period | %s |\n", d.HoldingPeriod)
		fmt.Fprintf(&b, "| Risk level | %s |\n", d.RiskLevel)
		for _, r := range d.Reasons {
			fmt.Fprintf(&b, "\n- %s", r)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// AnalysisDir is results/<code>/<date>.
func AnalysisDir(resultsDir, stockCode, date string) string {
	return filepath.Join(resultsDir, stockCode, date)
}
