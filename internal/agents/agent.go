package agents

import (
	"context"
	"fmt"

	"github.com/dyike/CortexQuant/models"
)

// Analyst turns a read-only view of the workflow state into text and, for
// the investment stage, a decision.
type Analyst interface {
	Name() string
	Analyze(ctx context.Context, view models.StateView) (*models.AnalystResult, error)
}

// Initializer is implemented by analysts that bind external clients before
// the first run. Init must be safe to call again after a failure.
type Initializer interface {
	Init(ctx context.Context) error
}

// Team binds one analyst to each workflow stage.
type Team struct {
	Fundamental Analyst
	Technical   Analyst
	Valuation   Analyst
	Summary     Analyst
	Investment  Analyst
}

func (t Team) Validate() error {
	for role, a := range map[string]Analyst{
		"fundamental": t.Fundamental,
		"technical":   t.Technical,
		"valuation":   t.Valuation,
		"summary":     t.Summary,
		"investment":  t.Investment,
	} {
		if a == nil {
			return fmt.Errorf("no %s analyst bound", role)
		}
	}
	return nil
}

// Members lists the analysts in stage order.
func (t Team) Members() []Analyst {
	return []Analyst{t.Fundamental, t.Technical, t.Valuation, t.Summary, t.Investment}
}
