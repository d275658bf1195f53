package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type Action string

const (
	ActionBuy  Action = "BUY"
	ActionSell Action = "SELL"
	ActionHold Action = "HOLD"
)

const (
	HoldingShort  = "short"
	HoldingMedium = "medium"
	HoldingLong   = "long"

	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

var ErrNoDecisionPayload = errors.New("no decision payload found")

// Decision is the structured output of the investment analyst.
type Decision struct {
	Action        Action   `json:"action"`
	Confidence    float64  `json:"confidence"`
	TargetPrice   *float64 `json:"target_price"`
	StopLoss      *float64 `json:"stop_loss"`
	PositionSize  float64  `json:"position_size"`
	HoldingPeriod string   `json:"holding_period"`
	RiskLevel     string   `json:"risk_level"`
	Reasons       []string `json:"reasons"`
}

// DefaultDecision is the HOLD decision used whenever analysis could not
// produce a usable one.
func DefaultDecision(cause string) Decision {
	return Decision{
		Action:        ActionHold,
		Confidence:    0,
		PositionSize:  0,
		HoldingPeriod: HoldingMedium,
		RiskLevel:     RiskMedium,
		Reasons:       []string{"analysis failed: " + cause},
	}
}

// Validate checks the decision bounds and fills the optional enum fields.
func (d *Decision) Validate() error {
	d.Action = Action(strings.ToUpper(strings.TrimSpace(string(d.Action))))
	switch d.Action {
	case ActionBuy, ActionSell, ActionHold:
	default:
		return fmt.Errorf("invalid action %q", d.Action)
	}
	if d.Confidence < 0 || d.Confidence > 1 {
		return fmt.Errorf("confidence %.4f out of range [0,1]", d.Confidence)
	}
	if d.PositionSize < 0 || d.PositionSize > 1 {
		return fmt.Errorf("position_size %.4f out of range [0,1]", d.PositionSize)
	}

	d.HoldingPeriod = strings.ToLower(strings.TrimSpace(d.HoldingPeriod))
	switch d.HoldingPeriod {
	case "":
		d.HoldingPeriod = HoldingMedium
	case HoldingShort, HoldingMedium, HoldingLong:
	default:
		return fmt.Errorf("invalid holding_period %q", d.HoldingPeriod)
	}

	d.RiskLevel = strings.ToLower(strings.TrimSpace(d.RiskLevel))
	switch d.RiskLevel {
	case "":
		d.RiskLevel = RiskMedium
	case RiskLow, RiskMedium, RiskHigh:
	default:
		return fmt.Errorf("invalid risk_level %q", d.RiskLevel)
	}
	return nil
}

// ParseDecision pulls the first JSON object out of free-form model output
// and returns it as a validated Decision.
func ParseDecision(text string) (Decision, error) {
	payload, ok := extractJSONObject(text)
	if !ok {
		return Decision{}, ErrNoDecisionPayload
	}

	var d Decision
	if err := json.Unmarshal([]byte(payload), &d); err != nil {
		return Decision{}, fmt.Errorf("decode decision: %w", err)
	}
	if err := d.Validate(); err != nil {
		return Decision{}, fmt.Errorf("validate decision: %w", err)
	}
	return d, nil
}

// extractJSONObject returns the first balanced {...} block, ignoring braces
// inside string literals.
func extractJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	for start >= 0 {
		depth := 0
		inString := false
		escaped := false
		for i := start; i < len(text); i++ {
			c := text[i]
			if inString {
				switch {
				case escaped:
					escaped = false
				case c == '\\':
					escaped = true
				case c == '"':
					inString = false
				}
				continue
			}
			switch c {
			case '"':
				inString = true
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					candidate := text[start : i+1]
					if json.Valid([]byte(candidate)) {
						return candidate, true
					}
					i = len(text)
				}
			}
		}
		next := strings.Index(text[start+1:], "{")
		if next < 0 {
			break
		}
		start += next + 1
	}
	return "", false
}
