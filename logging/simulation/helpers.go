package simulation

import (
	"context"

	"arena/logging"
)

const (
	// EventTickBudgetOverrun is emitted when a tick takes longer than its period.
	EventTickBudgetOverrun logging.EventType = "simulation.tick_budget_overrun"
	// EventRuleError is emitted for a rule failure collected during a step.
	EventRuleError logging.EventType = "simulation.rule_error"
	// EventCommandRejected is emitted when the loop refuses to stage a command.
	EventCommandRejected logging.EventType = "simulation.command_rejected"
)

// TickBudgetOverrunPayload captures timing details for a slow tick.
type TickBudgetOverrunPayload struct {
	DurationMillis int64   `json:"durationMillis"`
	BudgetMillis   int64   `json:"budgetMillis"`
	Ratio          float64 `json:"ratio"`
	Streak         uint64  `json:"streak"`
}

type RuleErrorPayload struct {
	Error string `json:"error"`
}

type CommandRejectedPayload struct {
	Command string `json:"command"`
	Reason  string `json:"reason"`
}

// TickBudgetOverrun publishes a warning when a step overruns the tick period.
func TickBudgetOverrun(ctx context.Context, pub logging.Publisher, tick uint64, payload TickBudgetOverrunPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventTickBudgetOverrun,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}

// RuleError reports an error the step collected and skipped past.
func RuleError(ctx context.Context, pub logging.Publisher, tick uint64, err error, extra map[string]any) {
	if pub == nil || err == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventRuleError,
		Tick:     tick,
		Actor:    logging.WorldRef(),
		Severity: logging.SeverityError,
		Category: logging.CategorySimulation,
		Payload:  RuleErrorPayload{Error: err.Error()},
		Extra:    extra,
	})
}

func CommandRejected(ctx context.Context, pub logging.Publisher, tick uint64, actor logging.EntityRef, payload CommandRejectedPayload, extra map[string]any) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, logging.Event{
		Type:     EventCommandRejected,
		Tick:     tick,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySimulation,
		Payload:  payload,
		Extra:    extra,
	})
}
