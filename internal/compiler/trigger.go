package compiler

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/roach88/logicflow/internal/ir"
)

// cronParser accepts six-field expressions with a leading seconds field,
// the format emitted into scheduled trigger entry points.
var cronParser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// CronExpression converts a recurrence into a six-field cron expression.
//
//	Second, 10 → "*/10 * * * * *"
//	Minute, 5  → "0 */5 * * * *"
//	Hour, 2    → "0 0 */2 * * *"
//	Day, 1     → "0 0 0 */1 * *"
//	Month, 3   → "0 0 0 1 */3 *"
//
// Year and unknown frequencies fail with UNSUPPORTED_TRIGGER. The result is
// parsed with robfig/cron before being returned, so a non-nil expression is
// always schedulable.
func CronExpression(r *ir.Recurrence) (string, error) {
	if r == nil {
		return "", unsupportedTrigger("recurrence is missing")
	}
	if r.Interval < 1 {
		return "", unsupportedTrigger(fmt.Sprintf("interval must be positive, got %d", r.Interval))
	}

	var expr string
	switch strings.ToLower(r.Frequency) {
	case "second":
		expr = fmt.Sprintf("*/%d * * * * *", r.Interval)
	case "minute":
		expr = fmt.Sprintf("0 */%d * * * *", r.Interval)
	case "hour":
		expr = fmt.Sprintf("0 0 */%d * * *", r.Interval)
	case "day":
		expr = fmt.Sprintf("0 0 0 */%d * *", r.Interval)
	case "month":
		expr = fmt.Sprintf("0 0 0 1 */%d *", r.Interval)
	default:
		return "", unsupportedTrigger(fmt.Sprintf("frequency %q is not supported", r.Frequency))
	}

	if _, err := cronParser.Parse(expr); err != nil {
		return "", unsupportedTrigger(fmt.Sprintf("invalid schedule %q: %v", expr, err))
	}
	return expr, nil
}

// NextFires returns the next n fire times of a cron expression after from.
func NextFires(expr string, from time.Time, n int) ([]time.Time, error) {
	schedule, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("parse schedule %q: %w", expr, err)
	}

	fires := make([]time.Time, 0, n)
	next := from
	for range n {
		next = schedule.Next(next)
		fires = append(fires, next)
	}
	return fires, nil
}

func unsupportedTrigger(msg string) *ir.Error {
	return ir.NewUnsupportedTriggerError("", msg)
}
