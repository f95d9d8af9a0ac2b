// Package core provides filtering of journal records.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/entrykit/internal/journal"
	"github.com/jmylchreest/entrykit/internal/model"
)

// FilterOp represents a comparison operator.
type FilterOp string

const (
	FilterOpEqual     FilterOp = "="  // Exact match
	FilterOpNotEqual  FilterOp = "!=" // Not equal
	FilterOpContains  FilterOp = "~"  // Contains substring
	FilterOpRegex     FilterOp = "~=" // Regex match
	FilterOpGreater   FilterOp = ">"  // Greater than
	FilterOpLess      FilterOp = "<"  // Less than
	FilterOpGreaterEq FilterOp = ">=" // Greater than or equal
	FilterOpLessEq    FilterOp = "<=" // Less than or equal
)

// FilterCondition represents a single filter condition.
type FilterCondition struct {
	Field    string   // name, summary, event, reason, precedence, priority, at
	Operator FilterOp // Comparison operator
	Value    string   // Value to compare against

	regex       *regexp.Regexp
	priorityVal model.Priority
	timestampOp time.Time
}

// FilterExpr represents a compound filter expression.
// Multiple conditions are ANDed together.
type FilterExpr struct {
	Conditions []FilterCondition
}

// FilterOptions specifies criteria for filtering records.
type FilterOptions struct {
	Since time.Duration // Keep records newer than now-since (0=all)
	Name  string        // Exact match on entry name
	Event string        // Exact match on event kind
	Now   func() time.Time
}

// Filter filters records based on the provided options. Order is kept.
func Filter(recs []journal.Record, opts FilterOptions) []journal.Record {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	cutoff := now().Add(-opts.Since)

	result := make([]journal.Record, 0, len(recs))
	for _, rec := range recs {
		if opts.Since > 0 && rec.At.Before(cutoff) {
			continue
		}
		if opts.Name != "" && rec.Name != opts.Name {
			continue
		}
		if opts.Event != "" && rec.Event != opts.Event {
			continue
		}
		result = append(result, rec)
	}
	return result
}

// ParseDuration parses a duration string with extended formats.
// Supports: 48h, 7d, 1w, 0 (all time)
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)

	if s == "0" || s == "" {
		return 0, nil
	}

	if daysStr, found := strings.CutSuffix(s, "d"); found {
		days, err := strconv.Atoi(daysStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(days) * 24 * time.Hour, nil
	}

	if weeksStr, found := strings.CutSuffix(s, "w"); found {
		weeks, err := strconv.Atoi(weeksStr)
		if err != nil {
			return 0, fmt.Errorf("invalid duration: %s", s)
		}
		return time.Duration(weeks) * 7 * 24 * time.Hour, nil
	}

	return time.ParseDuration(s)
}

// ParseFilter parses a filter expression string into a FilterExpr.
// Format: "field=value,field2~value2,field3>value3"
// Multiple conditions are comma-separated and ANDed together.
//
// Supported fields: name, summary, event, reason, precedence, priority, at
// Supported operators: = (equal), != (not equal), ~ (contains), ~= (regex), >, <, >=, <=
//
// Examples:
//   - "event=dismissed" - dismissals only
//   - "name~upload" - entry name contains "upload"
//   - "priority>=high" - entries ranked high or above
//   - "event=dismissed,reason=expired" - entries that timed out
//   - "at>1h" - events from the last hour
func ParseFilter(expr string) (*FilterExpr, error) {
	filter := &FilterExpr{}
	if expr == "" {
		return filter, nil
	}

	for part := range strings.SplitSeq(expr, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		cond, err := parseCondition(part)
		if err != nil {
			return nil, err
		}
		filter.Conditions = append(filter.Conditions, cond)
	}

	return filter, nil
}

// parseCondition parses a single condition like "event=dismissed".
func parseCondition(s string) (FilterCondition, error) {
	// Longest operators first so "!=" is not read as "=".
	operators := []FilterOp{
		FilterOpNotEqual,
		FilterOpGreaterEq,
		FilterOpLessEq,
		FilterOpRegex,
		FilterOpEqual,
		FilterOpContains,
		FilterOpGreater,
		FilterOpLess,
	}

	for _, op := range operators {
		idx := strings.Index(s, string(op))
		if idx > 0 {
			cond := FilterCondition{
				Field:    strings.ToLower(strings.TrimSpace(s[:idx])),
				Operator: op,
				Value:    strings.TrimSpace(s[idx+len(op):]),
			}
			if err := cond.init(); err != nil {
				return FilterCondition{}, err
			}
			return cond, nil
		}
	}

	return FilterCondition{}, fmt.Errorf("invalid filter condition: %s (missing operator)", s)
}

// init pre-parses and validates the condition value.
func (c *FilterCondition) init() error {
	switch c.Field {
	case "name":
	case "summary", "title":
		c.Field = "summary"
	case "event", "kind":
		c.Field = "event"
	case "reason":
	case "precedence":
	case "priority", "rank":
		c.Field = "priority"
		p, err := model.ParsePriority(c.Value)
		if err != nil {
			return err
		}
		c.priorityVal = p
	case "at", "time", "timestamp":
		c.Field = "at"
		dur, err := ParseDuration(c.Value)
		if err != nil {
			return fmt.Errorf("invalid time value: %w", err)
		}
		c.timestampOp = time.Now().Add(-dur)
	default:
		return fmt.Errorf("unknown filter field: %s", c.Field)
	}

	if c.Operator == FilterOpRegex {
		re, err := regexp.Compile(c.Value)
		if err != nil {
			return fmt.Errorf("invalid regex: %w", err)
		}
		c.regex = re
	}

	return nil
}

// Match tests if a record matches the filter expression.
func (f *FilterExpr) Match(rec journal.Record) bool {
	for _, cond := range f.Conditions {
		if !cond.Match(rec) {
			return false
		}
	}
	return true
}

// Match tests if a record matches this single condition.
func (c *FilterCondition) Match(rec journal.Record) bool {
	switch c.Field {
	case "name":
		return c.matchString(rec.Name)
	case "summary":
		return c.matchString(rec.Summary)
	case "event":
		return c.matchString(rec.Event)
	case "reason":
		return c.matchString(rec.Reason)
	case "precedence":
		return c.matchString(rec.Precedence)
	case "priority":
		if rec.Priority == "" {
			// Unprioritized entries rank below every concrete priority.
			return c.matchPriority(model.PriorityUnset)
		}
		p, err := model.ParsePriority(rec.Priority)
		if err != nil {
			return false
		}
		return c.matchPriority(p)
	case "at":
		return c.matchTimestamp(rec.At)
	default:
		return false
	}
}

func (c *FilterCondition) matchString(fieldValue string) bool {
	switch c.Operator {
	case FilterOpEqual:
		return fieldValue == c.Value
	case FilterOpNotEqual:
		return fieldValue != c.Value
	case FilterOpContains:
		return strings.Contains(strings.ToLower(fieldValue), strings.ToLower(c.Value))
	case FilterOpRegex:
		return c.regex != nil && c.regex.MatchString(fieldValue)
	default:
		return false
	}
}

func (c *FilterCondition) matchPriority(p model.Priority) bool {
	switch c.Operator {
	case FilterOpEqual:
		return p == c.priorityVal
	case FilterOpNotEqual:
		return p != c.priorityVal
	case FilterOpGreater:
		return p > c.priorityVal
	case FilterOpLess:
		return p < c.priorityVal
	case FilterOpGreaterEq:
		return p >= c.priorityVal
	case FilterOpLessEq:
		return p <= c.priorityVal
	default:
		return false
	}
}

func (c *FilterCondition) matchTimestamp(fieldValue time.Time) bool {
	switch c.Operator {
	case FilterOpGreater:
		return fieldValue.After(c.timestampOp)
	case FilterOpLess:
		return fieldValue.Before(c.timestampOp)
	case FilterOpGreaterEq:
		return !fieldValue.Before(c.timestampOp)
	case FilterOpLessEq:
		return !fieldValue.After(c.timestampOp)
	default:
		return false
	}
}

// FilterWithExpr filters records using a filter expression.
func FilterWithExpr(recs []journal.Record, expr *FilterExpr) []journal.Record {
	if expr == nil || len(expr.Conditions) == 0 {
		return recs
	}

	result := make([]journal.Record, 0, len(recs))
	for _, rec := range recs {
		if expr.Match(rec) {
			result = append(result, rec)
		}
	}
	return result
}
