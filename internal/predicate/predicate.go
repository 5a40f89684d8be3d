// Package predicate provides a typed entry-condition expression tree
// evaluated in-process against joined bar records. It replaces raw SQL
// fragments: the field schema is fixed by the BarRecord type, so an
// expression can never reference data the engine does not have.
package predicate

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"strategy-lab/internal/domain"
)

// Package errors.
var (
	ErrUnknownField = errors.New("unknown field")
	ErrSyntax       = errors.New("syntax error")
)

// Expr is a boolean expression over one joined bar.
// Satisfies domain.BarPredicate.
type Expr interface {
	Eval(r *domain.BarRecord) (bool, error)
	String() string

	// fields appends every field name the expression references.
	fields(dst []string) []string
}

// fieldValue resolves a schema field on a joined bar record.
// The switch is the schema: adding a column means adding a case here.
func fieldValue(r *domain.BarRecord, name string) (float64, bool) {
	switch name {
	case "open":
		return r.Open, true
	case "high":
		return r.High, true
	case "low":
		return r.Low, true
	case "close":
		return r.Close, true
	case "volume":
		return r.Volume, true
	case "rsi_14":
		return r.RSI14, true
	case "ema_7":
		return r.EMA7, true
	case "ema_21":
		return r.EMA21, true
	case "ema_99":
		return r.EMA99, true
	case "macd":
		return r.MACD, true
	case "macd_signal":
		return r.MACDSignal, true
	case "bb_upper":
		return r.BBUpper, true
	case "bb_middle":
		return r.BBMiddle, true
	case "bb_lower":
		return r.BBLower, true
	}
	return 0, false
}

// knownFields lists the schema in declaration order.
var knownFields = []string{
	"open", "high", "low", "close", "volume",
	"rsi_14", "ema_7", "ema_21", "ema_99",
	"macd", "macd_signal",
	"bb_upper", "bb_middle", "bb_lower",
}

// isKnownField reports whether name is part of the schema.
func isKnownField(name string) bool {
	for _, f := range knownFields {
		if f == name {
			return true
		}
	}
	return false
}

// Fields returns the distinct schema fields the expression references,
// sorted for deterministic output.
func Fields(e Expr) []string {
	seen := make(map[string]struct{})
	for _, f := range e.fields(nil) {
		seen[f] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// indicatorGroups maps a group label to the fields that imply it.
// Mirrors the indicator detection recorded alongside stored results.
var indicatorGroups = []struct {
	name   string
	fields []string
}{
	{"boll", []string{"bb_upper", "bb_middle", "bb_lower"}},
	{"ema_7", []string{"ema_7"}},
	{"ema_21", []string{"ema_21"}},
	{"ema_99", []string{"ema_99"}},
	{"macd", []string{"macd", "macd_signal"}},
	{"rsi_14", []string{"rsi_14"}},
}

// IndicatorSummary names the indicator groups the expression uses,
// joined with " and ", or "None" when it references raw OHLCV only.
func IndicatorSummary(e Expr) string {
	used := make(map[string]struct{})
	for _, f := range Fields(e) {
		for _, g := range indicatorGroups {
			for _, gf := range g.fields {
				if gf == f {
					used[g.name] = struct{}{}
				}
			}
		}
	}
	if len(used) == 0 {
		return "None"
	}
	names := make([]string, 0, len(used))
	for n := range used {
		names = append(names, n)
	}
	sort.Strings(names)
	return strings.Join(names, " and ")
}

// validate walks the expression and rejects unknown field references.
func validate(e Expr) error {
	for _, f := range e.fields(nil) {
		if !isKnownField(f) {
			return fmt.Errorf("%w: %q", ErrUnknownField, f)
		}
	}
	return nil
}
