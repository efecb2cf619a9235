package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/buildcfg/internal/ir"
)

// ParseWhere parses a comma separated list of field=value terms into a
// conjunction of Equals predicates.
//
//	status=failed,error_code=UNKNOWN_PLUGIN
//	seq=3
//	source="2024.cue"
//
// A bare value made of an optional minus sign and digits is an Int;
// anything else is a String. Double quotes force a String. An empty
// expression returns a nil predicate.
func ParseWhere(expr string) (Predicate, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, nil
	}

	var preds []Predicate
	for _, term := range strings.Split(expr, ",") {
		field, raw, ok := strings.Cut(term, "=")
		field = strings.TrimSpace(field)
		if !ok || field == "" {
			return nil, fmt.Errorf("where term %q: want field=value", strings.TrimSpace(term))
		}
		value, err := parseValue(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("where term %q: %w", strings.TrimSpace(term), err)
		}
		preds = append(preds, Equals{Field: field, Value: value})
	}
	return AllOf(preds...), nil
}

func parseValue(raw string) (ir.Value, error) {
	if strings.HasPrefix(raw, `"`) {
		s, err := strconv.Unquote(raw)
		if err != nil {
			return nil, fmt.Errorf("bad quoted value %s", raw)
		}
		return ir.String(s), nil
	}
	if isInteger(raw) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, err
		}
		return ir.Int(n), nil
	}
	return ir.String(raw), nil
}

func isInteger(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
