package filter

import (
	"fmt"

	"gorm.io/gorm"
)

// Kind classifies a parsed filter value.
type Kind int

const (
	// KindInvalid marks conditions that produce no predicate. Malformed
	// filters degrade to this instead of raising.
	KindInvalid Kind = iota
	KindEquals
	KindNull
	KindNotNull
	KindCompare
	KindIn
	KindNotIn
	KindBetween
	KindNotBetween
	KindPreload
)

// Condition is the normalized form of one filter value.
type Condition struct {
	Kind     Kind
	Operator string
	Value    any
	Values   []any
}

var comparisonOperators = map[string]bool{
	">": true, ">=": true, "<": true, "<=": true, "=": true, "!=": true,
}

const (
	tagIsNull    = "isNull"
	tagIsNotNull = "isNotNull"
	keyPreload   = "preload"
)

// ParseCondition normalizes one raw filter value. Shapes it accepts:
// a bare scalar (equality), the isNull/isNotNull tags, a structured
// {operator, value} comparison, {operator, values} set or range predicates,
// and the {preload: true} marker. Anything else yields KindInvalid.
func ParseCondition(raw any) Condition {
	switch v := raw.(type) {
	case nil:
		return Condition{Kind: KindInvalid}
	case string:
		switch v {
		case "":
			return Condition{Kind: KindInvalid}
		case tagIsNull:
			return Condition{Kind: KindNull}
		case tagIsNotNull:
			return Condition{Kind: KindNotNull}
		}
		return Condition{Kind: KindEquals, Value: v}
	case map[string]any:
		if marker, ok := v[keyPreload]; ok {
			if truthy(marker) {
				return Condition{Kind: KindPreload}
			}
			return Condition{Kind: KindInvalid}
		}
		op, ok := v["operator"].(string)
		if !ok {
			return Condition{Kind: KindInvalid}
		}
		return parseOperator(op, v["value"], v["values"])
	default:
		return Condition{Kind: KindEquals, Value: raw}
	}
}

func parseOperator(op string, value any, values any) Condition {
	switch op {
	case "in", "not in":
		list := toList(values)
		if len(list) == 0 {
			return Condition{Kind: KindInvalid}
		}
		kind := KindIn
		if op == "not in" {
			kind = KindNotIn
		}
		return Condition{Kind: kind, Values: list}
	case "between", "not between":
		list := toList(values)
		if len(list) != 2 {
			return Condition{Kind: KindInvalid}
		}
		kind := KindBetween
		if op == "not between" {
			kind = KindNotBetween
		}
		return Condition{Kind: kind, Values: list}
	case "like", "not like":
		if value == nil {
			return Condition{Kind: KindInvalid}
		}
		return Condition{Kind: KindCompare, Operator: op, Value: value}
	case tagIsNull:
		return Condition{Kind: KindNull}
	case tagIsNotNull:
		return Condition{Kind: KindNotNull}
	default:
		if comparisonOperators[op] && value != nil {
			return Condition{Kind: KindCompare, Operator: op, Value: value}
		}
		// Unknown operators drop the predicate rather than erroring.
		return Condition{Kind: KindInvalid}
	}
}

// applyCondition adds the predicate for a vetted column identifier. The
// operator has already been validated by ParseCondition, so the only
// interpolated text here comes from the whitelist.
func applyCondition(q *gorm.DB, column string, c Condition) *gorm.DB {
	switch c.Kind {
	case KindEquals:
		return q.Where(column+" = ?", c.Value)
	case KindNull:
		return q.Where(column + " IS NULL")
	case KindNotNull:
		return q.Where(column + " IS NOT NULL")
	case KindCompare:
		switch c.Operator {
		case "like":
			return q.Where(column+" LIKE ?", wildcard(c.Value))
		case "not like":
			return q.Where(column+" NOT LIKE ?", wildcard(c.Value))
		default:
			return q.Where(fmt.Sprintf("%s %s ?", column, c.Operator), c.Value)
		}
	case KindIn:
		return q.Where(column+" IN ?", c.Values)
	case KindNotIn:
		return q.Where(column+" NOT IN ?", c.Values)
	case KindBetween:
		return q.Where(column+" BETWEEN ? AND ?", c.Values[0], c.Values[1])
	case KindNotBetween:
		return q.Where(column+" NOT BETWEEN ? AND ?", c.Values[0], c.Values[1])
	default:
		return q
	}
}

func wildcard(value any) string {
	return "%" + fmt.Sprintf("%v", value) + "%"
}

func toList(values any) []any {
	switch v := values.(type) {
	case []any:
		return v
	case []string:
		list := make([]any, 0, len(v))
		for _, item := range v {
			list = append(list, item)
		}
		return list
	default:
		return nil
	}
}

func truthy(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	default:
		return false
	}
}
