package filter

import (
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"
)

// Value table and definition table joined by the custom-field predicate
// builder. Each filtered label gets its own cfv_N/cf_N alias pair.
const (
	valueTable      = "custom_field_values"
	definitionTable = "custom_fields"
)

// UnknownKeyError is returned by ApplyStrict for filter keys the target
// entity does not recognize.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown filter key %q", e.Key)
}

// Apply translates a generic filter request into predicates on q. Keys may
// name native columns, declared relations (bare or dotted), or custom-field
// labels from customFields; anything else is dropped silently. The returned
// query always projects the target table's own columns and is de-duplicated
// by primary key when custom-field joins were added.
func Apply(q *gorm.DB, meta *Metadata, filters map[string]any, customFields map[string]int64) *gorm.DB {
	q, hasCustom := translate(q, meta, filters, customFields)
	if hasCustom {
		return q.Distinct(meta.Table + ".*")
	}
	return q.Select(meta.Table + ".*")
}

// ApplyStrict behaves like Apply but rejects unrecognized keys instead of
// dropping them.
func ApplyStrict(q *gorm.DB, meta *Metadata, filters map[string]any, customFields map[string]int64) (*gorm.DB, error) {
	for key := range filters {
		if !meta.Recognized(key, customFields) {
			return nil, &UnknownKeyError{Key: key}
		}
	}
	return Apply(q, meta, filters, customFields), nil
}

func translate(q *gorm.DB, meta *Metadata, filters map[string]any, customFields map[string]int64) (*gorm.DB, bool) {
	native := make(map[string]any)
	custom := make(map[string]any)
	for key, raw := range filters {
		if !meta.Recognized(key, customFields) {
			continue
		}
		if _, ok := customFields[key]; ok {
			custom[key] = raw
			continue
		}
		native[key] = raw
	}

	if len(custom) > 0 {
		q = applyCustomFieldFilters(q, meta.Table, custom)
	}

	for _, key := range sortedKeys(native) {
		raw := native[key]

		if key == keyPreload {
			q = applyPreloads(q, meta, raw)
			continue
		}

		if relName, field, ok := strings.Cut(key, "."); ok {
			rel, declared := meta.Relations[relName]
			if !declared {
				continue
			}
			q = applyRelationFilter(q, meta, rel, field, raw)
			continue
		}

		cond := ParseCondition(raw)
		if rel, isRelation := meta.Relations[key]; isRelation {
			// A bare relation key only carries the preload marker; any
			// other shape has no column to bind against.
			if cond.Kind == KindPreload && rel.Association != "" {
				q = q.Preload(rel.Association)
			}
			continue
		}
		if cond.Kind == KindInvalid || cond.Kind == KindPreload {
			continue
		}
		q = applyCondition(q, meta.Table+"."+toSnake(key), cond)
	}

	return q, len(custom) > 0
}

// applyCustomFieldFilters adds one uniquely-aliased join pair per filtered
// label: the value table on target id, the definition table on field id
// narrowed to the label, then the operator against the joined value column.
func applyCustomFieldFilters(q *gorm.DB, target string, custom map[string]any) *gorm.DB {
	for index, label := range sortedKeys(custom) {
		cfv := fmt.Sprintf("cfv_%d", index)
		cf := fmt.Sprintf("cf_%d", index)

		q = q.
			Joins(fmt.Sprintf("INNER JOIN %s AS %s ON %s.target_id = %s.id", valueTable, cfv, cfv, target)).
			Joins(fmt.Sprintf("INNER JOIN %s AS %s ON %s.id = %s.custom_field_id", definitionTable, cf, cf, cfv)).
			Where(cf+".label = ?", label)

		cond := ParseCondition(custom[label])
		if cond.Kind == KindInvalid || cond.Kind == KindPreload {
			continue
		}
		q = applyCondition(q, cfv+".value", cond)
	}
	return q
}

// applyRelationFilter scopes the remaining key inside an existence subquery
// against the related entity, reusing the same translation recursively.
func applyRelationFilter(q *gorm.DB, meta *Metadata, rel Relation, field string, raw any) *gorm.DB {
	relMeta := rel.Meta()

	sub := q.Session(&gorm.Session{NewDB: true}).Table(relMeta.Table)
	if rel.JoinTable != "" {
		sub = sub.
			Joins(fmt.Sprintf("INNER JOIN %s ON %s.%s = %s.%s",
				rel.JoinTable, rel.JoinTable, rel.JoinRelatedKey, relMeta.Table, rel.RelatedKey)).
			Where(fmt.Sprintf("%s.%s = %s.%s", rel.JoinTable, rel.JoinOwnerKey, meta.Table, rel.OwnerKey))
	} else {
		sub = sub.Where(fmt.Sprintf("%s.%s = %s.%s", relMeta.Table, rel.RelatedKey, meta.Table, rel.OwnerKey))
	}

	sub, _ = translate(sub, relMeta, map[string]any{field: raw}, nil)
	return q.Where("EXISTS (?)", sub.Select("1"))
}

func applyPreloads(q *gorm.DB, meta *Metadata, raw any) *gorm.DB {
	var names []string
	switch v := raw.(type) {
	case string:
		names = strings.Split(v, ",")
	case []any:
		for _, item := range v {
			if name, ok := item.(string); ok {
				names = append(names, name)
			}
		}
	case []string:
		names = v
	}

	for _, name := range names {
		association := resolveAssociation(meta, strings.TrimSpace(name))
		if association == "" {
			continue
		}
		q = q.Preload(association)
	}
	return q
}

// resolveAssociation maps a caller-facing relation path (one nesting level,
// e.g. "room.orders") to the gorm association path.
func resolveAssociation(meta *Metadata, name string) string {
	head, tail, nested := strings.Cut(name, ".")
	rel, ok := meta.Relations[head]
	if !ok || rel.Association == "" {
		return ""
	}
	if !nested {
		return rel.Association
	}
	nestedRel, ok := rel.Meta().Relations[tail]
	if !ok || nestedRel.Association == "" {
		return ""
	}
	return rel.Association + "." + nestedRel.Association
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
