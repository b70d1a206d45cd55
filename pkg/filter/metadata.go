// Package filter translates loosely-typed filter requests into gorm queries.
//
// Every entity that supports filtering declares a static Metadata table of
// its filterable columns and relations. The engine only ever interpolates
// identifiers taken from that table; caller-supplied values are always bound
// through placeholders.
package filter

import "strings"

// Relation describes how a related entity is reached from the owning table.
// Both belongs-to and has-many translate to the same existence subquery:
//
//	EXISTS (SELECT 1 FROM related WHERE related.related_key = owner.owner_key)
//
// A non-empty JoinTable routes the correlation through a many-to-many pivot.
type Relation struct {
	Meta           func() *Metadata
	OwnerKey       string
	RelatedKey     string
	JoinTable      string
	JoinOwnerKey   string
	JoinRelatedKey string

	// Association is the gorm association name used for eager loading.
	Association string
}

// Metadata is the statically declared capability table for one entity type.
type Metadata struct {
	Table     string
	Columns   map[string]bool
	Relations map[string]Relation
}

// Recognized reports whether a filter key names something this entity can
// answer: the preload directive, a native column, a declared relation (bare
// or dotted), or a known custom-field label. Unrecognized keys are dropped by
// Apply and rejected by ApplyStrict; this is the single toggle point between
// the two policies.
func (m *Metadata) Recognized(key string, customFields map[string]int64) bool {
	if key == keyPreload {
		return true
	}
	if m.Columns[key] {
		return true
	}
	if _, ok := m.Relations[key]; ok {
		return true
	}
	if relName, _, found := strings.Cut(key, "."); found {
		if _, ok := m.Relations[relName]; ok {
			return true
		}
	}
	if _, ok := customFields[key]; ok {
		return true
	}
	return false
}

// toSnake converts a camelCase filter key to its snake_case column name.
func toSnake(key string) string {
	var b strings.Builder
	for _, r := range key {
		if r >= 'A' && r <= 'Z' {
			b.WriteByte('_')
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
