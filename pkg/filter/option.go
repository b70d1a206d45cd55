package filter

import (
	"github.com/smallbiznis/mesa/pkg/db/option"
	"gorm.io/gorm"
)

type optionFunc func(*gorm.DB) *gorm.DB

func (f optionFunc) Apply(db *gorm.DB) *gorm.DB { return f(db) }

// Option adapts the filter engine to the generic repository's query options.
// In strict mode an unknown key is recorded on the statement and surfaces
// from the executing Find call.
func Option(meta *Metadata, filters map[string]any, customFields map[string]int64, strict bool) option.QueryOption {
	return optionFunc(func(db *gorm.DB) *gorm.DB {
		if strict {
			q, err := ApplyStrict(db, meta, filters, customFields)
			if err != nil {
				_ = db.AddError(err)
				return db
			}
			return q
		}
		return Apply(db, meta, filters, customFields)
	})
}
