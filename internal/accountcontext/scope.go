package accountcontext

import (
	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Scope narrows queries to one account. Superadmin requests carry the Global
// flag and bypass the account predicate entirely.
type Scope struct {
	AccountID snowflake.ID
	Global    bool
}

func ScopeFor(account Account) Scope {
	return Scope{AccountID: account.ID, Global: account.IsSuperadmin()}
}

// Apply adds the account predicate on table unless the scope is global.
func (s Scope) Apply(q *gorm.DB, table string) *gorm.DB {
	if s.Global {
		return q
	}
	return q.Where(table+".account_id = ?", s.AccountID)
}
