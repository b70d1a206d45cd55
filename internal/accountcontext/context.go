package accountcontext

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// RoleSuperadmin grants global visibility across accounts.
const RoleSuperadmin = "superadmin"

// Account identifies the tenant and role of the current request.
type Account struct {
	ID   snowflake.ID
	Role string
}

func (a Account) IsSuperadmin() bool {
	return a.Role == RoleSuperadmin
}

// AccountContextKey is the request context key for the active account.
type AccountContextKey struct{}

// WithAccount stores the account in the context.
func WithAccount(ctx context.Context, account Account) context.Context {
	return context.WithValue(ctx, AccountContextKey{}, account)
}

// FromContext returns the account from context, if set.
func FromContext(ctx context.Context) (Account, bool) {
	if ctx == nil {
		return Account{}, false
	}
	account, ok := ctx.Value(AccountContextKey{}).(Account)
	if !ok || account.ID == 0 {
		return Account{}, false
	}
	return account, true
}
