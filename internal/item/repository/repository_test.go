package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/item/domain"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// newConstraintDB builds the catalog tables with the same column
// definitions and references the SQL migration declares, with foreign
// key enforcement switched on. AutoMigrate would skip the references,
// and this suite exists to exercise them.
func newConstraintDB(t *testing.T) (*gorm.DB, snowflake.ID) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.Exec(`PRAGMA foreign_keys = ON`).Error)

	for _, ddl := range []string{
		`CREATE TABLE accounts (
			id BIGINT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE item_types (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts (id),
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE tags (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts (id),
			name TEXT NOT NULL,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE items (
			id BIGINT PRIMARY KEY,
			account_id BIGINT NOT NULL REFERENCES accounts (id),
			name TEXT NOT NULL,
			description TEXT,
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			allergens JSONB,
			item_type_id BIGINT REFERENCES item_types (id),
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE item_tags (
			item_id BIGINT NOT NULL REFERENCES items (id) ON DELETE CASCADE,
			tag_id BIGINT NOT NULL REFERENCES tags (id) ON DELETE CASCADE,
			PRIMARY KEY (item_id, tag_id)
		)`,
	} {
		require.NoError(t, db.Exec(ddl).Error)
	}

	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	accountID := node.Generate()
	require.NoError(t, db.Exec(
		`INSERT INTO accounts (id, name) VALUES (?, ?)`, accountID, "Cafe Mesa",
	).Error)
	return db, accountID
}

func storedTypeID(t *testing.T, db *gorm.DB, id snowflake.ID) sql.NullInt64 {
	t.Helper()
	var stored sql.NullInt64
	require.NoError(t, db.Raw(
		`SELECT item_type_id FROM items WHERE id = ?`, id,
	).Scan(&stored).Error)
	return stored
}

func TestCreateTypelessItemStoresNullType(t *testing.T) {
	db, accountID := newConstraintDB(t)
	ctx := context.Background()
	r := Provide()

	item := &domain.Item{
		ID:        snowflake.ID(1001),
		AccountID: accountID,
		Name:      "Burger",
		Price:     9.5,
	}
	require.NoError(t, r.Create(ctx, db, item))

	stored := storedTypeID(t, db, item.ID)
	require.False(t, stored.Valid, "typeless item must store NULL, not a zero id")

	scope := accountcontext.ScopeFor(accountcontext.Account{ID: accountID, Role: "admin"})
	got, err := r.FindByID(ctx, db, scope, item.ID)
	require.NoError(t, err)
	require.Nil(t, got.ItemTypeID)
	require.Nil(t, got.ItemType)
}

func TestCreateItemWithTypeKeepsReference(t *testing.T) {
	db, accountID := newConstraintDB(t)
	ctx := context.Background()
	r := Provide()

	itemType := &domain.ItemType{ID: snowflake.ID(2001), AccountID: accountID, Name: "Mains"}
	require.NoError(t, r.CreateType(ctx, db, itemType))

	typeID := itemType.ID
	item := &domain.Item{
		ID:         snowflake.ID(2002),
		AccountID:  accountID,
		Name:       "Pasta",
		ItemTypeID: &typeID,
	}
	require.NoError(t, r.Create(ctx, db, item))

	scope := accountcontext.ScopeFor(accountcontext.Account{ID: accountID, Role: "admin"})
	got, err := r.FindByID(ctx, db, scope, item.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ItemTypeID)
	require.Equal(t, typeID, *got.ItemTypeID)
	require.NotNil(t, got.ItemType)
	require.Equal(t, "Mains", got.ItemType.Name)
}

func TestCreateItemRejectsUnknownType(t *testing.T) {
	db, accountID := newConstraintDB(t)
	ctx := context.Background()
	r := Provide()

	bogus := snowflake.ID(9999)
	item := &domain.Item{
		ID:         snowflake.ID(3001),
		AccountID:  accountID,
		Name:       "Ghost",
		ItemTypeID: &bogus,
	}
	require.Error(t, r.Create(ctx, db, item), "reference to a missing type must be rejected")
}

func TestUpdateDetachesTypeToNull(t *testing.T) {
	db, accountID := newConstraintDB(t)
	ctx := context.Background()
	r := Provide()

	itemType := &domain.ItemType{ID: snowflake.ID(4001), AccountID: accountID, Name: "Drinks"}
	require.NoError(t, r.CreateType(ctx, db, itemType))

	typeID := itemType.ID
	item := &domain.Item{
		ID:         snowflake.ID(4002),
		AccountID:  accountID,
		Name:       "Cola",
		ItemTypeID: &typeID,
	}
	require.NoError(t, r.Create(ctx, db, item))

	item.ItemTypeID = nil
	item.ItemType = nil
	require.NoError(t, r.Update(ctx, db, item))

	stored := storedTypeID(t, db, item.ID)
	require.False(t, stored.Valid)
}
