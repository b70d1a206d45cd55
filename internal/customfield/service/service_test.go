package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/clock"
	"github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/smallbiznis/mesa/internal/customfield/repository"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&domain.CustomField{},
		&domain.CustomFieldOption{},
		&domain.CustomFieldValue{},
	))
	// Minimal target table; definitions seed and touch rows in it.
	require.NoError(t, db.Exec(`CREATE TABLE items (
		id INTEGER PRIMARY KEY,
		account_id INTEGER NOT NULL,
		name TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, db.Exec(`CREATE TABLE rooms (
		id INTEGER PRIMARY KEY,
		account_id INTEGER NOT NULL,
		name TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := &Service{
		db:    db,
		log:   zap.NewNop(),
		genID: node,
		clock: clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		repo:  repository.Provide(),
	}
	return svc, db
}

func testAccountCtx(t *testing.T, svc *Service) (context.Context, snowflake.ID) {
	t.Helper()
	accountID := svc.genID.Generate()
	ctx := accountcontext.WithAccount(context.Background(), accountcontext.Account{
		ID:   accountID,
		Role: "admin",
	})
	return ctx, accountID
}

func insertItem(t *testing.T, db *gorm.DB, svc *Service, accountID snowflake.ID) snowflake.ID {
	t.Helper()
	id := svc.genID.Generate()
	require.NoError(t, db.Exec(
		"INSERT INTO items (id, account_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		id, accountID, "item-"+id.String(), time.Now().UTC(), time.Now().UTC(),
	).Error)
	return id
}

func valueRows(t *testing.T, db *gorm.DB, fieldID snowflake.ID) []domain.CustomFieldValue {
	t.Helper()
	var rows []domain.CustomFieldValue
	require.NoError(t, db.Where("custom_field_id = ?", fieldID).Order("target_id").Find(&rows).Error)
	return rows
}

func strPtr(s string) *string { return &s }

func TestCreateGeneratesNameFromLabel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Spice Level",
		FieldType:   domain.FieldTypeText,
		TargetModel: "items",
	})
	require.NoError(t, err)
	require.Equal(t, "spice_level", resp.Name)
	require.Equal(t, "Spice Level", resp.Label)
	require.Equal(t, domain.FieldTypeText, resp.FieldType)
	require.Equal(t, "items", resp.TargetModel)
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{Label: "  ", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.ErrorIs(t, err, domain.ErrInvalidLabel)

	_, err = svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: "enum", TargetModel: "items"})
	require.ErrorIs(t, err, domain.ErrInvalidFieldType)

	_, err = svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "invoices"})
	require.ErrorIs(t, err, domain.ErrInvalidTargetModel)

	_, err = svc.Create(context.Background(), domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestCreateDuplicateLabelConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.ErrorIs(t, err, domain.ErrConflict)

	// Same label on a different target model is a distinct definition.
	_, err = svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "rooms"})
	require.NoError(t, err)
}

func TestCreateSeedsValuesForExistingRecords(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	first := insertItem(t, db, svc, accountID)
	second := insertItem(t, db, svc, accountID)
	otherAccount := svc.genID.Generate()
	foreign := insertItem(t, db, svc, otherAccount)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:        "Origin",
		DefaultValue: strPtr("local"),
		FieldType:    domain.FieldTypeText,
		TargetModel:  "items",
	})
	require.NoError(t, err)

	fieldID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	rows := valueRows(t, db, fieldID)
	require.Len(t, rows, 2)

	seeded := map[snowflake.ID]*string{}
	for _, row := range rows {
		seeded[row.TargetID] = row.Value
	}
	require.Contains(t, seeded, first)
	require.Contains(t, seeded, second)
	require.NotContains(t, seeded, foreign)
	require.Equal(t, "local", *seeded[first])
	require.Equal(t, "local", *seeded[second])
}

func TestCreateWithoutDefaultSeedsNullValues(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	itemID := insertItem(t, db, svc, accountID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Notes",
		FieldType:   domain.FieldTypeText,
		TargetModel: "items",
	})
	require.NoError(t, err)

	fieldID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)
	rows := valueRows(t, db, fieldID)
	require.Len(t, rows, 1)
	require.Equal(t, itemID, rows[0].TargetID)
	require.Nil(t, rows[0].Value)
}

func TestCreateSelectPersistsOptions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Spice Level",
		FieldType:   domain.FieldTypeSelect,
		TargetModel: "items",
		Options: []domain.OptionInput{
			{Label: "Mild", Value: "mild"},
			{Label: "Hot", Value: "hot"},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Options, 2)

	got, err := svc.Get(ctx, resp.ID)
	require.NoError(t, err)
	values := []string{got.Options[0].Value, got.Options[1].Value}
	require.ElementsMatch(t, []string{"mild", "hot"}, values)
}

func TestGetScopedByAccount(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	resp, err := svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.NoError(t, err)

	otherCtx := accountcontext.WithAccount(context.Background(), accountcontext.Account{
		ID:   svc.genID.Generate(),
		Role: "admin",
	})
	_, err = svc.Get(otherCtx, resp.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	superCtx := accountcontext.WithAccount(context.Background(), accountcontext.Account{
		ID:   svc.genID.Generate(),
		Role: accountcontext.RoleSuperadmin,
	})
	got, err := svc.Get(superCtx, resp.ID)
	require.NoError(t, err)
	require.Equal(t, resp.ID, got.ID)
}

func TestUpdateReconcilesOptionsByValue(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Spice Level",
		FieldType:   domain.FieldTypeSelect,
		TargetModel: "items",
		Options: []domain.OptionInput{
			{Label: "Mild", Value: "mild"},
			{Label: "Hot", Value: "hot"},
		},
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, resp.ID, domain.UpdateRequest{
		Options: []domain.OptionInput{
			{Label: "Very Hot", Value: "hot"},
			{Label: "Extra", Value: "extra"},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Options, 2)

	byValue := map[string]string{}
	for _, opt := range updated.Options {
		byValue[opt.Value] = opt.Label
	}
	require.Equal(t, "Very Hot", byValue["hot"])
	require.Equal(t, "Extra", byValue["extra"])
	require.NotContains(t, byValue, "mild")
}

func TestUpdateRepairsSelectValues(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	kept := insertItem(t, db, svc, accountID)
	orphaned := insertItem(t, db, svc, accountID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Spice Level",
		FieldType:   domain.FieldTypeSelect,
		TargetModel: "items",
		Options: []domain.OptionInput{
			{Label: "Mild", Value: "mild"},
			{Label: "Hot", Value: "hot"},
		},
	})
	require.NoError(t, err)
	fieldID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	_, err = svc.Merge(ctx, "items", kept, []domain.Entry{{Name: "Spice Level", Value: "hot"}})
	require.NoError(t, err)
	_, err = svc.Merge(ctx, "items", orphaned, []domain.Entry{{Name: "Spice Level", Value: "mild"}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, resp.ID, domain.UpdateRequest{
		Options: []domain.OptionInput{{Label: "Hot", Value: "hot"}},
	})
	require.NoError(t, err)

	byTarget := map[snowflake.ID]*string{}
	for _, row := range valueRows(t, db, fieldID) {
		byTarget[row.TargetID] = row.Value
	}
	require.Equal(t, "hot", *byTarget[kept])
	require.Nil(t, byTarget[orphaned])
}

func TestUpdateRepairsMultiselectValues(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	narrowed := insertItem(t, db, svc, accountID)
	emptied := insertItem(t, db, svc, accountID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Diet",
		FieldType:   domain.FieldTypeMultiSelect,
		TargetModel: "items",
		Options: []domain.OptionInput{
			{Label: "Vegan", Value: "vegan"},
			{Label: "Halal", Value: "halal"},
			{Label: "Kosher", Value: "kosher"},
		},
	})
	require.NoError(t, err)
	fieldID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	_, err = svc.Merge(ctx, "items", narrowed, []domain.Entry{{Name: "Diet", Value: []string{"vegan", "halal"}}})
	require.NoError(t, err)
	_, err = svc.Merge(ctx, "items", emptied, []domain.Entry{{Name: "Diet", Value: []string{"kosher"}}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, resp.ID, domain.UpdateRequest{
		Options: []domain.OptionInput{
			{Label: "Vegan", Value: "vegan"},
			{Label: "Halal", Value: "halal"},
		},
	})
	require.NoError(t, err)

	byTarget := map[snowflake.ID]*string{}
	for _, row := range valueRows(t, db, fieldID) {
		byTarget[row.TargetID] = row.Value
	}
	require.JSONEq(t, `["vegan","halal"]`, *byTarget[narrowed])
	require.Nil(t, byTarget[emptied])
}

func TestUpdateDefaultPropagationSkipsExplicitValues(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	explicit := insertItem(t, db, svc, accountID)
	blank := insertItem(t, db, svc, accountID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Origin",
		FieldType:   domain.FieldTypeText,
		TargetModel: "items",
	})
	require.NoError(t, err)
	fieldID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	_, err = svc.Merge(ctx, "items", explicit, []domain.Entry{{Name: "Origin", Value: "imported"}})
	require.NoError(t, err)

	_, err = svc.Update(ctx, resp.ID, domain.UpdateRequest{DefaultValue: strPtr("local")})
	require.NoError(t, err)

	byTarget := map[snowflake.ID]*string{}
	for _, row := range valueRows(t, db, fieldID) {
		byTarget[row.TargetID] = row.Value
	}
	require.Equal(t, "imported", *byTarget[explicit])
	require.Equal(t, "local", *byTarget[blank])
}

func TestUpdateConflictsWithExistingLabel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.NoError(t, err)
	resp, err := svc.Create(ctx, domain.CreateRequest{Label: "Shade", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, resp.ID, domain.UpdateRequest{Label: strPtr("Color")})
	require.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeleteCascadesOptionsAndValues(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	insertItem(t, db, svc, accountID)

	resp, err := svc.Create(ctx, domain.CreateRequest{
		Label:        "Spice Level",
		DefaultValue: strPtr("mild"),
		FieldType:    domain.FieldTypeSelect,
		TargetModel:  "items",
		Options: []domain.OptionInput{
			{Label: "Mild", Value: "mild"},
			{Label: "Hot", Value: "hot"},
		},
	})
	require.NoError(t, err)
	fieldID, err := snowflake.ParseString(resp.ID)
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, resp.ID))

	var fields, options, values int64
	require.NoError(t, db.Model(&domain.CustomField{}).Where("id = ?", fieldID).Count(&fields).Error)
	require.NoError(t, db.Model(&domain.CustomFieldOption{}).Where("custom_field_id = ?", fieldID).Count(&options).Error)
	require.NoError(t, db.Model(&domain.CustomFieldValue{}).Where("custom_field_id = ?", fieldID).Count(&values).Error)
	require.Zero(t, fields)
	require.Zero(t, options)
	require.Zero(t, values)

	_, err = svc.Get(ctx, resp.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListFiltersByTargetModel(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{Label: "Color", FieldType: domain.FieldTypeText, TargetModel: "items"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{Label: "Theme", FieldType: domain.FieldTypeText, TargetModel: "rooms"})
	require.NoError(t, err)

	fields, err := svc.List(ctx, domain.ListRequest{TargetModel: "items"})
	require.NoError(t, err)
	require.Len(t, fields, 1)
	require.Equal(t, "Color", fields[0].Label)

	all, err := svc.List(ctx, domain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}
