package service

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/stretchr/testify/require"
)

func TestMergeUpsertsEntriesAndReturnsExtras(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Spice Level",
		FieldType:   domain.FieldTypeSelect,
		TargetModel: "items",
		Options: []domain.OptionInput{
			{Label: "Mild", Value: "mild"},
			{Label: "Hot", Value: "hot"},
		},
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)

	extras, err := svc.Merge(ctx, "items", itemID, []domain.Entry{
		{Name: "Spice Level", Value: "hot"},
	})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"Spice Level": "hot"}, extras)

	var rows []domain.CustomFieldValue
	require.NoError(t, db.Where("target_id = ?", itemID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "hot", *rows[0].Value)
}

func TestMergeAppliesDefaultsForAbsentFields(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:        "Origin",
		DefaultValue: strPtr("local"),
		FieldType:    domain.FieldTypeText,
		TargetModel:  "items",
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{
		Label:        "Unit",
		DefaultValue: strPtr("piece"),
		FieldType:    domain.FieldTypeText,
		TargetModel:  "items",
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)

	extras, err := svc.Merge(ctx, "items", itemID, []domain.Entry{
		{Name: "Origin", Value: "imported"},
	})
	require.NoError(t, err)
	require.Equal(t, "imported", extras["Origin"])
	require.Equal(t, "piece", extras["Unit"])
}

func TestMergeIgnoresUnknownNames(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	itemID := insertItem(t, db, svc, accountID)

	extras, err := svc.Merge(ctx, "items", itemID, []domain.Entry{
		{Name: "No Such Field", Value: "ignored"},
	})
	require.NoError(t, err)
	require.Empty(t, extras)

	var count int64
	require.NoError(t, db.Model(&domain.CustomFieldValue{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestMergeInvalidOptionAbortsAtomically(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Spice Level",
		FieldType:   domain.FieldTypeSelect,
		TargetModel: "items",
		Options:     []domain.OptionInput{{Label: "Mild", Value: "mild"}},
	})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateRequest{
		Label:       "Origin",
		FieldType:   domain.FieldTypeText,
		TargetModel: "items",
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)

	var before int64
	require.NoError(t, db.Model(&domain.CustomFieldValue{}).Where("value IS NOT NULL").Count(&before).Error)

	_, err = svc.Merge(ctx, "items", itemID, []domain.Entry{
		{Name: "Origin", Value: "imported"},
		{Name: "Spice Level", Value: "volcanic"},
	})
	var optErr *domain.InvalidOptionError
	require.ErrorAs(t, err, &optErr)
	require.Equal(t, "Spice Level", optErr.Field)
	require.Equal(t, []string{"mild"}, optErr.Allowed)

	var after int64
	require.NoError(t, db.Model(&domain.CustomFieldValue{}).Where("value IS NOT NULL").Count(&after).Error)
	require.Equal(t, before, after)
}

func TestMergeMultiselectStoresJSONArray(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Diet",
		FieldType:   domain.FieldTypeMultiSelect,
		TargetModel: "items",
		Options: []domain.OptionInput{
			{Label: "Vegan", Value: "vegan"},
			{Label: "Halal", Value: "halal"},
		},
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)

	extras, err := svc.Merge(ctx, "items", itemID, []domain.Entry{
		{Name: "Diet", Value: []any{"vegan", "halal"}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"vegan", "halal"}, extras["Diet"])

	var rows []domain.CustomFieldValue
	require.NoError(t, db.Where("target_id = ?", itemID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.JSONEq(t, `["vegan","halal"]`, *rows[0].Value)

	loaded, err := svc.LoadValues(ctx, "items", []snowflake.ID{itemID})
	require.NoError(t, err)
	require.Equal(t, []string{"vegan", "halal"}, loaded[itemID]["Diet"])
}

func TestMergeMultiselectScalarNormalizedToArray(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Diet",
		FieldType:   domain.FieldTypeMultiSelect,
		TargetModel: "items",
		Options:     []domain.OptionInput{{Label: "Vegan", Value: "vegan"}},
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)

	_, err = svc.Merge(ctx, "items", itemID, []domain.Entry{{Name: "Diet", Value: "vegan"}})
	require.NoError(t, err)

	var rows []domain.CustomFieldValue
	require.NoError(t, db.Where("target_id = ?", itemID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.JSONEq(t, `["vegan"]`, *rows[0].Value)
}

func TestMergeConvergesOnRepeat(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Origin",
		FieldType:   domain.FieldTypeText,
		TargetModel: "items",
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)

	_, err = svc.Merge(ctx, "items", itemID, []domain.Entry{{Name: "Origin", Value: "local"}})
	require.NoError(t, err)
	_, err = svc.Merge(ctx, "items", itemID, []domain.Entry{{Name: "Origin", Value: "imported"}})
	require.NoError(t, err)

	var rows []domain.CustomFieldValue
	require.NoError(t, db.Where("target_id = ?", itemID).Find(&rows).Error)
	require.Len(t, rows, 1)
	require.Equal(t, "imported", *rows[0].Value)
}

func TestMergeRequiresAccount(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Merge(context.Background(), "items", svc.genID.Generate(), nil)
	require.ErrorIs(t, err, domain.ErrInvalidAccount)
}

func TestLoadValuesEmptyIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx, _ := testAccountCtx(t, svc)

	loaded, err := svc.LoadValues(ctx, "items", nil)
	require.NoError(t, err)
	require.Empty(t, loaded)
}

func TestDeleteValuesIsIdempotent(t *testing.T) {
	svc, db := newTestService(t)
	ctx, accountID := testAccountCtx(t, svc)

	_, err := svc.Create(ctx, domain.CreateRequest{
		Label:       "Origin",
		FieldType:   domain.FieldTypeText,
		TargetModel: "items",
	})
	require.NoError(t, err)

	itemID := insertItem(t, db, svc, accountID)
	_, err = svc.Merge(ctx, "items", itemID, []domain.Entry{{Name: "Origin", Value: "local"}})
	require.NoError(t, err)

	otherID := insertItem(t, db, svc, accountID)
	_, err = svc.Merge(ctx, "items", otherID, []domain.Entry{{Name: "Origin", Value: "imported"}})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteValues(ctx, itemID))
	require.NoError(t, svc.DeleteValues(ctx, itemID))

	var count int64
	require.NoError(t, db.Model(&domain.CustomFieldValue{}).Where("target_id = ?", itemID).Count(&count).Error)
	require.Zero(t, count)

	// Deletion is scoped to the one target; the sibling keeps its value.
	var kept []domain.CustomFieldValue
	require.NoError(t, db.Where("target_id = ?", otherID).Find(&kept).Error)
	require.Len(t, kept, 1)
	require.Equal(t, "imported", *kept[0].Value)
}
