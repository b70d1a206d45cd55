package filter

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type testItemType struct {
	ID    int64 `gorm:"primaryKey"`
	Name  string
	Items []testItem `gorm:"foreignKey:ItemTypeID"`
}

func (testItemType) TableName() string { return "item_types" }

type testTag struct {
	ID   int64 `gorm:"primaryKey"`
	Name string
}

func (testTag) TableName() string { return "tags" }

type testItem struct {
	ID          int64 `gorm:"primaryKey"`
	Name        string
	Description *string
	Price       float64
	ItemTypeID  int64
	ItemType    *testItemType `gorm:"foreignKey:ItemTypeID"`
	Tags        []testTag     `gorm:"many2many:item_tags;joinForeignKey:ItemID;joinReferences:TagID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (testItem) TableName() string { return "items" }

func itemMetadata() *Metadata {
	var itemMeta, typeMeta, tagMeta *Metadata
	typeMeta = &Metadata{
		Table:   "item_types",
		Columns: map[string]bool{"id": true, "name": true},
		Relations: map[string]Relation{
			"items": {
				Meta:        func() *Metadata { return itemMeta },
				OwnerKey:    "id",
				RelatedKey:  "item_type_id",
				Association: "Items",
			},
		},
	}
	tagMeta = &Metadata{
		Table:   "tags",
		Columns: map[string]bool{"id": true, "name": true},
	}
	itemMeta = &Metadata{
		Table: "items",
		Columns: map[string]bool{
			"id": true, "name": true, "description": true, "price": true,
			"itemTypeId": true, "createdAt": true, "updatedAt": true,
		},
		Relations: map[string]Relation{
			"itemType": {
				Meta:        func() *Metadata { return typeMeta },
				OwnerKey:    "item_type_id",
				RelatedKey:  "id",
				Association: "ItemType",
			},
			"tags": {
				Meta:           func() *Metadata { return tagMeta },
				OwnerKey:       "id",
				RelatedKey:     "id",
				JoinTable:      "item_tags",
				JoinOwnerKey:   "item_id",
				JoinRelatedKey: "tag_id",
				Association:    "Tags",
			},
		},
	}
	return itemMeta
}

func setupFilterDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(&testItemType{}, &testTag{}, &testItem{}))
	require.NoError(t, db.Exec("CREATE TABLE custom_fields (id INTEGER PRIMARY KEY, label TEXT)").Error)
	require.NoError(t, db.Exec("CREATE TABLE custom_field_values (id INTEGER PRIMARY KEY, target_id INTEGER, custom_field_id INTEGER, value TEXT)").Error)

	desc := "house specialty"
	require.NoError(t, db.Create([]testItemType{{ID: 1, Name: "food"}, {ID: 2, Name: "drink"}}).Error)
	require.NoError(t, db.Create([]testTag{{ID: 1, Name: "vegan"}, {ID: 2, Name: "spicy"}}).Error)
	require.NoError(t, db.Create([]testItem{
		{ID: 1, Name: "Burger", Description: &desc, Price: 9.5, ItemTypeID: 1},
		{ID: 2, Name: "Salad", Price: 6, ItemTypeID: 1},
		{ID: 3, Name: "Cola", Price: 3, ItemTypeID: 2},
	}).Error)
	require.NoError(t, db.Exec("INSERT INTO item_tags (item_id, tag_id) VALUES (1, 2), (2, 1)").Error)

	require.NoError(t, db.Exec("INSERT INTO custom_fields (id, label) VALUES (10, 'Spice Level'), (11, 'Course')").Error)
	require.NoError(t, db.Exec(`INSERT INTO custom_field_values (target_id, custom_field_id, value) VALUES
		(1, 10, 'hot'), (2, 10, 'mild'), (1, 11, 'main'), (2, 11, 'starter')`).Error)

	return db
}

func queryNames(t *testing.T, db *gorm.DB, filters map[string]any, labels map[string]int64) []string {
	t.Helper()

	q := db.Model(&testItem{})
	q = Apply(q, itemMetadata(), filters, labels)

	var items []testItem
	require.NoError(t, q.Order("items.id").Find(&items).Error)

	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

func TestApplyEquality(t *testing.T) {
	db := setupFilterDB(t)
	require.Equal(t, []string{"Burger"}, queryNames(t, db, map[string]any{"name": "Burger"}, nil))
}

func TestApplyComparisonOperator(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"price": map[string]any{"operator": ">", "value": 5.0},
	}
	require.Equal(t, []string{"Burger", "Salad"}, queryNames(t, db, filters, nil))
}

func TestApplyLikeWrapsWildcards(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"name": map[string]any{"operator": "like", "value": "urge"},
	}
	require.Equal(t, []string{"Burger"}, queryNames(t, db, filters, nil))
}

func TestApplyInOperator(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"name": map[string]any{"operator": "in", "values": []any{"Salad", "Cola"}},
	}
	require.Equal(t, []string{"Salad", "Cola"}, queryNames(t, db, filters, nil))
}

func TestApplyBetweenOperator(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"price": map[string]any{"operator": "between", "values": []any{5.0, 8.0}},
	}
	require.Equal(t, []string{"Salad"}, queryNames(t, db, filters, nil))
}

func TestApplyNullTags(t *testing.T) {
	db := setupFilterDB(t)
	require.Equal(t, []string{"Salad", "Cola"}, queryNames(t, db, map[string]any{"description": "isNull"}, nil))
	require.Equal(t, []string{"Burger"}, queryNames(t, db, map[string]any{"description": "isNotNull"}, nil))
}

func TestApplyCamelCaseColumn(t *testing.T) {
	db := setupFilterDB(t)
	require.Equal(t, []string{"Cola"}, queryNames(t, db, map[string]any{"itemTypeId": int64(2)}, nil))
}

func TestApplyUnknownKeyIsDropped(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"nope":              "x",
		"name; DROP TABLE":  "y",
		"unknown.traversal": "z",
	}
	require.Equal(t, []string{"Burger", "Salad", "Cola"}, queryNames(t, db, filters, nil))
}

func TestApplyUnknownOperatorIsDropped(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"price": map[string]any{"operator": "~~", "value": 5.0},
	}
	require.Equal(t, []string{"Burger", "Salad", "Cola"}, queryNames(t, db, filters, nil))
}

func TestApplyStrictRejectsUnknownKey(t *testing.T) {
	db := setupFilterDB(t)

	q := db.Model(&testItem{})
	_, err := ApplyStrict(q, itemMetadata(), map[string]any{"nope": "x"}, nil)

	var keyErr *UnknownKeyError
	require.ErrorAs(t, err, &keyErr)
	require.Equal(t, "nope", keyErr.Key)
}

func TestApplyRelationPredicate(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{"itemType.name": "drink"}
	require.Equal(t, []string{"Cola"}, queryNames(t, db, filters, nil))
}

func TestApplyPivotRelationPredicate(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{"tags.name": "spicy"}
	require.Equal(t, []string{"Burger"}, queryNames(t, db, filters, nil))
}

func TestApplyRelationAndColumnCombined(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"itemType.name": "food",
		"price":         map[string]any{"operator": "<", "value": 7.0},
	}
	require.Equal(t, []string{"Salad"}, queryNames(t, db, filters, nil))
}

func TestApplyCustomFieldPredicate(t *testing.T) {
	db := setupFilterDB(t)
	labels := map[string]int64{"Spice Level": 10, "Course": 11}

	filters := map[string]any{"Spice Level": "hot"}
	require.Equal(t, []string{"Burger"}, queryNames(t, db, filters, labels))
}

func TestApplyMultipleCustomFieldsJoinIndependently(t *testing.T) {
	db := setupFilterDB(t)
	labels := map[string]int64{"Spice Level": 10, "Course": 11}

	filters := map[string]any{
		"Spice Level": "mild",
		"Course":      "starter",
	}
	require.Equal(t, []string{"Salad"}, queryNames(t, db, filters, labels))

	// Contradictory predicates across two fields must not match through a
	// single shared join.
	filters = map[string]any{
		"Spice Level": "hot",
		"Course":      "starter",
	}
	require.Empty(t, queryNames(t, db, filters, labels))
}

func TestApplyCustomFieldWithNativeColumn(t *testing.T) {
	db := setupFilterDB(t)
	labels := map[string]int64{"Spice Level": 10}

	filters := map[string]any{
		"Spice Level": map[string]any{"operator": "in", "values": []any{"hot", "mild"}},
		"price":       map[string]any{"operator": ">", "value": 7.0},
	}
	require.Equal(t, []string{"Burger"}, queryNames(t, db, filters, labels))
}

func TestApplyCustomFieldRowsStayDeduplicated(t *testing.T) {
	db := setupFilterDB(t)
	labels := map[string]int64{"Spice Level": 10}

	// A second value row for the same item and field must not duplicate the
	// item in the result set.
	require.NoError(t, db.Exec("INSERT INTO custom_field_values (target_id, custom_field_id, value) VALUES (1, 10, 'hot')").Error)

	filters := map[string]any{"Spice Level": "hot"}
	require.Equal(t, []string{"Burger"}, queryNames(t, db, filters, labels))
}

func queryItems(t *testing.T, db *gorm.DB, filters map[string]any) []testItem {
	t.Helper()

	q := Apply(db.Model(&testItem{}), itemMetadata(), filters, nil)

	var items []testItem
	require.NoError(t, q.Order("items.id").Find(&items).Error)
	return items
}

func TestApplyPreloadKeyLoadsAssociations(t *testing.T) {
	db := setupFilterDB(t)

	plain := queryItems(t, db, map[string]any{"name": "Burger"})
	require.Len(t, plain, 1)
	require.Nil(t, plain[0].ItemType)
	require.Empty(t, plain[0].Tags)

	items := queryItems(t, db, map[string]any{
		"name":    "Burger",
		"preload": "itemType,tags",
	})
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ItemType)
	require.Equal(t, "food", items[0].ItemType.Name)
	require.Len(t, items[0].Tags, 1)
	require.Equal(t, "spicy", items[0].Tags[0].Name)
}

func TestApplyPreloadNestedPath(t *testing.T) {
	db := setupFilterDB(t)

	items := queryItems(t, db, map[string]any{
		"name":    "Cola",
		"preload": "itemType.items",
	})
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ItemType)
	require.Equal(t, "drink", items[0].ItemType.Name)
	require.Len(t, items[0].ItemType.Items, 1)
	require.Equal(t, "Cola", items[0].ItemType.Items[0].Name)
}

func TestApplyBareRelationPreloadMarker(t *testing.T) {
	db := setupFilterDB(t)

	items := queryItems(t, db, map[string]any{
		"name":     "Salad",
		"itemType": map[string]any{"preload": true},
		"tags":     map[string]any{"preload": true},
	})
	require.Len(t, items, 1)
	require.NotNil(t, items[0].ItemType)
	require.Equal(t, "food", items[0].ItemType.Name)
	require.Len(t, items[0].Tags, 1)
	require.Equal(t, "vegan", items[0].Tags[0].Name)
}

func TestApplyPreloadUnknownNameIgnored(t *testing.T) {
	db := setupFilterDB(t)

	items := queryItems(t, db, map[string]any{"preload": "nope,itemType.nope"})
	require.Len(t, items, 3)
	require.Nil(t, items[0].ItemType)
}

func TestApplyNilAndEmptyValuesAreDropped(t *testing.T) {
	db := setupFilterDB(t)
	filters := map[string]any{
		"name":  "",
		"price": nil,
	}
	require.Equal(t, []string{"Burger", "Salad", "Cola"}, queryNames(t, db, filters, nil))
}
