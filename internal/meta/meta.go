// Package meta declares the static filter capability table for every entity
// type: its storage table, filterable columns, and relations. The filter
// engine consults these declarations instead of runtime reflection, and the
// relation funcs are deferred so mutually referencing entities (tables and
// orders) can point at each other.
package meta

import "github.com/smallbiznis/mesa/pkg/filter"

var itemMeta = &filter.Metadata{
	Table: "items",
	Columns: map[string]bool{
		"id": true, "accountId": true, "name": true, "description": true,
		"price": true, "itemTypeId": true, "createdAt": true, "updatedAt": true,
	},
	Relations: map[string]filter.Relation{
		"itemType": {
			Meta:        ItemTypes,
			OwnerKey:    "item_type_id",
			RelatedKey:  "id",
			Association: "ItemType",
		},
		"tags": {
			Meta:           Tags,
			OwnerKey:       "id",
			RelatedKey:     "id",
			JoinTable:      "item_tags",
			JoinOwnerKey:   "item_id",
			JoinRelatedKey: "tag_id",
			Association:    "Tags",
		},
	},
}

var itemTypeMeta = &filter.Metadata{
	Table: "item_types",
	Columns: map[string]bool{
		"id": true, "accountId": true, "name": true, "createdAt": true, "updatedAt": true,
	},
}

var tagMeta = &filter.Metadata{
	Table: "tags",
	Columns: map[string]bool{
		"id": true, "accountId": true, "name": true, "createdAt": true, "updatedAt": true,
	},
}

var roomMeta = &filter.Metadata{
	Table: "rooms",
	Columns: map[string]bool{
		"id": true, "accountId": true, "name": true, "createdAt": true, "updatedAt": true,
	},
}

var tableMeta = &filter.Metadata{
	Table: "tables",
	Columns: map[string]bool{
		"id": true, "accountId": true, "name": true, "xStart": true, "yStart": true,
		"width": true, "height": true, "seats": true, "roomId": true,
		"createdAt": true, "updatedAt": true,
	},
	Relations: map[string]filter.Relation{
		"room": {
			Meta:        Rooms,
			OwnerKey:    "room_id",
			RelatedKey:  "id",
			Association: "Room",
		},
	},
}

// Orders are filterable through EXISTS but not preloadable from a
// table, so no association is declared. Assigned in init to break the
// tableMeta <-> orderMeta initialization cycle the compiler rejects.
func init() {
	tableMeta.Relations["orders"] = filter.Relation{
		Meta:       Orders,
		OwnerKey:   "id",
		RelatedKey: "table_id",
	}
}

var orderMeta = &filter.Metadata{
	Table: "orders",
	Columns: map[string]bool{
		"id": true, "accountId": true, "tableId": true, "status": true,
		"createdAt": true, "updatedAt": true,
	},
	Relations: map[string]filter.Relation{
		"table": {
			Meta:        Tables,
			OwnerKey:    "table_id",
			RelatedKey:  "id",
			Association: "Table",
		},
		"orderItems": {
			Meta:        OrderItems,
			OwnerKey:    "id",
			RelatedKey:  "order_id",
			Association: "OrderItems",
		},
	},
}

var orderItemMeta = &filter.Metadata{
	Table: "order_items",
	Columns: map[string]bool{
		"id": true, "orderId": true, "itemId": true, "quantity": true, "note": true,
		"createdAt": true, "updatedAt": true,
	},
}

var userMeta = &filter.Metadata{
	Table: "users",
	Columns: map[string]bool{
		"id": true, "accountId": true, "name": true, "email": true,
		"createdAt": true, "updatedAt": true,
	},
}

func Items() *filter.Metadata      { return itemMeta }
func ItemTypes() *filter.Metadata  { return itemTypeMeta }
func Tags() *filter.Metadata       { return tagMeta }
func Rooms() *filter.Metadata      { return roomMeta }
func Tables() *filter.Metadata     { return tableMeta }
func Orders() *filter.Metadata     { return orderMeta }
func OrderItems() *filter.Metadata { return orderItemMeta }
func Users() *filter.Metadata      { return userMeta }
