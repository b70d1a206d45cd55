// Package domain contains persistence models for the catalog item service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

// TargetModel is the custom-field target name for items.
const TargetModel = "items"

// ItemType classifies items within an account (food, drink, ...).
type ItemType struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_item_types_name,priority:1" json:"account_id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_item_types_name,priority:2" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (ItemType) TableName() string { return "item_types" }

// Tag is a free-form label attached to items through the item_tags pivot.
type Tag struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_tags_name,priority:1" json:"account_id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_tags_name,priority:2" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Tag) TableName() string { return "tags" }

// Item is one sellable catalog entry.
type Item struct {
	ID          snowflake.ID   `gorm:"primaryKey" json:"id"`
	AccountID   snowflake.ID   `gorm:"not null;index" json:"account_id"`
	Name        string         `gorm:"type:text;not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	Price       float64        `gorm:"not null;default:0" json:"price"`
	Allergens   datatypes.JSON `gorm:"type:jsonb" json:"allergens"`
	ItemTypeID  *snowflake.ID  `gorm:"index" json:"item_type_id"`
	ItemType    *ItemType      `gorm:"foreignKey:ItemTypeID" json:"item_type,omitempty"`
	Tags        []Tag          `gorm:"many2many:item_tags;joinForeignKey:ItemID;joinReferences:TagID" json:"tags"`
	CreatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Item) TableName() string { return "items" }
