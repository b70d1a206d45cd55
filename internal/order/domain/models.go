// Package domain contains persistence models for the order service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	itemdomain "github.com/smallbiznis/mesa/internal/item/domain"
	tabledomain "github.com/smallbiznis/mesa/internal/table/domain"
)

// TargetModel is the custom-field target name for orders.
const TargetModel = "orders"

const (
	StatusDraft     = "draft"
	StatusOpen      = "open"
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
)

// transitions maps each status to the statuses it may move to.
var transitions = map[string][]string{
	StatusDraft: {StatusOpen, StatusCancelled},
	StatusOpen:  {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether an order may move from one status to another.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s string) bool {
	switch s {
	case StatusDraft, StatusOpen, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Order is a guest order placed at a table.
type Order struct {
	ID         snowflake.ID       `gorm:"primaryKey" json:"id"`
	AccountID  snowflake.ID       `gorm:"not null;index" json:"account_id"`
	TableID    snowflake.ID       `gorm:"not null;index" json:"table_id"`
	Table      *tabledomain.Table `gorm:"foreignKey:TableID" json:"table,omitempty"`
	Status     string             `gorm:"type:text;not null;default:draft" json:"status"`
	OrderItems []OrderItem        `gorm:"foreignKey:OrderID" json:"order_items"`
	CreatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Order) TableName() string { return "orders" }

// OrderItem is one line of an order. Price captures the item's unit price at
// order time so later catalog edits do not rewrite history.
type OrderItem struct {
	ID        snowflake.ID     `gorm:"primaryKey" json:"id"`
	OrderID   snowflake.ID     `gorm:"not null;index" json:"order_id"`
	ItemID    snowflake.ID     `gorm:"not null;index" json:"item_id"`
	Item      *itemdomain.Item `gorm:"foreignKey:ItemID" json:"item,omitempty"`
	Quantity  int              `gorm:"not null;default:1" json:"quantity"`
	Price     float64          `gorm:"not null;default:0" json:"price"`
	Note      string           `gorm:"type:text" json:"note"`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (OrderItem) TableName() string { return "order_items" }
