// Package domain contains persistence models for the table service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	roomdomain "github.com/smallbiznis/mesa/internal/room/domain"
)

// TargetModel is the custom-field target name for tables.
const TargetModel = "tables"

// Table is one seating position on a room's floor plan. The geometry fields
// are grid coordinates, not pixels.
type Table struct {
	ID        snowflake.ID     `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID     `gorm:"not null;index" json:"account_id"`
	RoomID    snowflake.ID     `gorm:"not null;index" json:"room_id"`
	Room      *roomdomain.Room `gorm:"foreignKey:RoomID" json:"room,omitempty"`
	Name      string           `gorm:"type:text;not null" json:"name"`
	XStart    int              `gorm:"column:x_start;not null;default:0" json:"x_start"`
	YStart    int              `gorm:"column:y_start;not null;default:0" json:"y_start"`
	Width     int              `gorm:"not null;default:1" json:"width"`
	Height    int              `gorm:"not null;default:1" json:"height"`
	Seats     int              `gorm:"not null;default:0" json:"seats"`
	CreatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time        `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Table) TableName() string { return "tables" }
