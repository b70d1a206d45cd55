// Package domain contains persistence models for the room service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// TargetModel is the custom-field target name for rooms.
const TargetModel = "rooms"

// Room is a physical area of the venue that groups tables.
type Room struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	AccountID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_rooms_name,priority:1" json:"account_id"`
	Name      string       `gorm:"type:text;not null;uniqueIndex:ux_rooms_name,priority:2" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Room) TableName() string { return "rooms" }
