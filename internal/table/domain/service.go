package domain

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/customfield"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
)

var (
	ErrInvalidAccount  = errors.New("invalid_account")
	ErrInvalidID       = errors.New("invalid_table_id")
	ErrInvalidName     = errors.New("invalid_table_name")
	ErrInvalidRoom     = errors.New("invalid_room")
	ErrInvalidGeometry = errors.New("invalid_table_geometry")
	ErrNotFound        = errors.New("table_not_found")
	ErrConflict        = errors.New("table_already_exists")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type CreateRequest struct {
	Name   string `json:"name" binding:"required"`
	RoomID string `json:"room_id" binding:"required"`
	XStart int    `json:"x_start"`
	YStart int    `json:"y_start"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Seats  int    `json:"seats"`

	Attributes []cfdomain.Entry `json:"-"`
}

type UpdateRequest struct {
	Name   *string `json:"name"`
	RoomID *string `json:"room_id"`
	XStart *int    `json:"x_start"`
	YStart *int    `json:"y_start"`
	Width  *int    `json:"width"`
	Height *int    `json:"height"`
	Seats  *int    `json:"seats"`

	Attributes []cfdomain.Entry `json:"-"`
}

type ListRequest struct {
	Filters map[string]any
	SortBy  string
	OrderBy string
	Page    int
	PerPage int
}

type RoomRef struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

type Response struct {
	ID        snowflake.ID `json:"id"`
	AccountID snowflake.ID `json:"account_id"`
	RoomID    snowflake.ID `json:"room_id"`
	Room      *RoomRef     `json:"room,omitempty"`
	Name      string       `json:"name"`
	XStart    int          `json:"x_start"`
	YStart    int          `json:"y_start"`
	Width     int          `json:"width"`
	Height    int          `json:"height"`
	Seats     int          `json:"seats"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`

	Extras map[string]any `json:"-"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	return customfield.FlattenJSON(alias(r), r.Extras)
}

var _ json.Marshaler = Response{}
