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
	ErrInvalidAccount    = errors.New("invalid_account")
	ErrInvalidID         = errors.New("invalid_order_id")
	ErrInvalidTable      = errors.New("invalid_table")
	ErrInvalidItem       = errors.New("invalid_item")
	ErrInvalidQuantity   = errors.New("invalid_quantity")
	ErrInvalidStatus     = errors.New("invalid_order_status")
	ErrInvalidTransition = errors.New("invalid_status_transition")
	ErrOrderLocked       = errors.New("order_locked")
	ErrNotFound          = errors.New("order_not_found")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)
}

type LineInput struct {
	ItemID   string `json:"item_id" binding:"required"`
	Quantity int    `json:"quantity"`
	Note     string `json:"note"`
}

type CreateRequest struct {
	TableID string      `json:"table_id" binding:"required"`
	Lines   []LineInput `json:"order_items"`

	Attributes []cfdomain.Entry `json:"-"`
}

// UpdateRequest is a partial patch. A non-nil Lines slice replaces the
// order's line set; lines are frozen once the order leaves draft.
type UpdateRequest struct {
	TableID *string     `json:"table_id"`
	Status  *string     `json:"status"`
	Lines   []LineInput `json:"order_items"`

	Attributes []cfdomain.Entry `json:"-"`
}

type ListRequest struct {
	Filters map[string]any
	SortBy  string
	OrderBy string
	Page    int
	PerPage int
}

type LineResponse struct {
	ID       snowflake.ID `json:"id"`
	ItemID   snowflake.ID `json:"item_id"`
	ItemName string       `json:"item_name,omitempty"`
	Quantity int          `json:"quantity"`
	Price    float64      `json:"price"`
	Note     string       `json:"note,omitempty"`
}

type TableRef struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

type Response struct {
	ID         snowflake.ID   `json:"id"`
	AccountID  snowflake.ID   `json:"account_id"`
	TableID    snowflake.ID   `json:"table_id"`
	Table      *TableRef      `json:"table,omitempty"`
	Status     string         `json:"status"`
	Total      float64        `json:"total"`
	OrderItems []LineResponse `json:"order_items"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	Extras map[string]any `json:"-"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	return customfield.FlattenJSON(alias(r), r.Extras)
}

var _ json.Marshaler = Response{}
