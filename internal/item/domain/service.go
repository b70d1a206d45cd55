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
	ErrInvalidID       = errors.New("invalid_item_id")
	ErrInvalidName     = errors.New("invalid_item_name")
	ErrInvalidItemType = errors.New("invalid_item_type")
	ErrInvalidTag      = errors.New("invalid_tag")
	ErrNotFound        = errors.New("item_not_found")
	ErrConflict        = errors.New("item_already_exists")
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	CreateType(ctx context.Context, req CreateTypeRequest) (*TypeResponse, error)
	ListTypes(ctx context.Context) ([]TypeResponse, error)
	CreateTag(ctx context.Context, req CreateTagRequest) (*TagResponse, error)
	ListTags(ctx context.Context) ([]TagResponse, error)
}

type CreateRequest struct {
	Name        string   `json:"name" binding:"required"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Allergens   []string `json:"allergens"`
	ItemTypeID  string   `json:"item_type_id"`
	TagIDs      []string `json:"tag_ids"`

	// Attributes carries the payload keys that matched no native field;
	// the merge engine decides which of them name custom-field labels.
	Attributes []cfdomain.Entry `json:"-"`
}

// UpdateRequest is a partial patch; nil fields are left untouched. A non-nil
// TagIDs slice replaces the item's tag set.
type UpdateRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price"`
	Allergens   []string `json:"allergens"`
	ItemTypeID  *string  `json:"item_type_id"`
	TagIDs      []string `json:"tag_ids"`

	Attributes []cfdomain.Entry `json:"-"`
}

type ListRequest struct {
	Filters map[string]any
	SortBy  string
	OrderBy string
	Page    int
	PerPage int
}

type CreateTypeRequest struct {
	Name string `json:"name" binding:"required"`
}

type CreateTagRequest struct {
	Name string `json:"name" binding:"required"`
}

type TypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type TagResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Response struct {
	ID          snowflake.ID  `json:"id"`
	AccountID   snowflake.ID  `json:"account_id"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	Allergens   []string      `json:"allergens"`
	ItemType    *TypeResponse `json:"item_type,omitempty"`
	Tags        []TagResponse `json:"tags"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`

	// Extras holds resolved custom-field values keyed by definition label;
	// MarshalJSON flattens them alongside the native fields.
	Extras map[string]any `json:"-"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	type alias Response
	return customfield.FlattenJSON(alias(r), r.Extras)
}

var _ json.Marshaler = Response{}
