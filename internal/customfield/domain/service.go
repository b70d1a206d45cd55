package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Service owns custom-field definitions and the attribute merge engine.
type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Response, error)
	Update(ctx context.Context, id string, req UpdateRequest) (*Response, error)
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (*Response, error)
	List(ctx context.Context, req ListRequest) ([]Response, error)

	// Merge validates raw name/value entries against the account's
	// definitions for targetModel, applies defaults for absent fields, and
	// upserts the staged values in one batch. It returns the resolved
	// attribute map keyed by label.
	Merge(ctx context.Context, targetModel string, targetID snowflake.ID, entries []Entry) (map[string]any, error)

	// LoadValues resolves the stored attributes for a set of entities,
	// keyed by target id then by definition label.
	LoadValues(ctx context.Context, targetModel string, targetIDs []snowflake.ID) (map[snowflake.ID]map[string]any, error)

	// DeleteValues removes every value row belonging to a deleted entity.
	// It is idempotent.
	DeleteValues(ctx context.Context, targetID snowflake.ID) error

	// LabelMap returns the account's label -> definition id map consumed by
	// the filter engine.
	LabelMap(ctx context.Context, targetModel string) (map[string]int64, error)
}

// Entry is one raw attribute submitted alongside an entity write. Names that
// match no definition label are ignored.
type Entry struct {
	Name  string
	Value any
}

type OptionInput struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type CreateRequest struct {
	Name         string        `json:"name"`
	Label        string        `json:"label"`
	DefaultValue *string       `json:"default_value"`
	FieldType    FieldType     `json:"field_type"`
	TargetModel  string        `json:"target_model"`
	Options      []OptionInput `json:"options"`
}

// UpdateRequest is a partial patch; nil fields are left untouched. A non-nil
// Options slice triggers full option reconciliation against the submitted
// set.
type UpdateRequest struct {
	Name         *string       `json:"name"`
	Label        *string       `json:"label"`
	DefaultValue *string       `json:"default_value"`
	FieldType    *FieldType    `json:"field_type"`
	Options      []OptionInput `json:"options"`
}

type ListRequest struct {
	TargetModel string
	FieldType   string
	SortBy      string
	OrderBy     string
}

type OptionResponse struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Value string `json:"value"`
}

type Response struct {
	ID           string           `json:"id"`
	AccountID    string           `json:"account_id"`
	Name         string           `json:"name"`
	Label        string           `json:"label"`
	DefaultValue *string          `json:"default_value,omitempty"`
	FieldType    FieldType        `json:"field_type"`
	TargetModel  string           `json:"target_model"`
	Options      []OptionResponse `json:"options,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

var (
	ErrInvalidAccount     = errors.New("invalid_account")
	ErrInvalidID          = errors.New("invalid_id")
	ErrInvalidLabel       = errors.New("invalid_label")
	ErrInvalidFieldType   = errors.New("invalid_field_type")
	ErrInvalidTargetModel = errors.New("invalid_target_model")
	ErrNotFound           = errors.New("not_found")
	ErrConflict           = errors.New("conflict")
)

// InvalidOptionError rejects a merge entry whose value is outside the
// definition's option set. The whole merge aborts; nothing is written.
type InvalidOptionError struct {
	Field   string
	Allowed []string
}

func (e *InvalidOptionError) Error() string {
	return fmt.Sprintf("invalid value for field %q, allowed values: %s", e.Field, strings.Join(e.Allowed, ", "))
}
