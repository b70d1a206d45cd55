// Package service implements the catalog item service, including the
// custom-field merge performed on every item write.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/clock"
	"github.com/smallbiznis/mesa/internal/config"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/smallbiznis/mesa/internal/item/domain"
	"github.com/smallbiznis/mesa/pkg/db"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var sortable = map[string]bool{
	"name":       true,
	"price":      true,
	"created_at": true,
	"updated_at": true,
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	fields   cfdomain.Service
	settings *config.SettingsHolder
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Fields   cfdomain.Service
	Settings *config.SettingsHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("item.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		fields:   p.Fields,
		settings: p.Settings,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	scope := accountcontext.ScopeFor(account)

	// item_type_id is nullable; a typeless item stores NULL, never a zero id.
	var itemTypeID *snowflake.ID
	if req.ItemTypeID != "" {
		parsed, err := snowflake.ParseString(req.ItemTypeID)
		if err != nil {
			return nil, domain.ErrInvalidItemType
		}
		if _, err := s.repo.FindTypeByID(ctx, s.db, scope, parsed); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrInvalidItemType
			}
			return nil, err
		}
		itemTypeID = &parsed
	}

	tags, err := s.resolveTags(ctx, scope, req.TagIDs)
	if err != nil {
		return nil, err
	}

	allergens, err := encodeAllergens(req.Allergens)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	item := domain.Item{
		ID:          s.genID.Generate(),
		AccountID:   account.ID,
		Name:        name,
		Description: req.Description,
		Price:       req.Price,
		Allergens:   allergens,
		ItemTypeID:  itemTypeID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &item); err != nil {
			return err
		}
		if len(tags) > 0 {
			return s.repo.ReplaceTags(ctx, tx, &item, tags)
		}
		return nil
	})
	if err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, item.ID, req.Attributes)
	if err != nil {
		s.compensateCreate(ctx, item.ID)
		return nil, err
	}

	s.log.Info("item created",
		zap.String("item_id", item.ID.String()),
		zap.String("account_id", account.ID.String()),
	)

	created, err := s.repo.FindByID(ctx, s.db, scope, item.ID)
	if err != nil {
		return nil, err
	}
	return toResponse(created, extras), nil
}

// compensateCreate undoes the item insert when the attribute merge was
// rejected, so a bad custom-field payload never leaves a half-created record.
func (s *Service) compensateCreate(ctx context.Context, id snowflake.ID) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ClearTags(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, tx, id)
	})
	if err != nil {
		s.log.Error("item create rollback failed", zap.String("item_id", id.String()), zap.Error(err))
	}
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	itemID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	scope := accountcontext.ScopeFor(account)
	item, err := s.repo.FindByID(ctx, s.db, scope, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		item.Name = name
	}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if req.Price != nil {
		item.Price = *req.Price
	}
	if req.Allergens != nil {
		allergens, err := encodeAllergens(req.Allergens)
		if err != nil {
			return nil, err
		}
		item.Allergens = allergens
	}
	if req.ItemTypeID != nil {
		if *req.ItemTypeID == "" {
			// Explicit empty string detaches the type.
			item.ItemTypeID = nil
			item.ItemType = nil
		} else {
			parsed, err := snowflake.ParseString(*req.ItemTypeID)
			if err != nil {
				return nil, domain.ErrInvalidItemType
			}
			if _, err := s.repo.FindTypeByID(ctx, s.db, scope, parsed); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, domain.ErrInvalidItemType
				}
				return nil, err
			}
			item.ItemTypeID = &parsed
		}
	}

	var tags []domain.Tag
	if req.TagIDs != nil {
		tags, err = s.resolveTags(ctx, scope, req.TagIDs)
		if err != nil {
			return nil, err
		}
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, item.ID, req.Attributes)
	if err != nil {
		return nil, err
	}

	item.UpdatedAt = s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, item); err != nil {
			return err
		}
		if req.TagIDs != nil {
			return s.repo.ReplaceTags(ctx, tx, item, tags)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, scope, item.ID)
	if err != nil {
		return nil, err
	}
	return toResponse(updated, extras), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return domain.ErrInvalidAccount
	}

	itemID, err := snowflake.ParseString(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	scope := accountcontext.ScopeFor(account)
	if _, err := s.repo.FindByID(ctx, s.db, scope, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ClearTags(ctx, tx, itemID); err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, tx, itemID)
	})
	if err != nil {
		return err
	}

	// Value rows are orphaned once the target row is gone; prune them.
	if err := s.fields.DeleteValues(ctx, itemID); err != nil {
		return err
	}

	s.log.Info("item deleted", zap.String("item_id", itemID.String()))
	return nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	itemID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, accountcontext.ScopeFor(account), itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, []snowflake.ID{item.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(item, loaded[item.ID]), nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) ([]domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	labels, err := s.fields.LabelMap(ctx, domain.TargetModel)
	if err != nil {
		return nil, err
	}

	settings := s.settings.Get()
	perPage := req.PerPage
	if perPage <= 0 {
		perPage = settings.DefaultPerPage
	}
	if perPage > settings.MaxPerPage {
		perPage = settings.MaxPerPage
	}

	items, err := s.repo.Find(ctx, s.db, accountcontext.ScopeFor(account), domain.ListQuery{
		Filters: req.Filters,
		Labels:  labels,
		Strict:  settings.StrictFilters,
		Sort:    option.WithQuerySortBy(req.SortBy, req.OrderBy, sortable),
		Page:    req.Page,
		PerPage: perPage,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(items))
	for i := range items {
		ids = append(ids, items[i].ID)
	}
	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, *toResponse(&items[i], loaded[items[i].ID]))
	}
	return out, nil
}

func (s *Service) CreateType(ctx context.Context, req domain.CreateTypeRequest) (*domain.TypeResponse, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	itemType := domain.ItemType{
		ID:        s.genID.Generate(),
		AccountID: account.ID,
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
		UpdatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.CreateType(ctx, s.db, &itemType); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return &domain.TypeResponse{ID: itemType.ID.String(), Name: itemType.Name}, nil
}

func (s *Service) ListTypes(ctx context.Context) ([]domain.TypeResponse, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	types, err := s.repo.FindTypes(ctx, s.db, accountcontext.ScopeFor(account))
	if err != nil {
		return nil, err
	}
	out := make([]domain.TypeResponse, 0, len(types))
	for _, t := range types {
		out = append(out, domain.TypeResponse{ID: t.ID.String(), Name: t.Name})
	}
	return out, nil
}

func (s *Service) CreateTag(ctx context.Context, req domain.CreateTagRequest) (*domain.TagResponse, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	tag := domain.Tag{
		ID:        s.genID.Generate(),
		AccountID: account.ID,
		Name:      name,
		CreatedAt: s.clock.Now().UTC(),
		UpdatedAt: s.clock.Now().UTC(),
	}
	if err := s.repo.CreateTag(ctx, s.db, &tag); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return &domain.TagResponse{ID: tag.ID.String(), Name: tag.Name}, nil
}

func (s *Service) ListTags(ctx context.Context) ([]domain.TagResponse, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	tags, err := s.repo.FindTags(ctx, s.db, accountcontext.ScopeFor(account))
	if err != nil {
		return nil, err
	}
	out := make([]domain.TagResponse, 0, len(tags))
	for _, t := range tags {
		out = append(out, domain.TagResponse{ID: t.ID.String(), Name: t.Name})
	}
	return out, nil
}

func (s *Service) resolveTags(ctx context.Context, scope accountcontext.Scope, ids []string) ([]domain.Tag, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	parsed := make([]snowflake.ID, 0, len(ids))
	for _, raw := range ids {
		id, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, domain.ErrInvalidTag
		}
		parsed = append(parsed, id)
	}
	tags, err := s.repo.FindTagsByIDs(ctx, s.db, scope, parsed)
	if err != nil {
		return nil, err
	}
	if len(tags) != len(parsed) {
		return nil, domain.ErrInvalidTag
	}
	return tags, nil
}

func encodeAllergens(allergens []string) (datatypes.JSON, error) {
	if allergens == nil {
		return nil, nil
	}
	encoded, err := json.Marshal(allergens)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}

func decodeAllergens(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var allergens []string
	if err := json.Unmarshal(raw, &allergens); err != nil {
		return nil
	}
	return allergens
}

func toResponse(item *domain.Item, extras map[string]any) *domain.Response {
	resp := &domain.Response{
		ID:          item.ID,
		AccountID:   item.AccountID,
		Name:        item.Name,
		Description: item.Description,
		Price:       item.Price,
		Allergens:   decodeAllergens(item.Allergens),
		Tags:        make([]domain.TagResponse, 0, len(item.Tags)),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
		Extras:      extras,
	}
	if item.ItemType != nil {
		resp.ItemType = &domain.TypeResponse{ID: item.ItemType.ID.String(), Name: item.ItemType.Name}
	}
	for _, tag := range item.Tags {
		resp.Tags = append(resp.Tags, domain.TagResponse{ID: tag.ID.String(), Name: tag.Name})
	}
	return resp
}
