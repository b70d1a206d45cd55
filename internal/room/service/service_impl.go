// Package service implements the room service on the generic store.
package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/clock"
	"github.com/smallbiznis/mesa/internal/config"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
	"github.com/smallbiznis/mesa/internal/meta"
	"github.com/smallbiznis/mesa/internal/room/domain"
	"github.com/smallbiznis/mesa/pkg/db"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"github.com/smallbiznis/mesa/pkg/filter"
	"github.com/smallbiznis/mesa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var sortable = map[string]bool{
	"name":       true,
	"created_at": true,
	"updated_at": true,
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	store    repository.Repository[domain.Room]
	fields   cfdomain.Service
	settings *config.SettingsHolder
}

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Store    repository.Repository[domain.Room]
	Fields   cfdomain.Service
	Settings *config.SettingsHolder
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("room.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		store:    p.Store,
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

	now := s.clock.Now().UTC()
	room := domain.Room{
		ID:        s.genID.Generate(),
		AccountID: account.ID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &room); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, room.ID, req.Attributes)
	if err != nil {
		if derr := s.store.Delete(ctx, int64(room.ID)); derr != nil {
			s.log.Error("room create rollback failed", zap.String("room_id", room.ID.String()), zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("room created", zap.String("room_id", room.ID.String()))
	return toResponse(&room, extras), nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	room, err := s.find(ctx, account, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		room.Name = name
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, room.ID, req.Attributes)
	if err != nil {
		return nil, err
	}

	room.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.Update(ctx, int64(room.ID), room); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}
	return toResponse(room, extras), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return domain.ErrInvalidAccount
	}

	room, err := s.find(ctx, account, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, int64(room.ID)); err != nil {
		return err
	}
	return s.fields.DeleteValues(ctx, room.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	room, err := s.find(ctx, account, id)
	if err != nil {
		return nil, err
	}

	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, []snowflake.ID{room.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(room, loaded[room.ID]), nil
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

	rooms, err := s.store.Find(ctx, scopeQuery(account),
		filter.Option(meta.Rooms(), req.Filters, labels, settings.StrictFilters),
		option.WithSortBy(option.WithQuerySortBy(req.SortBy, req.OrderBy, sortable)),
		option.WithPage(req.Page, perPage),
	)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(rooms))
	for _, room := range rooms {
		ids = append(ids, room.ID)
	}
	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, *toResponse(room, loaded[room.ID]))
	}
	return out, nil
}

func (s *Service) find(ctx context.Context, account accountcontext.Account, id string) (*domain.Room, error) {
	roomID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	query := scopeQuery(account)
	query.ID = roomID
	room, err := s.store.FindOne(ctx, query)
	if err != nil {
		return nil, err
	}
	if room == nil {
		return nil, domain.ErrNotFound
	}
	return room, nil
}

// scopeQuery narrows the store query to the caller's account; superadmins
// see every row.
func scopeQuery(account accountcontext.Account) *domain.Room {
	if account.IsSuperadmin() {
		return &domain.Room{}
	}
	return &domain.Room{AccountID: account.ID}
}

func toResponse(room *domain.Room, extras map[string]any) *domain.Response {
	return &domain.Response{
		ID:        room.ID,
		AccountID: room.AccountID,
		Name:      room.Name,
		CreatedAt: room.CreatedAt,
		UpdatedAt: room.UpdatedAt,
		Extras:    extras,
	}
}
