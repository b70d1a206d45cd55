// Package service implements the table service on the generic store.
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
	roomdomain "github.com/smallbiznis/mesa/internal/room/domain"
	"github.com/smallbiznis/mesa/internal/table/domain"
	"github.com/smallbiznis/mesa/pkg/db"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"github.com/smallbiznis/mesa/pkg/filter"
	"github.com/smallbiznis/mesa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var sortable = map[string]bool{
	"name":       true,
	"seats":      true,
	"created_at": true,
	"updated_at": true,
}

type Service struct {
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	store    repository.Repository[domain.Table]
	rooms    repository.Repository[roomdomain.Room]
	fields   cfdomain.Service
	settings *config.SettingsHolder
}

type Params struct {
	fx.In

	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Store    repository.Repository[domain.Table]
	Rooms    repository.Repository[roomdomain.Room]
	Fields   cfdomain.Service
	Settings *config.SettingsHolder
}

func New(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("table.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		store:    p.Store,
		rooms:    p.Rooms,
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
	if req.Width < 0 || req.Height < 0 || req.Seats < 0 {
		return nil, domain.ErrInvalidGeometry
	}

	roomID, err := s.resolveRoom(ctx, account, req.RoomID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	table := domain.Table{
		ID:        s.genID.Generate(),
		AccountID: account.ID,
		RoomID:    roomID,
		Name:      name,
		XStart:    req.XStart,
		YStart:    req.YStart,
		Width:     max(req.Width, 1),
		Height:    max(req.Height, 1),
		Seats:     req.Seats,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Create(ctx, &table); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, table.ID, req.Attributes)
	if err != nil {
		if derr := s.store.Delete(ctx, int64(table.ID)); derr != nil {
			s.log.Error("table create rollback failed", zap.String("table_id", table.ID.String()), zap.Error(derr))
		}
		return nil, err
	}

	s.log.Info("table created", zap.String("table_id", table.ID.String()))
	return toResponse(&table, extras), nil
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	table, err := s.find(ctx, account, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrInvalidName
		}
		table.Name = name
	}
	if req.RoomID != nil {
		roomID, err := s.resolveRoom(ctx, account, *req.RoomID)
		if err != nil {
			return nil, err
		}
		table.RoomID = roomID
	}
	if req.XStart != nil {
		table.XStart = *req.XStart
	}
	if req.YStart != nil {
		table.YStart = *req.YStart
	}
	if req.Width != nil {
		if *req.Width < 1 {
			return nil, domain.ErrInvalidGeometry
		}
		table.Width = *req.Width
	}
	if req.Height != nil {
		if *req.Height < 1 {
			return nil, domain.ErrInvalidGeometry
		}
		table.Height = *req.Height
	}
	if req.Seats != nil {
		if *req.Seats < 0 {
			return nil, domain.ErrInvalidGeometry
		}
		table.Seats = *req.Seats
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, table.ID, req.Attributes)
	if err != nil {
		return nil, err
	}

	table.UpdatedAt = s.clock.Now().UTC()
	if err := s.store.Update(ctx, int64(table.ID), table); err != nil {
		return nil, err
	}
	return toResponse(table, extras), nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return domain.ErrInvalidAccount
	}

	table, err := s.find(ctx, account, id)
	if err != nil {
		return err
	}

	if err := s.store.Delete(ctx, int64(table.ID)); err != nil {
		return err
	}
	return s.fields.DeleteValues(ctx, table.ID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	table, err := s.find(ctx, account, id, option.WithPreload("Room"))
	if err != nil {
		return nil, err
	}

	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, []snowflake.ID{table.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(table, loaded[table.ID]), nil
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

	tables, err := s.store.Find(ctx, scopeQuery(account),
		filter.Option(meta.Tables(), req.Filters, labels, settings.StrictFilters),
		option.WithSortBy(option.WithQuerySortBy(req.SortBy, req.OrderBy, sortable)),
		option.WithPage(req.Page, perPage),
		option.WithPreload("Room"),
	)
	if err != nil {
		return nil, err
	}

	ids := make([]snowflake.ID, 0, len(tables))
	for _, table := range tables {
		ids = append(ids, table.ID)
	}
	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(tables))
	for _, table := range tables {
		out = append(out, *toResponse(table, loaded[table.ID]))
	}
	return out, nil
}

func (s *Service) find(ctx context.Context, account accountcontext.Account, id string, opts ...option.QueryOption) (*domain.Table, error) {
	tableID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	query := scopeQuery(account)
	query.ID = tableID
	table, err := s.store.FindOne(ctx, query, opts...)
	if err != nil {
		return nil, err
	}
	if table == nil {
		return nil, domain.ErrNotFound
	}
	return table, nil
}

func (s *Service) resolveRoom(ctx context.Context, account accountcontext.Account, raw string) (snowflake.ID, error) {
	roomID, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidRoom
	}
	query := &roomdomain.Room{ID: roomID}
	if !account.IsSuperadmin() {
		query.AccountID = account.ID
	}
	room, err := s.rooms.FindOne(ctx, query)
	if err != nil {
		return 0, err
	}
	if room == nil {
		return 0, domain.ErrInvalidRoom
	}
	return roomID, nil
}

func scopeQuery(account accountcontext.Account) *domain.Table {
	if account.IsSuperadmin() {
		return &domain.Table{}
	}
	return &domain.Table{AccountID: account.ID}
}

func toResponse(table *domain.Table, extras map[string]any) *domain.Response {
	resp := &domain.Response{
		ID:        table.ID,
		AccountID: table.AccountID,
		RoomID:    table.RoomID,
		Name:      table.Name,
		XStart:    table.XStart,
		YStart:    table.YStart,
		Width:     table.Width,
		Height:    table.Height,
		Seats:     table.Seats,
		CreatedAt: table.CreatedAt,
		UpdatedAt: table.UpdatedAt,
		Extras:    extras,
	}
	if table.Room != nil {
		resp.Room = &domain.RoomRef{ID: table.Room.ID, Name: table.Room.Name}
	}
	return resp
}
