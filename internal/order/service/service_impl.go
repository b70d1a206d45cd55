// Package service implements the order service, including line snapshotting
// and the custom-field merge performed on every order write.
package service

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/mesa/internal/accountcontext"
	"github.com/smallbiznis/mesa/internal/clock"
	"github.com/smallbiznis/mesa/internal/config"
	cfdomain "github.com/smallbiznis/mesa/internal/customfield/domain"
	itemdomain "github.com/smallbiznis/mesa/internal/item/domain"
	"github.com/smallbiznis/mesa/internal/order/domain"
	tabledomain "github.com/smallbiznis/mesa/internal/table/domain"
	"github.com/smallbiznis/mesa/pkg/db/option"
	"github.com/smallbiznis/mesa/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var sortable = map[string]bool{
	"status":     true,
	"created_at": true,
	"updated_at": true,
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	items    itemdomain.Repository
	tables   repository.Repository[tabledomain.Table]
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
	Items    itemdomain.Repository
	Tables   repository.Repository[tabledomain.Table]
	Fields   cfdomain.Service
	Settings *config.SettingsHolder
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("order.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		items:    p.Items,
		tables:   p.Tables,
		fields:   p.Fields,
		settings: p.Settings,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	tableID, err := s.resolveTable(ctx, account, req.TableID)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	order := domain.Order{
		ID:        s.genID.Generate(),
		AccountID: account.ID,
		TableID:   tableID,
		Status:    domain.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	lines, err := s.buildLines(ctx, account, order.ID, req.Lines)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Create(ctx, tx, &order); err != nil {
			return err
		}
		return s.repo.CreateLines(ctx, tx, lines)
	})
	if err != nil {
		return nil, err
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, order.ID, req.Attributes)
	if err != nil {
		s.compensateCreate(ctx, order.ID)
		return nil, err
	}

	s.log.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("table_id", tableID.String()),
		zap.Int("lines", len(lines)),
	)

	created, err := s.repo.FindByID(ctx, s.db, accountcontext.ScopeFor(account), order.ID)
	if err != nil {
		return nil, err
	}
	return toResponse(created, extras), nil
}

func (s *Service) compensateCreate(ctx context.Context, id snowflake.ID) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteLinesByOrder(ctx, tx, id); err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, tx, id)
	})
	if err != nil {
		s.log.Error("order create rollback failed", zap.String("order_id", id.String()), zap.Error(err))
	}
}

func (s *Service) Update(ctx context.Context, id string, req domain.UpdateRequest) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	orderID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	scope := accountcontext.ScopeFor(account)
	order, err := s.repo.FindByID(ctx, s.db, scope, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if req.TableID != nil {
		tableID, err := s.resolveTable(ctx, account, *req.TableID)
		if err != nil {
			return nil, err
		}
		order.TableID = tableID
	}
	if req.Status != nil {
		if !domain.ValidStatus(*req.Status) {
			return nil, domain.ErrInvalidStatus
		}
		if *req.Status != order.Status {
			if !domain.CanTransition(order.Status, *req.Status) {
				return nil, domain.ErrInvalidTransition
			}
			order.Status = *req.Status
		}
	}

	var lines []domain.OrderItem
	if req.Lines != nil {
		// Lines can only be rewritten while the order is still a draft;
		// status and table moves stay allowed afterwards.
		if order.Status != domain.StatusDraft {
			return nil, domain.ErrOrderLocked
		}
		lines, err = s.buildLines(ctx, account, order.ID, req.Lines)
		if err != nil {
			return nil, err
		}
	}

	extras, err := s.fields.Merge(ctx, domain.TargetModel, order.ID, req.Attributes)
	if err != nil {
		return nil, err
	}

	order.UpdatedAt = s.clock.Now().UTC()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, order); err != nil {
			return err
		}
		if req.Lines != nil {
			if err := s.repo.DeleteLinesByOrder(ctx, tx, order.ID); err != nil {
				return err
			}
			return s.repo.CreateLines(ctx, tx, lines)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	updated, err := s.repo.FindByID(ctx, s.db, scope, order.ID)
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

	orderID, err := snowflake.ParseString(id)
	if err != nil {
		return domain.ErrInvalidID
	}

	if _, err := s.repo.FindByID(ctx, s.db, accountcontext.ScopeFor(account), orderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrNotFound
		}
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.DeleteLinesByOrder(ctx, tx, orderID); err != nil {
			return err
		}
		return s.repo.DeleteByID(ctx, tx, orderID)
	})
	if err != nil {
		return err
	}
	return s.fields.DeleteValues(ctx, orderID)
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	account, ok := accountcontext.FromContext(ctx)
	if !ok {
		return nil, domain.ErrInvalidAccount
	}

	orderID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}

	order, err := s.repo.FindByID(ctx, s.db, accountcontext.ScopeFor(account), orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, []snowflake.ID{order.ID})
	if err != nil {
		return nil, err
	}
	return toResponse(order, loaded[order.ID]), nil
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

	orders, err := s.repo.Find(ctx, s.db, accountcontext.ScopeFor(account), domain.ListQuery{
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

	ids := make([]snowflake.ID, 0, len(orders))
	for i := range orders {
		ids = append(ids, orders[i].ID)
	}
	loaded, err := s.fields.LoadValues(ctx, domain.TargetModel, ids)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Response, 0, len(orders))
	for i := range orders {
		out = append(out, *toResponse(&orders[i], loaded[orders[i].ID]))
	}
	return out, nil
}

func (s *Service) resolveTable(ctx context.Context, account accountcontext.Account, raw string) (snowflake.ID, error) {
	tableID, err := snowflake.ParseString(raw)
	if err != nil {
		return 0, domain.ErrInvalidTable
	}
	query := &tabledomain.Table{ID: tableID}
	if !account.IsSuperadmin() {
		query.AccountID = account.ID
	}
	table, err := s.tables.FindOne(ctx, query)
	if err != nil {
		return 0, err
	}
	if table == nil {
		return 0, domain.ErrInvalidTable
	}
	return tableID, nil
}

// buildLines resolves each submitted line against the catalog and snapshots
// the item's current price onto the line.
func (s *Service) buildLines(ctx context.Context, account accountcontext.Account, orderID snowflake.ID, inputs []domain.LineInput) ([]domain.OrderItem, error) {
	if len(inputs) == 0 {
		return nil, nil
	}

	scope := accountcontext.ScopeFor(account)
	now := s.clock.Now().UTC()
	lines := make([]domain.OrderItem, 0, len(inputs))
	for _, input := range inputs {
		itemID, err := snowflake.ParseString(input.ItemID)
		if err != nil {
			return nil, domain.ErrInvalidItem
		}
		item, err := s.items.FindByID(ctx, s.db, scope, itemID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, domain.ErrInvalidItem
			}
			return nil, err
		}

		quantity := input.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if quantity < 0 {
			return nil, domain.ErrInvalidQuantity
		}

		lines = append(lines, domain.OrderItem{
			ID:        s.genID.Generate(),
			OrderID:   orderID,
			ItemID:    itemID,
			Quantity:  quantity,
			Price:     item.Price,
			Note:      input.Note,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return lines, nil
}

func toResponse(order *domain.Order, extras map[string]any) *domain.Response {
	resp := &domain.Response{
		ID:         order.ID,
		AccountID:  order.AccountID,
		TableID:    order.TableID,
		Status:     order.Status,
		OrderItems: make([]domain.LineResponse, 0, len(order.OrderItems)),
		CreatedAt:  order.CreatedAt,
		UpdatedAt:  order.UpdatedAt,
		Extras:     extras,
	}
	if order.Table != nil {
		resp.Table = &domain.TableRef{ID: order.Table.ID, Name: order.Table.Name}
	}
	for _, line := range order.OrderItems {
		lr := domain.LineResponse{
			ID:       line.ID,
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			Price:    line.Price,
			Note:     line.Note,
		}
		if line.Item != nil {
			lr.ItemName = line.Item.Name
		}
		resp.OrderItems = append(resp.OrderItems, lr)
		resp.Total += line.Price * float64(line.Quantity)
	}
	return resp
}
