// Package service implements the account domain service.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/smallbiznis/mesa/internal/account/domain"
	"github.com/smallbiznis/mesa/internal/clock"
	"github.com/smallbiznis/mesa/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("account.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Response, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	accountSlug := strings.TrimSpace(req.Slug)
	if accountSlug == "" {
		accountSlug = slug.Make(name)
	}

	now := s.clock.Now().UTC()
	account := domain.Account{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      accountSlug,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Create(ctx, s.db, &account); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	s.log.Info("account created",
		zap.String("account_id", account.ID.String()),
		zap.String("slug", account.Slug),
	)
	return toResponse(&account), nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Response, error) {
	accountID, err := snowflake.ParseString(id)
	if err != nil {
		return nil, domain.ErrInvalidID
	}
	account, err := s.repo.FindByID(ctx, s.db, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return toResponse(account), nil
}

func (s *Service) List(ctx context.Context) ([]domain.Response, error) {
	accounts, err := s.repo.Find(ctx, s.db)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(accounts))
	for i := range accounts {
		out = append(out, *toResponse(&accounts[i]))
	}
	return out, nil
}

func toResponse(a *domain.Account) *domain.Response {
	return &domain.Response{
		ID:        a.ID,
		Name:      a.Name,
		Slug:      a.Slug,
		IsDefault: a.IsDefault,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}
