package table

import (
	"github.com/smallbiznis/mesa/internal/table/domain"
	"github.com/smallbiznis/mesa/internal/table/service"
	"github.com/smallbiznis/mesa/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("table.service",
	fx.Provide(func(db *gorm.DB) repository.Repository[domain.Table] {
		return repository.ProvideStore[domain.Table](db)
	}),
	fx.Provide(service.New),
)
