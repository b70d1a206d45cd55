package room

import (
	"github.com/smallbiznis/mesa/internal/room/domain"
	"github.com/smallbiznis/mesa/internal/room/service"
	"github.com/smallbiznis/mesa/pkg/repository"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("room.service",
	fx.Provide(func(db *gorm.DB) repository.Repository[domain.Room] {
		return repository.ProvideStore[domain.Room](db)
	}),
	fx.Provide(service.New),
)
