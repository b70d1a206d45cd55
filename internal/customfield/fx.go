package customfield

import (
	"github.com/smallbiznis/mesa/internal/customfield/repository"
	"github.com/smallbiznis/mesa/internal/customfield/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customfield.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
