package config

import "go.uber.org/fx"

// Module wires application configuration and the runtime settings holder.
var Module = fx.Module("config",
	fx.Provide(
		Load,
		NewSettingsHolder,
	),
)
