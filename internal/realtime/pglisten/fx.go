package pglisten

import "go.uber.org/fx"

var Module = fx.Module("pglisten",
	fx.Provide(New),
	fx.Invoke(func(*Listener) {}),
)
