package order

import "go.uber.org/fx"

// Module provides the order repository to Fx, both as the concrete type and
// as the Store contract consumed by services.
var Module = fx.Provide(
	NewRepository,
	func(r *Repository) Store { return r },
)
