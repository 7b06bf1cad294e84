package http

import (
	"go.uber.org/fx"

	ledgertransport "github.com/Additional-Code/ordertrack/internal/transport/http/ledger"
	ordertransport "github.com/Additional-Code/ordertrack/internal/transport/http/order"
	schedulertransport "github.com/Additional-Code/ordertrack/internal/transport/http/scheduler"
)

// Module aggregates the order, ledger and tick endpoints.
var Module = fx.Module("http_transport",
	ordertransport.Module,
	ledgertransport.Module,
	schedulertransport.Module,
)
