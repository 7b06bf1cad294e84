// Package app composes the Fx module sets used by each executable.
package app

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/ordertrack/internal/cache"
	"github.com/Additional-Code/ordertrack/internal/config"
	"github.com/Additional-Code/ordertrack/internal/database"
	"github.com/Additional-Code/ordertrack/internal/gateway/commerce"
	"github.com/Additional-Code/ordertrack/internal/gateway/notify"
	"github.com/Additional-Code/ordertrack/internal/logger"
	"github.com/Additional-Code/ordertrack/internal/messaging"
	"github.com/Additional-Code/ordertrack/internal/observability"
	repositoryorder "github.com/Additional-Code/ordertrack/internal/repository/order"
	"github.com/Additional-Code/ordertrack/internal/scheduler"
	grpcserver "github.com/Additional-Code/ordertrack/internal/server/grpc"
	httpserver "github.com/Additional-Code/ordertrack/internal/server/http"
	serviceorder "github.com/Additional-Code/ordertrack/internal/service/order"
	transporthttp "github.com/Additional-Code/ordertrack/internal/transport/http"
	"github.com/Additional-Code/ordertrack/internal/worker"
	workerorder "github.com/Additional-Code/ordertrack/internal/worker/order"
)

// Core provides the foundational modules shared across executables.
var Core = fx.Options(
	config.Module,
	cache.Module,
	database.Module,
	logger.Module,
	messaging.Module,
	observability.Module,
	commerce.Module,
	notify.Module,
	repositoryorder.Module,
	serviceorder.Module,
	scheduler.Module,
)

// HTTP wires the HTTP transport and the gRPC health endpoint on top of the
// core modules.
var HTTP = fx.Options(
	Core,
	httpserver.Module,
	grpcserver.Module,
	transporthttp.Module,
)

// Worker exposes background worker processing.
var Worker = fx.Options(
	Core,
	worker.Module,
	workerorder.Module,
)

// Module is the default application wiring (HTTP only).
var Module = HTTP
