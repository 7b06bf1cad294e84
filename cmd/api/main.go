// Command api runs the HTTP service and the gRPC health endpoint.
package main

import (
	"go.uber.org/fx"

	"github.com/Additional-Code/ordertrack/internal/app"
)

func main() {
	fx.New(app.Module).Run()
}
