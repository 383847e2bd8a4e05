package bookingsync

import (
	"github.com/smallbiznis/bookingsync/internal/bookingsync/service"
	"go.uber.org/fx"
)

var Module = fx.Module("bookingsync.service",
	fx.Provide(service.New),
)
