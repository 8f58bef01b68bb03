package catalog

import (
	"github.com/dairylink/creditledger/internal/catalog/repository"
	"github.com/dairylink/creditledger/internal/catalog/service"
	"go.uber.org/fx"
)

var Module = fx.Module("catalog.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
