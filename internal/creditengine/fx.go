package creditengine

import (
	"github.com/dairylink/creditledger/internal/creditengine/repository"
	"github.com/dairylink/creditledger/internal/creditengine/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditengine.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
