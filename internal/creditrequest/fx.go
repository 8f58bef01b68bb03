package creditrequest

import (
	"github.com/dairylink/creditledger/internal/creditrequest/repository"
	"github.com/dairylink/creditledger/internal/creditrequest/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditrequest.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
