package creditprofile

import (
	"github.com/dairylink/creditledger/internal/creditprofile/repository"
	"github.com/dairylink/creditledger/internal/creditprofile/service"
	"go.uber.org/fx"
)

var Module = fx.Module("creditprofile.service",
	fx.Provide(
		repository.Provide,
		service.New,
	),
)
