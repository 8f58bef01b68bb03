package identity

import (
	"github.com/dairylink/creditledger/internal/identity/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("identity",
	fx.Provide(repository.Provide),
)
