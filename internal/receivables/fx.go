package receivables

import (
	"github.com/dairylink/creditledger/internal/receivables/repository"
	"go.uber.org/fx"
)

var Module = fx.Module("receivables",
	fx.Provide(repository.Provide),
)
