package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/dairylink/creditledger/internal/clock"
	"github.com/dairylink/creditledger/internal/config"
	"github.com/dairylink/creditledger/internal/migration"
	"github.com/dairylink/creditledger/internal/scheduler"
	"github.com/dairylink/creditledger/internal/seed"
	"github.com/dairylink/creditledger/internal/server"
	"github.com/dairylink/creditledger/pkg/db"
	"github.com/dairylink/creditledger/pkg/log"
)

func main() {
	app := fx.New(
		config.Module,
		log.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		seed.Module,

		server.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
