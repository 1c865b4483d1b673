package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/wellspringhq/foundation/internal/migration"
	"github.com/wellspringhq/foundation/internal/observability"
	"github.com/wellspringhq/foundation/internal/server"
	"github.com/wellspringhq/foundation/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		server.Module,
		migration.Module,
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
