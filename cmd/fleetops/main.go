package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/jwwtc/fleet-intelligence/internal/clock"
	"github.com/jwwtc/fleet-intelligence/internal/config"
	"github.com/jwwtc/fleet-intelligence/internal/migration"
	"github.com/jwwtc/fleet-intelligence/internal/observability"
	"github.com/jwwtc/fleet-intelligence/internal/server"
	"github.com/jwwtc/fleet-intelligence/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Schema first, then the HTTP surface and background jobs.
		migration.Module,
		server.Module,
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
