package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/srithedesigner/credmatrix-backend/internal/clock"
	"github.com/srithedesigner/credmatrix-backend/internal/config"
	"github.com/srithedesigner/credmatrix-backend/internal/migration"
	"github.com/srithedesigner/credmatrix-backend/internal/observability"
	"github.com/srithedesigner/credmatrix-backend/internal/server"
	"github.com/srithedesigner/credmatrix-backend/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() (*snowflake.Node, error) {
	return snowflake.NewNode(1)
}
