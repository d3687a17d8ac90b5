package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/bizbooks/voucherd/internal/clock"
	"github.com/bizbooks/voucherd/internal/config"
	"github.com/bizbooks/voucherd/internal/drafts"
	"github.com/bizbooks/voucherd/internal/logger"
	"github.com/bizbooks/voucherd/internal/metrics"
	"github.com/bizbooks/voucherd/internal/remote"
	"github.com/bizbooks/voucherd/internal/server"
	"github.com/bizbooks/voucherd/internal/voucher/service"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		clock.Module,
		fx.Provide(RegisterSnowflake),
		metrics.Module,
		remote.Module,
		drafts.Module,
		service.Module,
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
