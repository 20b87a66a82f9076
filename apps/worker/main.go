package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/auth"
	"github.com/smallbiznis/tally/internal/claimsync"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/observability"
	"github.com/smallbiznis/tally/pkg/db"
	"go.uber.org/fx"
)

// The worker replays pending session-claim updates without serving HTTP.
// It can run next to cmd/tally; jobs are claimed with SKIP LOCKED on
// postgres and applying a job twice is a no-op.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// claimsync applies claims through the identity provider
		auth.Module,

		// No server module!
		claimsync.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}
