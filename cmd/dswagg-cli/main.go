package main

import (
	"context"

	"dswagg-backend/cmd/dswagg-cli/commands"
	"dswagg-backend/lib/telemetry"
)

func main() {
	telemetry.SetupFromEnv(context.Background(), "dswagg-cli")
	telemetry.InitSlog(true)
	commands.ExecuteContext(context.Background())
}
