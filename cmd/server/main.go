package main

import (
	"github.com/lattice-graph/lattice/internal/server"
	"github.com/lattice-graph/lattice/internal/util"
	"github.com/lattice-graph/lattice/pkg/logger"
	"github.com/lattice-graph/lattice/pkg/logger/console"

	_ "github.com/lib/pq"
)

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Prefix: "server",
		Debug:  debug,
	})
	logger.Init(consoleLogger)

	server.Init()
}
