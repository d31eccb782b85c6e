package main

import (
	"github.com/dw-outreach/outreach/backend/internal/server"
	"github.com/dw-outreach/outreach/backend/internal/util"
	"github.com/dw-outreach/outreach/backend/pkg/logger"
	"github.com/dw-outreach/outreach/backend/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: util.GetEnvBool("DEBUG", false),
		JSON:  util.GetEnv("LOG_FORMAT") == "json",
	})
	logger.Init(consoleLogger)

	server.Init()
}
