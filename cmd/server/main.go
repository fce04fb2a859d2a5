package main

import (
	"call-relay/internal/app/server"
	"call-relay/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel, cfg.Server.LogFormat)

	server.Run(cfg)
}
