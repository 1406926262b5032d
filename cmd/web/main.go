package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"custos/internal/app"
	"custos/internal/infrastructure"
)

func main() {
	configFile := flag.String("config", "", "path to a YAML config file (default: CUSTOS_CONFIG_FILE or the usual locations)")
	flag.Parse()

	application, err := app.NewApplication(*configFile)
	if err != nil {
		slog.Error("Failed to initialize application", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer infrastructure.CloseLogFile()

	if err := application.Run(context.Background()); err != nil {
		slog.Error("Application error", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
}
