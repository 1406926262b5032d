// Package app wires the dashboard server together and runs it.
//
// NewApplication loads the configuration (defaults, then an optional YAML
// file, then CUSTOS_* environment variables), initializes the JSON logger and
// OpenTelemetry, and builds the session store, the dashboard service and the
// router. Run serves until SIGINT or SIGTERM:
//
//	application, err := app.NewApplication("")
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// The HTTP server and the session sweeper run in one errgroup. When the
// context ends or either of them fails, the server is shut down within
// Server.ShutdownTimeout and the telemetry providers are flushed.
//
// Initialization errors are returned to the caller; the package never calls os.Exit.
package app
