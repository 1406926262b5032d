// Package config loads the dashboard configuration.
//
// # Configuration Sources
//
// Values are layered in increasing order of precedence:
//
//  1. Default() values
//  2. A YAML file (explicit path, CUSTOS_CONFIG_FILE, ./config.yaml, ./configs/config.yaml
//     or config.yaml next to the executable)
//  3. Environment variables
//
// # Environment Variables
//
// Variables use the CUSTOS prefix and the section name:
//
//	CUSTOS_SERVER_PORT=8080
//	CUSTOS_UPLOAD_MAX_BYTES=20971520
//	CUSTOS_SESSION_TTL=2h
//	CUSTOS_DASHBOARD_CHART_THEME=chalk
//	CUSTOS_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Tests that do not care about the environment can start from config.Default().
package config
