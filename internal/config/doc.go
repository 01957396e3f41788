// Package config handles configuration loading for the command console.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from COVEN_CMDMGR_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/coven/cmdmgr.yaml
//  3. ~/.config/coven/cmdmgr.yaml
//
// Files ending in .toml are read as TOML; anything else is YAML. Keys are the
// same in both formats.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	matrix:
//	  access_token: "${COVEN_MATRIX_TOKEN}"
//
// # Example
//
//	console:
//	  init_delay: 15
//	  admins: ["@ops:example.org"]
//
//	webui:
//	  host: "0.0.0.0"
//	  port: 5000
//	  poll_interval: "1s"
//	  stop_timeout: "5s"
//
//	database:
//	  path: "./cmdmgr.db"
//
//	plugins:
//	  - name: "Weather"
//	    module: "plugins.weather"
//	    handlers:
//	      - full_name: "weather.today"
//	        command: "today"
//	        parents: ["weather"]
//	        description: "today's forecast"
//
// Defaults: init_delay 15, host 0.0.0.0, port 5000, logging info/text,
// matrix prefix "!".
package config
