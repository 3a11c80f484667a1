// Package config provides application configuration management from a YAML
// file and environment variables.
//
// # Overview
//
// Defaults come first, then the YAML file named by CONDUIT_CONFIG, then
// environment variables. The result is validated before it is returned.
//
// # Configuration Structure
//
// Plugin host settings:
//
//	CONDUIT_PLUGIN_PATH="/usr/lib/conduit:/home/me/.config/conduit/plugins"
//	CONDUIT_UI="gtk"
//	CONDUIT_WATCH="true"
//	CONDUIT_WATCH_DEBOUNCE="2s"
//	CONDUIT_KEEPALIVE_SCHEDULE="@every 5s"
//
// Debug API settings:
//
//	CONDUIT_HTTP_ENABLED="true"
//	CONDUIT_HTTP_HOST="127.0.0.1"
//	CONDUIT_HTTP_PORT="8086"
//
// Saved plugin list settings:
//
//	CONDUIT_STORAGE_TYPE="file"  # file, sqlite, postgres, redis, s3
//	CONDUIT_STATE_FILE="/var/lib/conduit/saved-plugins.yaml"
//	CONDUIT_POSTGRES_URL="postgres://localhost/conduit"
//	CONDUIT_REDIS_URL="redis://localhost:6379/0"
//	CONDUIT_S3_BUCKET="conduit-state"
//
// Observability settings:
//
//	CONDUIT_LOG_LEVEL="info"  # trace, debug, info, warn, error
//	CONDUIT_LOG_FORMAT="text" # text, json
//	CONDUIT_METRICS_ENABLED="true"
//	CONDUIT_OTEL_ENABLED="true"
//	CONDUIT_OTEL_ENDPOINT="otel-collector:4317"
//
// The same settings in YAML:
//
//	plugins:
//	  search_paths: [/usr/lib/conduit]
//	  watch_debounce: 2s
//	server:
//	  port: "8086"
//	storage:
//	  type: sqlite
//	  path: /var/lib/conduit/state.db
//	log_level: debug
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//	fmt.Printf("Listening on %s\n", cfg.Server.Addr())
package config
