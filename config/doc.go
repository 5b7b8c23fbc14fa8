// Package config provides configuration loading and validation for staticasset.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (STATICASSET_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with STATICASSET_ prefix:
//   - server.port → STATICASSET_SERVER_PORT
//   - assets.path → STATICASSET_ASSETS_PATH
//   - cache.busting → STATICASSET_CACHE_BUSTING
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, mode (store/static/spa), and shutdown_timeout
//   - Assets: directory, URL prefix, include pattern, hidden files, warmup and watch settings
//   - Cache: Cache-Control value and cache busting mode
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level and format
//
// # Validation
//
// Configuration is validated using struct tags:
//   - Port must be 1-65535
//   - Mode must be store, static, or spa
//   - Warmup must be hot, warm, or cold
//   - Busting must be none, query, or suffix
//   - Include must compile as a regular expression
//   - Log level must be debug, info, warn, or error
package config
