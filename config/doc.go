// Package config provides configuration management for datalink applications.
//
// Configuration is plain JSON layered over built-in defaults, with
// DATALINK_* environment variables applied last.
//
// # Core Components
//
// Config: Main configuration structure covering the result cache, the
// dispatcher, the invalidation bus, the built-in connectors, and logging.
//
// Loader: Loads configuration with layer merging (base + overrides) and
// environment variable overrides for flexible deployment scenarios.
//
// # Basic Usage
//
// Loading configuration from files with layer merging:
//
//	loader := config.NewLoader()
//	loader.AddLayer("config/base.json")
//	loader.AddLayer("config/production.json") // Overrides base
//	loader.EnableValidation(true)
//
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # File Format
//
// Duration fields accept Go duration strings alongside integer nanoseconds:
//
//	{
//	  "cache": {"enabled": true, "max_size": 5000, "ttl": "10m"},
//	  "dispatch": {
//	    "default_ttl": "5m",
//	    "rate_limits": {"rest_api": {"per_second": 20, "burst": 5}}
//	  },
//	  "bus": {"enabled": true, "url": "nats://localhost:4222"},
//	  "connectors": {
//	    "rest": {
//	      "base_url": "https://api.example.com",
//	      "timeout": "30s",
//	      "tls": {"ca_files": ["/etc/ssl/corp-ca.pem"]}
//	    },
//	    "sql": {"dsn": "file:data.db", "read_only": true}
//	  },
//	  "logging": {"level": "info", "format": "text"}
//	}
//
// # Environment Overrides
//
// The environment wins over every file layer. Recognized variables:
// DATALINK_CACHE_MAX_SIZE, DATALINK_CACHE_TTL, DATALINK_DISPATCH_TIMEOUT,
// DATALINK_BUS_URL, DATALINK_BUS_ENABLED, DATALINK_BUS_SUBJECT_PREFIX,
// DATALINK_LOG_LEVEL, DATALINK_LOG_FORMAT.
//
// Validation is structural. Connector settings are checked when the
// connectors are built, so registration can still fail on a config that
// passed Validate.
package config
