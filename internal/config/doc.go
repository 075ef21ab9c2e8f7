// Package config handles configuration loading for adledger.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from ADLEDGER_CONFIG environment variable
//  2. ~/.config/adledger/config.yaml
//
// Files ending in .toml are read as TOML; anything else is read as YAML.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${ADLEDGER_JWT_SECRET}"
//
// # Configuration Sections
//
//	server:
//	  http_addr: "localhost:8080"    # JSON API and event stream
//	  grpc_addr: "localhost:50051"   # gRPC health service
//
//	database:
//	  path: "/var/lib/adledger/ledger.db"
//
//	auth:
//	  jwt_secret: "${ADLEDGER_JWT_SECRET}"  # at least 32 bytes
//	  owner: "0xabc"                       # first member of the owner set
//	  token_ttl: "720h"
//
//	exchange:
//	  retain_settled_hit_fields: false
//
//	events:
//	  buffer_size: 64   # per-subscriber channel buffer
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
// Empty addresses, TTL, buffer size and logging settings fall back to the
// package defaults before validation.
package config
