// Package config provides configuration management for the schemadoc CLI.
//
// The configuration types live in internal/config and are re-exported here
// via type aliases for convenience. This package adds the layered loader:
// defaults, config file, environment and command-line flags.
package config

import (
	sharedcfg "github.com/leapstack-labs/schemadoc/internal/config"
)

// Config is an alias for the shared configuration.
type Config = sharedcfg.Config

// ServeConfig is an alias for the shared serve configuration.
type ServeConfig = sharedcfg.ServeConfig

// IntrospectConfig is an alias for the shared introspection configuration.
type IntrospectConfig = sharedcfg.IntrospectConfig

// Default configuration values - uses shared defaults from internal/config
const (
	DefaultWorkers   = sharedcfg.DefaultWorkers
	DefaultOutput    = sharedcfg.DefaultOutput
	DefaultServePort = sharedcfg.DefaultServePort
)
