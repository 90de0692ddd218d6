// Package config loads the bridge configuration: the conversation
// directory, the adapter map, default adapter names, and logging options.
// Precedence is defaults, then the YAML file, then MCPBRIDGE_* environment
// variables. Configuration is loaded once at startup and treated as
// immutable for the process lifetime.
package config
