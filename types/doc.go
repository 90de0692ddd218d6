// Package types provides core types used across the mcp-llm-bridge module.
// This package has ZERO dependencies on other bridge packages to avoid
// circular imports. All other packages should import types from here.
package types
