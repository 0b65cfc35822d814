// Package config provides the configuration system for Blockstorm.
//
// Configuration is organized in layers with higher layers overriding lower:
//
//	┌─────────────────────────────┐
//	│  3. Environment Variables   │  ← BLOCKSTORM_*, highest priority
//	├─────────────────────────────┤
//	│  2. Config File             │  ← blockstorm.toml or blockstorm.yaml
//	├─────────────────────────────┤
//	│  1. Built-in Defaults       │  ← Lowest priority
//	└─────────────────────────────┘
//
// Layers are read by the loader sub-package, merged key by key and decoded
// into a typed Config, which is validated before use.
//
// # Configuration Files
//
//	# blockstorm.toml
//	[history]
//	maxEntries = 500
//
//	[document]
//	defaultType = "paragraph"
//	keepEmpty = false
//	replacePlaceholder = true
//
//	[log]
//	level = "debug"
//	format = "json"
//	file = "/tmp/blockstorm.log"
//
// # Live Reload
//
// Watch reloads the configuration whenever its file changes.
package config
