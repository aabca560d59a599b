// Package config handles configuration loading for templatekit.
//
// # Configuration File
//
// The file is located by Path:
//
//  1. Path from the TEMPLATEKIT_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/templatekit/config.yaml
//  3. ~/.config/templatekit/config.yaml
//
// A missing file is not an error; LoadOrDefault returns Default(). Files
// ending in .toml are read as TOML, anything else as YAML.
//
// # Environment Variable Expansion
//
// Values can reference environment variables:
//
//	database:
//	  path: "${HOME}/templates.db"
//
// # Configuration Sections
//
//	database:
//	  path: "~/.local/share/templatekit/library.db"
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
//
//	import:
//	  strategy: "merge"          # merge, replace
//	  concurrency: 4             # template writes in flight per category
//	  max_pack_templates: 500    # preview warns above this
//	  min_mean_keywords: 3       # preview warns below this
//
//	export:
//	  remove_internal_fields: true
//	  exclude_prebuilt: false
package config
