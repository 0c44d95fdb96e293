// Package file provides file-based implementations of driven port interfaces.
// These adapters read user-editable files from the local filesystem.
//
// Adapters:
//   - ConfigStore: TOML configuration snapshot
//   - PromptStore: text/template prompt files with embedded defaults
package file
