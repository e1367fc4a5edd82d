// Package assets embeds the jq helpers installed by `forest-bench functions install`.
package assets

import "embed"

// Functions holds functions/*.jq. Each file defines helpers over the JSON Lines
// records written by `forest-bench run` (use with jq -s).
//
//go:embed functions/*.jq
var Functions embed.FS

// FunctionsDir is the directory inside Functions holding the jq files.
const FunctionsDir = "functions"
