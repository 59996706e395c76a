package cmd

import _ "embed"

// System prompts are compiled in from these resources; every request
// carries one of them plus the caller's user content verbatim.

//go:embed prompts/query_optimization.txt
var queryOptimizationPrompt string

//go:embed prompts/schema_normalization.txt
var schemaNormalizationPrompt string
