package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/antikythera/planner/internal/astsource"
	"github.com/antikythera/planner/internal/llmclient"
)

// runConfig is the wiring both pipeline commands share. Anything missing
// here is a configuration error: fatal before any type is processed.
type runConfig struct {
	BasePath      string
	ASTExportPath string
	Format        string
	Author        string
}

func loadRunConfig() (runConfig, error) {
	basePath := viper.GetString("base_path")
	if basePath == "" {
		return runConfig{}, fmt.Errorf("base_path not set: use --base-path, the config file, or ANTIKYTHERA_BASE_PATH")
	}

	astExport := viper.GetString("ast_export")
	if astExport == "" {
		astExport = filepath.Join(basePath, "antikythera-ast.json")
	}

	return runConfig{
		BasePath:      basePath,
		ASTExportPath: astExport,
		Format:        viper.GetString("format"),
		Author:        viper.GetString("changeset.author"),
	}, nil
}

// newLogger builds the structured diagnostics side channel. Progress goes
// to stdout with the emoji prefixes; diagnostics go here.
func newLogger() zerolog.Logger {
	level := zerolog.WarnLevel
	if viper.GetBool("verbose") {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()
}

func newLLMClient(systemPrompt string, logger zerolog.Logger) (llmclient.Client, error) {
	apiKey := viper.GetString("ai_service.api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("ai_service.api_key not set: set it in the config file or ANTIKYTHERA_AI_SERVICE.API_KEY")
	}

	return llmclient.New(llmclient.Config{
		Provider:       llmclient.Provider(viper.GetString("ai_service.provider")),
		APIKey:         apiKey,
		Model:          viper.GetString("ai_service.model"),
		TimeoutSeconds: viper.GetInt("ai_service.timeout_seconds"),
		RetryCount:     viper.GetInt("ai_service.initial_retry_count"),
		SystemPrompt:   systemPrompt,
	}, logger)
}

func loadRuntime(cfg runConfig) (astsource.Runtime, error) {
	rt, err := astsource.LoadJSONExport(cfg.ASTExportPath)
	if err != nil {
		return nil, fmt.Errorf("loading AST export: %w", err)
	}
	return rt, nil
}

// cardinalityOverrides merges the --low-cardinality / --high-cardinality
// flags with any config-file values.
func cardinalityOverrides() (low, high []string) {
	lowFlag, _ := rootCmd.PersistentFlags().GetStringSlice("low-cardinality")
	highFlag, _ := rootCmd.PersistentFlags().GetStringSlice("high-cardinality")
	low = append(viper.GetStringSlice("cardinality.low"), lowFlag...)
	high = append(viper.GetStringSlice("cardinality.high"), highFlag...)
	return low, high
}
