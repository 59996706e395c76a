package cmd

import (
	"testing"

	"github.com/spf13/viper"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	expected := map[string]bool{
		"optimize":  false,
		"normalize": false,
		"config":    false,
		"version":   false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := expected[c.Name()]; ok {
			expected[c.Name()] = true
		}
	}
	for name, found := range expected {
		if !found {
			t.Errorf("expected subcommand %q to be registered", name)
		}
	}
}

func TestRootCommand_GlobalFlags(t *testing.T) {
	for _, name := range []string{"config", "base-path", "ast-export", "format", "verbose", "low-cardinality", "high-cardinality"} {
		if rootCmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("expected global flag --%s", name)
		}
	}
}

func TestInitConfig_Defaults(t *testing.T) {
	initConfig()

	if got := viper.GetString("ai_service.model"); got != "gpt-4o" {
		t.Errorf("ai_service.model default: got %q", got)
	}
	if got := viper.GetInt("ai_service.timeout_seconds"); got != 90 {
		t.Errorf("ai_service.timeout_seconds default: got %d", got)
	}
	if got := viper.GetInt("ai_service.initial_retry_count"); got != 0 {
		t.Errorf("ai_service.initial_retry_count default: got %d", got)
	}
	if got := viper.GetInt("query_optimizer.max_index_columns"); got != 4 {
		t.Errorf("query_optimizer.max_index_columns default: got %d", got)
	}
	if got := viper.GetInt("schema_normalization.max_continuations"); got != 10 {
		t.Errorf("schema_normalization.max_continuations default: got %d", got)
	}
	if got := viper.GetString("schema_normalization.mapping_output_dir"); got != "docs" {
		t.Errorf("schema_normalization.mapping_output_dir default: got %q", got)
	}
}
