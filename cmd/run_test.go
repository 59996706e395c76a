package cmd

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestLoadRunConfig_RequiresBasePath(t *testing.T) {
	viper.Set("base_path", "")
	defer viper.Set("base_path", "")

	_, err := loadRunConfig()
	if err == nil {
		t.Fatal("expected an error when base_path is unset")
	}
	if !strings.Contains(err.Error(), "base_path") {
		t.Errorf("expected the error to name base_path, got %v", err)
	}
}

func TestLoadRunConfig_DefaultsASTExportPath(t *testing.T) {
	viper.Set("base_path", "/tmp/project")
	viper.Set("ast_export", "")
	defer func() {
		viper.Set("base_path", "")
		viper.Set("ast_export", "")
	}()

	cfg, err := loadRunConfig()
	if err != nil {
		t.Fatalf("loadRunConfig: %v", err)
	}
	want := filepath.Join("/tmp/project", "antikythera-ast.json")
	if cfg.ASTExportPath != want {
		t.Errorf("ASTExportPath: got %q want %q", cfg.ASTExportPath, want)
	}
}

func TestNewLLMClient_RequiresAPIKey(t *testing.T) {
	viper.Set("ai_service.api_key", "")

	_, err := newLLMClient("prompt", newLogger())
	if err == nil {
		t.Fatal("expected an error when api_key is unset")
	}
}

func TestCardinalityOverrides_MergeFlagsAndConfig(t *testing.T) {
	viper.Set("cardinality.low", []string{"active"})
	defer viper.Set("cardinality.low", nil)
	if err := rootCmd.PersistentFlags().Set("low-cardinality", "deleted,visible"); err != nil {
		t.Fatalf("setting flag: %v", err)
	}
	defer rootCmd.PersistentFlags().Set("low-cardinality", "")

	low, _ := cardinalityOverrides()
	got := strings.Join(low, ",")
	for _, want := range []string{"active", "deleted", "visible"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in merged low set %v", want, low)
		}
	}
}
