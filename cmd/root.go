package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "antikythera",
	Short: "Static data-access analysis with AI-assisted remediation planning",
	Long: `antikythera analyzes a project's repository queries and entity classes
without touching a live database.

It finds suboptimal WHERE-clause column ordering and missing indexes,
consolidates them into Liquibase index changesets, and plans full
normalization migrations (table splits, compatibility views, INSTEAD OF
triggers) from AI-proposed schema changes.

Everything it emits is a plan: changeset XML, mapping artifacts, and
regenerated entity sources. Nothing is executed against a database.`,
}

// Execute is called by main.main(). It adds all child commands to the root
// command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.antikythera/config.yaml)")
	rootCmd.PersistentFlags().StringP("base-path", "b", "", "Root of the target project")
	rootCmd.PersistentFlags().String("ast-export", "", "AST export JSON produced by the host parser (default <base-path>/antikythera-ast.json)")
	rootCmd.PersistentFlags().StringP("format", "f", "text", "Output format: text, plain, json, markdown")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Show additional debug info")
	rootCmd.PersistentFlags().StringSlice("low-cardinality", nil, "Columns to force-classify as LOW cardinality")
	rootCmd.PersistentFlags().StringSlice("high-cardinality", nil, "Columns to force-classify as HIGH cardinality")

	// Bind flags to viper
	viper.BindPFlag("base_path", rootCmd.PersistentFlags().Lookup("base-path"))
	viper.BindPFlag("ast_export", rootCmd.PersistentFlags().Lookup("ast-export"))
	viper.BindPFlag("format", rootCmd.PersistentFlags().Lookup("format"))
	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return
		}
		viper.AddConfigPath(home + "/.antikythera")
		viper.AddConfigPath(".")
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("ANTIKYTHERA")
	viper.AutomaticEnv()

	// Defaults for every option that has one. Nested keys resolve
	// from the config file; flags still win when explicitly set.
	viper.SetDefault("ai_service.model", "gpt-4o")
	viper.SetDefault("ai_service.provider", "openai")
	viper.SetDefault("ai_service.timeout_seconds", 90)
	viper.SetDefault("ai_service.initial_retry_count", 0)
	viper.SetDefault("query_optimizer.max_index_columns", 4)
	viper.SetDefault("query_optimizer.batch_size", 5)
	viper.SetDefault("schema_normalization.max_continuations", 10)
	viper.SetDefault("schema_normalization.mapping_output_dir", "docs")
	viper.SetDefault("changeset.author", "antikythera")

	// Silently ignore missing config file — it's optional
	if err := viper.ReadInConfig(); err == nil {
		if !rootCmd.PersistentFlags().Changed("format") && viper.IsSet("defaults.format") {
			viper.Set("format", viper.GetString("defaults.format"))
		}
	}
}
