package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage antikythera configuration",
}

var configInitCmd = &cobra.Command{
	Use:          "init",
	Short:        "Create config file interactively",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}

		configDir := filepath.Join(home, ".antikythera")
		configPath := filepath.Join(configDir, "config.yaml")

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			fmt.Printf("Config file already exists at %s\n", configPath)
			fmt.Print("Overwrite? [y/N]: ")
			reader := bufio.NewReader(os.Stdin)
			answer, _ := reader.ReadString('\n')
			if strings.TrimSpace(strings.ToLower(answer)) != "y" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		// Create config directory
		if err := os.MkdirAll(configDir, 0700); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		reader := bufio.NewReader(os.Stdin)

		fmt.Println("antikythera configuration setup")
		fmt.Println("───────────────────────────────")
		fmt.Println()

		basePath := promptField(reader, "Target project root", "")
		provider := promptField(reader, "AI provider (gemini/openai/openrouter/anthropic) [openai]", "openai")
		model := promptField(reader, "AI model [gpt-4o]", "gpt-4o")
		masterFile := promptField(reader, "Liquibase master changelog (optional)", "")
		format := promptField(reader, "Default output format [text]", "text")

		// Build config
		var config strings.Builder
		config.WriteString("# antikythera configuration\n\n")

		if basePath != "" {
			config.WriteString(fmt.Sprintf("base_path: %s\n\n", basePath))
		}

		config.WriteString("ai_service:\n")
		config.WriteString("  # api_key: omitted for security, set ANTIKYTHERA_AI_SERVICE.API_KEY\n")
		config.WriteString(fmt.Sprintf("  provider: %s\n", provider))
		config.WriteString(fmt.Sprintf("  model: %s\n", model))
		config.WriteString("  timeout_seconds: 90\n")
		config.WriteString("  initial_retry_count: 0\n")

		config.WriteString("\nquery_optimizer:\n")
		config.WriteString("  max_index_columns: 4\n")
		if masterFile != "" {
			config.WriteString(fmt.Sprintf("  liquibase_master_file: %s\n", masterFile))
		} else {
			config.WriteString("  # liquibase_master_file: path/to/db.changelog-master.xml\n")
		}

		config.WriteString("\nschema_normalization:\n")
		config.WriteString("  max_continuations: 10\n")
		config.WriteString("  mapping_output_dir: docs\n")
		config.WriteString("  # rename_old_table_to: \"{sourceTable}_legacy\"\n")

		config.WriteString("\ndefaults:\n")
		config.WriteString(fmt.Sprintf("  format: %s\n", format))

		if err := os.WriteFile(configPath, []byte(config.String()), 0600); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("\n✅ Config written to %s\n", configPath)
		fmt.Println("\nThe API key is never stored in the file. Export it instead:")
		fmt.Println()
		fmt.Println("  export ANTIKYTHERA_AI_SERVICE.API_KEY=<key>")
		fmt.Println()

		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configFile := viper.ConfigFileUsed()
		if configFile == "" {
			fmt.Println("No config file found.")
			fmt.Println("Run 'antikythera config init' to create one.")
			return nil
		}

		fmt.Printf("Config file: %s\n\n", configFile)

		data, err := os.ReadFile(configFile)
		if err != nil {
			return fmt.Errorf("reading config: %w", err)
		}

		fmt.Println(string(data))
		return nil
	},
}

func promptField(reader *bufio.Reader, label, fallback string) string {
	fmt.Printf("%s: ", label)
	answer, _ := reader.ReadString('\n')
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return fallback
	}
	return answer
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
}
