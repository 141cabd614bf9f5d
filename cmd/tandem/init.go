package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a tandem project",
	Long: `Initialize a directory for use with tandem.

This command checks prerequisites and writes an example .tandem.yaml
project config. The directory argument defaults to the current
directory.

Examples:
  tandem init              # Initialize current directory
  tandem init ./myproject  # Initialize specific directory
  tandem init --force      # Overwrite an existing .tandem.yaml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing .tandem.yaml")
}

// exampleConfig mirrors the config file layout for the generated YAML.
type exampleConfig struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Anthropic struct {
		APIKey     string `yaml:"api_key"`
		Model      string `yaml:"model"`
		UseBedrock bool   `yaml:"use_bedrock"`
	} `yaml:"anthropic"`
	Logging struct {
		DebugLogPath string `yaml:"debug_log_path"`
	} `yaml:"logging"`
}

func runInit(cmd *cobra.Command, args []string) error {
	targetDir := "."
	if len(args) > 0 {
		targetDir = args[0]
	}
	absPath, err := filepath.Abs(targetDir)
	if err != nil {
		return fmt.Errorf("resolve directory: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	if os.Getenv("ANTHROPIC_API_KEY") == "" {
		printStatus("⚠", "ANTHROPIC_API_KEY not set (you can set it later)", color.FgYellow)
	} else {
		printStatus("✓", "ANTHROPIC_API_KEY is set", color.FgGreen)
	}

	configPath := filepath.Join(absPath, ".tandem.yaml")
	if _, err := os.Stat(configPath); err == nil && !initForce {
		printStatus("⚠", ".tandem.yaml already exists (use --force to overwrite)", color.FgYellow)
		return nil
	}

	example := exampleConfig{}
	example.Server.Addr = "127.0.0.1:8421"
	example.Anthropic.APIKey = "${ANTHROPIC_API_KEY}"
	example.Anthropic.Model = ""
	example.Logging.DebugLogPath = ""

	data, err := yaml.Marshal(&example)
	if err != nil {
		return fmt.Errorf("marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", configPath, err)
	}
	printStatus("✓", "Created .tandem.yaml", color.FgGreen)

	fmt.Println("\nNext steps:")
	fmt.Println("  tandem serve          # start the orchestration server")
	fmt.Println("  tandem config         # inspect effective configuration")
	return nil
}

func printStatus(mark, msg string, c color.Attribute) {
	color.New(c).Printf("%s ", mark)
	fmt.Println(msg)
}
