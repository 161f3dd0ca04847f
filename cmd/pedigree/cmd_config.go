package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nvandessel/pedigree/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show pedigree configuration",
		Long: `View the effective pedigree configuration.

Configuration is read from ~/.pedigree/config.yaml (or --config) and
overridden by PEDIGREE_* environment variables.

Examples:
  pedigree config list                    # Show all settings
  pedigree config get simulation.founders # Get a specific setting
  pedigree config get age_model           # Get a whole section`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
	)
	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}
			data, err := yaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("encode config: %w", err)
			}
			_, err = out.Write(data)
			return err
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			value, found, err := getConfigValue(cfg, key)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !found {
				if jsonOut {
					return json.NewEncoder(out).Encode(map[string]any{
						"error": "key not found",
						"key":   key,
					})
				}
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(out).Encode(map[string]any{
					"key":   key,
					"value": value,
				})
			}
			if section, ok := value.(map[string]any); ok {
				data, err := yaml.Marshal(section)
				if err != nil {
					return fmt.Errorf("encode config: %w", err)
				}
				_, err = out.Write(data)
				return err
			}
			fmt.Fprintf(out, "%s = %v\n", key, value)
			return nil
		},
	}
}

// getConfigValue looks up a dotted YAML key such as "simulation.founders".
func getConfigValue(cfg *config.PedigreeConfig, key string) (any, bool, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, false, fmt.Errorf("encode config: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return nil, false, fmt.Errorf("decode config: %w", err)
	}

	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		node, ok = m[part]
		if !ok {
			return nil, false, nil
		}
	}
	return node, true, nil
}
