package cmd

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kris-hansen/docsquad/utils/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect the effective configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration with API keys masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := yaml.Marshal(appConfig.Redacted())
		if err != nil {
			return fmt.Errorf("failed to render configuration: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

var configModelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the known models for each provider",
	Run: func(cmd *cobra.Command, args []string) {
		all := models.GetRegistry().GetAllModels()
		providers := make([]string, 0, len(all))
		for provider := range all {
			providers = append(providers, provider)
		}
		sort.Strings(providers)

		out := cmd.OutOrStdout()
		for _, provider := range providers {
			fmt.Fprintf(out, "%s:\n", provider)
			for _, model := range all[provider] {
				fmt.Fprintf(out, "  - %s\n", model)
			}
			if families := models.GetRegistry().GetFamilies(provider); len(families) > 0 {
				fmt.Fprintf(out, "  (also any model starting with %s)\n", strings.Join(families, ", "))
			}
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configModelsCmd)
	rootCmd.AddCommand(configCmd)
}
