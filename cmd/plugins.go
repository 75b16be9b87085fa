package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"yqhp/stepflow/internal/plugin"
	"yqhp/stepflow/internal/plugin/builtin"
)

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available plugins",
	RunE: func(cmd *cobra.Command, args []string) error {
		registry := plugin.NewRegistry()
		if err := builtin.RegisterAll(registry, nil); err != nil {
			return err
		}

		fmt.Println("Available plugins:")
		for _, name := range registry.Names() {
			p, err := registry.Lookup(name)
			if err != nil {
				continue
			}
			meta := p.Metadata()
			fmt.Printf("  %-24s %-8s %s\n", meta.Name, meta.Version, meta.Description)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pluginsCmd)
	pluginsCmd.AddCommand(pluginsListCmd)
}
