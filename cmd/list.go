package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered steps",
	Example: `  stepflow list --config config.yaml`,
	RunE:    executeList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func executeList(cmd *cobra.Command, args []string) error {
	rt, err := setup(nil)
	if err != nil {
		return err
	}
	defer rt.log.Sync()

	ids, err := rt.source.Discover()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("No steps found")
		return nil
	}

	fmt.Println("Available steps:")
	for _, id := range ids {
		description := ""
		if def, err := rt.source.LoadStep(id); err == nil {
			description = def.Description
		}
		fmt.Printf("  %-4s %s\n", id, description)
	}
	return nil
}
