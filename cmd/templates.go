package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"songsmith/internal/prompt"
)

var listTemplatesCmd = &cobra.Command{
	Use:   "list-templates",
	Short: "List available prompt templates",
	Args:  cobra.NoArgs,
	RunE:  runListTemplates,
}

var createTemplateCmd = &cobra.Command{
	Use:   "create-template NAME TEMPLATE VARIATIONS_FILE",
	Short: "Create a prompt template",
	Long:  "Create a template whose {placeholders} are filled from the named lists in VARIATIONS_FILE (yaml or json).",
	Args:  cobra.ExactArgs(3),
	RunE:  runCreateTemplate,
}

func init() {
	rootCmd.AddCommand(listTemplatesCmd)
	rootCmd.AddCommand(createTemplateCmd)
	listTemplatesCmd.Flags().Int("sample", 0, "Print this many generated prompts per template")
}

func runListTemplates(cmd *cobra.Command, args []string) error {
	m, err := newTemplateManager()
	if err != nil {
		return err
	}
	sample, _ := cmd.Flags().GetInt("sample")

	out := cmd.OutOrStdout()
	names := m.List()
	fmt.Fprintln(out, "Available templates:")
	for _, name := range names {
		fmt.Fprintf(out, "- %s\n", name)
		if sample > 0 {
			prompts, err := m.Variations(name, sample)
			if err != nil {
				return err
			}
			for _, p := range prompts {
				fmt.Fprintf(out, "    e.g. %s\n", p)
			}
		}
	}
	fmt.Fprintf(out, "Total templates: %d\n", len(names))
	return nil
}

func runCreateTemplate(cmd *cobra.Command, args []string) error {
	name, text, file := args[0], args[1], args[2]

	variations, err := prompt.LoadVariations(file)
	if err != nil {
		return err
	}
	m, err := newTemplateManager()
	if err != nil {
		return err
	}
	if _, err := m.Create(name, text, variations); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Template '%s' created successfully!\n", name)
	return nil
}
