package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modmailer/modmailer/internal/rules"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Parse and validate a rule file without evaluating anything",
	Long: `Parse the rule file and report the first structural, schema or semantic
violation. Validation is all-or-nothing: a single bad rule rejects the file.

  modmailer validate --rules rules.yaml`,
	RunE: validateCommand,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateCommand(cmd *cobra.Command, args []string) error {
	if rulesPath == "" {
		return fmt.Errorf("--rules is required")
	}

	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return err
	}

	parsed, err := rules.Parse(string(data))
	if err != nil {
		return fmt.Errorf("rule file invalid: %w", err)
	}

	fmt.Printf("OK: %d rules\n", len(parsed))
	for i, rule := range parsed {
		name := rule.FriendlyName
		if name == "" {
			name = "(unnamed)"
		}
		fmt.Printf("  %2d. priority %d  %s\n", i+1, rule.Priority, name)
	}
	return nil
}
