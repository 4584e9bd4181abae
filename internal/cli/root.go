package cli

import (
	"github.com/spf13/cobra"
)

var (
	rulesPath    string
	settingsPath string
)

var rootCmd = &cobra.Command{
	Use:   "modmailer",
	Short: "Modmailer - rule-driven modmail autoresponder",
	Long: `Modmailer answers incoming modmail using a declarative YAML rule file:
each rule pairs predicates (subject/body matching, author checks, moderation
log context) with actions (reply, mute, archive, flair) applied when the rule
matches.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesPath, "rules", "", "Path to the YAML rule file")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Path to the settings YAML file")
}

func Execute() error {
	return rootCmd.Execute()
}
