package cli

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/modmailer/modmailer/internal/eval"
	"github.com/modmailer/modmailer/internal/reply"
	"github.com/modmailer/modmailer/internal/rules"
	"github.com/modmailer/modmailer/internal/settings"
)

var (
	checkSubject  string
	checkBody     string
	checkUsername string
	checkVerbose  bool
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the rule file against a sample message, offline",
	Long: `Run the rule engine against a sample subject and body without contacting
any moderation host. Predicates that need host lookups (bans, flair, the
moderation log, subreddit visibility) are skipped, so this answers "which
rule would the text alone match".

The body is read from --body, or from stdin when piped:

  modmailer check --rules rules.yaml --subject "ban appeal" --body "please unban me"
  cat message.txt | modmailer check --rules rules.yaml --subject "ban appeal"`,
	RunE: checkCommand,
}

func init() {
	checkCmd.Flags().StringVar(&checkSubject, "subject", "", "Sample message subject")
	checkCmd.Flags().StringVar(&checkBody, "body", "", "Sample message body (default: stdin when piped)")
	checkCmd.Flags().StringVar(&checkUsername, "username", "testuser", "Sample participant username")
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false, "Show the evaluation trace for every rule")
	rootCmd.AddCommand(checkCmd)
}

func checkCommand(cmd *cobra.Command, args []string) error {
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

	body := checkBody
	if body == "" && !term.IsTerminal(int(os.Stdin.Fd())) {
		piped, err := io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
		body = string(piped)
	}

	cfg := settings.Default()
	if settingsPath != "" {
		cfg, err = settings.Load(settingsPath)
		if err != nil {
			return err
		}
	}

	sort.SliceStable(parsed, func(i, j int) bool {
		return parsed[i].Priority > parsed[j].Priority
	})

	evaluator := &eval.Evaluator{}
	in := eval.Input{
		Subreddit: cfg.Subreddit,
		Subject:   checkSubject,
		Body:      body,
		Username:  checkUsername,
	}

	for i := range parsed {
		rule := parsed[i]
		if checkVerbose {
			rule.VerboseLogs = true
		}

		result, err := evaluator.CheckRule(cmd.Context(), &rule, in)
		if err != nil {
			return err
		}

		name := rule.FriendlyName
		if name == "" {
			name = fmt.Sprintf("rule %d", i+1)
		}

		if checkVerbose {
			fmt.Printf("%s (priority %d): matched=%t\n", name, result.Priority, result.Matched)
			for _, line := range result.VerboseLogs {
				fmt.Printf("  - %s\n", line)
			}
		}

		if !result.Matched {
			continue
		}

		fmt.Printf("Matched: %s (priority %d)\n", name, result.Priority)
		if result.Reply != "" {
			opts := reply.Options{
				Username:    checkUsername,
				Subreddit:   cfg.Subreddit,
				Language:    cfg.Language(),
				PostWord:    cfg.PostString,
				CommentWord: cfg.CommentString,
			}
			fmt.Printf("\nReply that would be sent:\n\n%s\n", reply.Render(result.Reply, result, opts))
		}
		return nil
	}

	fmt.Println("No rules matched.")
	return nil
}
