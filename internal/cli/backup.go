package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/modmailer/modmailer/internal/backup"
	"github.com/modmailer/modmailer/internal/rules"
	"github.com/modmailer/modmailer/internal/settings"
)

var (
	backupDir      string
	backupS3Bucket string
	backupS3Prefix string
	backupS3Region string
	backupReason   string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Back the rule file up to a local directory and/or an S3 bucket",
	Long: `Validate the rule file and mirror it to the configured backup targets.
Unchanged content is skipped, so this is safe to run on every rule edit.

  modmailer backup --rules rules.yaml --settings settings.yaml --dir ./backups
  modmailer backup --rules rules.yaml --settings settings.yaml --s3-bucket my-bucket`,
	RunE: backupCommand,
}

func init() {
	backupCmd.Flags().StringVar(&backupDir, "dir", "", "Local backup directory")
	backupCmd.Flags().StringVar(&backupS3Bucket, "s3-bucket", "", "S3 bucket to back up to")
	backupCmd.Flags().StringVar(&backupS3Prefix, "s3-prefix", "", "Key prefix inside the S3 bucket")
	backupCmd.Flags().StringVar(&backupS3Region, "s3-region", "us-east-1", "AWS region of the bucket")
	backupCmd.Flags().StringVar(&backupReason, "reason", "", "Edit reason recorded with the backup")
	rootCmd.AddCommand(backupCmd)
}

func backupCommand(cmd *cobra.Command, args []string) error {
	if rulesPath == "" {
		return fmt.Errorf("--rules is required")
	}
	if settingsPath == "" {
		return fmt.Errorf("--settings is required")
	}

	cfg, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	if cfg.Subreddit == "" {
		return fmt.Errorf("settings file must name a subreddit")
	}

	data, err := os.ReadFile(rulesPath)
	if err != nil {
		return err
	}

	// Never back up a broken rule file.
	if _, err := rules.Parse(string(data)); err != nil {
		return fmt.Errorf("rule file invalid: %w", err)
	}

	var targets backup.MultiStore
	if backupDir != "" {
		targets = append(targets, &backup.LocalStore{Dir: backupDir})
	}
	if backupS3Bucket != "" {
		s3Store, err := backup.NewS3Store(backupS3Bucket, backupS3Prefix, backupS3Region)
		if err != nil {
			return err
		}
		targets = append(targets, s3Store)
	}
	if len(targets) == 0 {
		return fmt.Errorf("no backup target: pass --dir and/or --s3-bucket")
	}

	if err := targets.Save(cmd.Context(), cfg.Subreddit, string(data), backupReason); err != nil {
		return err
	}
	fmt.Printf("Backed up rules for r/%s to %d target(s)\n", cfg.Subreddit, len(targets))
	return nil
}
