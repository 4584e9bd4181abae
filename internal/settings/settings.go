// Package settings holds the per-subreddit responder configuration that
// lives outside the rule file: signoff text, send delay, backup and language
// options.
package settings

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/modmailer/modmailer/internal/i18n"
)

// DefaultSignoff is appended to public replies unless a rule opts out.
const DefaultSignoff = "*This is an automatic response. If you need more assistance, please reply to this message and a human moderator will review your request.*"

// BackupWikiPage is the wiki page rule backups are written to.
const BackupWikiPage = "automodmailrules"

// Settings is the responder configuration for one subreddit.
type Settings struct {
	Subreddit string `yaml:"subreddit"`

	// RulesPath points at the YAML rule file.
	RulesPath string `yaml:"rules_path"`

	// Signoff is appended to public replies; rules may opt out per-rule.
	Signoff string `yaml:"signoff"`

	// IncludeSignoffForMods controls whether replies triggered by moderator
	// messages also carry the signoff.
	IncludeSignoffForMods bool `yaml:"include_signoff_for_mods"`

	// SecondsDelayBeforeSend delays acting on a matched rule, useful when
	// other modmail tooling should run first.
	SecondsDelayBeforeSend int `yaml:"seconds_delay_before_send"`

	// BackupToWikiPage enables mirroring the rule file to the subreddit
	// wiki whenever it changes.
	BackupToWikiPage bool `yaml:"backup_to_wiki_page"`

	// Locale selects the output language for the mod-action placeholders.
	Locale string `yaml:"locale"`

	// PostString and CommentString override the locale's nouns for the
	// {{mod_action_target_kind}} placeholder.
	PostString    string `yaml:"post_string"`
	CommentString string `yaml:"comment_string"`

	RedisAddr string `yaml:"redis_addr"`
}

// Default returns the settings a subreddit gets before any configuration.
func Default() Settings {
	return Settings{
		Signoff:               DefaultSignoff,
		IncludeSignoffForMods: true,
		Locale:                "en",
	}
}

// Load reads a settings file, filling unset fields from the defaults.
func Load(path string) (Settings, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing settings %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings the responder cannot run with.
func (s *Settings) Validate() error {
	if s.SecondsDelayBeforeSend < 0 {
		return fmt.Errorf("seconds_delay_before_send must not be negative")
	}
	if s.Locale != "" {
		if _, err := i18n.FromCode(s.Locale); err != nil {
			return err
		}
	}
	return nil
}

// Language resolves the configured locale, falling back to the default.
func (s *Settings) Language() *i18n.Language {
	lang, err := i18n.FromCode(s.Locale)
	if err != nil {
		return i18n.Default
	}
	return lang
}
