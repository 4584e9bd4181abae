package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeSettings(t, "subreddit: testsub\nrules_path: rules.yaml\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testsub", cfg.Subreddit)
	assert.Equal(t, DefaultSignoff, cfg.Signoff)
	assert.True(t, cfg.IncludeSignoffForMods)
	assert.Equal(t, 0, cfg.SecondsDelayBeforeSend)
	assert.False(t, cfg.BackupToWikiPage)
	assert.Equal(t, "en", cfg.Language().Code)
}

func TestLoadOverrides(t *testing.T) {
	path := writeSettings(t, `
subreddit: testsub
rules_path: rules.yaml
signoff: "custom signoff"
include_signoff_for_mods: false
seconds_delay_before_send: 30
backup_to_wiki_page: true
locale: de
post_string: submission
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "custom signoff", cfg.Signoff)
	assert.False(t, cfg.IncludeSignoffForMods)
	assert.Equal(t, 30, cfg.SecondsDelayBeforeSend)
	assert.True(t, cfg.BackupToWikiPage)
	assert.Equal(t, "Deutsch", cfg.Language().Name)
	assert.Equal(t, "submission", cfg.PostString)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.SecondsDelayBeforeSend = -1
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Locale = "zz-invalid-!"
	assert.Error(t, cfg.Validate())
}
