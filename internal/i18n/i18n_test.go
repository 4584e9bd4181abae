package i18n

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixNow(t *testing.T, now time.Time) {
	t.Helper()
	timeNow = func() time.Time { return now }
	t.Cleanup(func() { timeNow = time.Now })
}

func TestFromCode(t *testing.T) {
	lang, err := FromCode("de")
	require.NoError(t, err)
	assert.Equal(t, "Deutsch", lang.Name)
	assert.Equal(t, "Beitrag", lang.PostWord)

	lang, err = FromCode("enGB")
	require.NoError(t, err)
	assert.Equal(t, "English (UK)", lang.Name)

	lang, err = FromCode("")
	require.NoError(t, err)
	assert.Equal(t, "en", lang.Code)

	// BCP 47 variants resolve to the base language.
	lang, err = FromCode("pt-BR")
	require.NoError(t, err)
	assert.Equal(t, "pt", lang.Code)

	_, err = FromCode("not a code!")
	assert.Error(t, err)
}

func TestTimespanToNow(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	en := Default
	tests := []struct {
		since time.Time
		want  string
	}{
		{now.Add(-30 * time.Second), "1 minute"},
		{now.Add(-5 * time.Minute), "5 minutes"},
		{now.Add(-90 * time.Minute), "1 hour"},
		{now.Add(-26 * time.Hour), "1 day"},
		{now.AddDate(0, 0, -10), "1 week"},
		{now.AddDate(0, -2, 0), "2 months"},
		{now.AddDate(-3, 0, 0), "3 years"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, en.TimespanToNow(tc.since))
	}
}

func TestTimespanLocalized(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	de, err := FromCode("de")
	require.NoError(t, err)
	assert.Equal(t, "3 Tagen", de.TimespanToNow(now.AddDate(0, 0, -3)))

	fr, err := FromCode("fr")
	require.NoError(t, err)
	assert.Equal(t, "1 heure", fr.TimespanToNow(now.Add(-time.Hour)))
}

func TestRelativeTime(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	fixNow(t, now)

	en := Default
	assert.Equal(t, "2 days ago", en.RelativeTime(now.AddDate(0, 0, -2)))
	assert.Equal(t, "06/01/2024", en.RelativeTime(now.AddDate(0, 0, -14)))

	fr, err := FromCode("fr")
	require.NoError(t, err)
	assert.Equal(t, "il y a 2 jours", fr.RelativeTime(now.AddDate(0, 0, -2)))
	assert.Equal(t, "01/06/2024", fr.RelativeTime(now.AddDate(0, 0, -14)))

	sv, err := FromCode("sv")
	require.NoError(t, err)
	assert.Equal(t, "för 1 timme sedan", sv.RelativeTime(now.Add(-time.Hour)))
	assert.Equal(t, "2024-06-01", sv.RelativeTime(now.AddDate(0, 0, -14)))
}
