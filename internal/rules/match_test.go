package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchDefaultsToCaseInsensitiveIncludes(t *testing.T) {
	match, err := Match("I need HELP please", []string{"help"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"help"}, match)

	match, err = Match("all good", []string{"help"}, nil)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchFirstCandidateWins(t *testing.T) {
	match, err := Match("refund or ban appeal", []string{"ban appeal", "refund"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ban appeal"}, match)
}

func TestMatchRegexCaptures(t *testing.T) {
	match, err := Match("Order 12345 issue", []string{`order (\d+)`}, &SearchOptions{SearchMethod: MethodRegex})
	require.NoError(t, err)
	require.Len(t, match, 2)
	assert.Equal(t, "Order 12345", match[0])
	assert.Equal(t, "12345", match[1])
}

func TestMatchRegexCaseSensitivity(t *testing.T) {
	opts := &SearchOptions{SearchMethod: MethodRegex, CaseSensitive: true}
	match, err := Match("order 99", []string{`Order (\d+)`}, opts)
	require.NoError(t, err)
	assert.Nil(t, match)

	opts.CaseSensitive = false
	match, err = Match("order 99", []string{`Order (\d+)`}, opts)
	require.NoError(t, err)
	require.NotNil(t, match)
}

func TestMatchNegation(t *testing.T) {
	opts := &SearchOptions{Negate: true}

	match, err := Match("all good", []string{"help"}, opts)
	require.NoError(t, err)
	assert.Equal(t, []string{""}, match, "negated miss passes with the empty sentinel")

	match, err = Match("I need help", []string{"help"}, opts)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestMatchEmptyCandidates(t *testing.T) {
	match, err := Match("anything", nil, nil)
	require.NoError(t, err)
	assert.Nil(t, match)

	match, err = Match("anything", nil, &SearchOptions{Negate: true})
	require.NoError(t, err)
	assert.Equal(t, []string{""}, match)
}

func TestMatchUnknownMethod(t *testing.T) {
	_, err := Match("anything", []string{"x"}, &SearchOptions{SearchMethod: "fuzzy"})
	assert.Error(t, err)
}

func TestMatchInvalidRegex(t *testing.T) {
	_, err := Match("anything", []string{"abc[def"}, &SearchOptions{SearchMethod: MethodRegex})
	assert.Error(t, err)
}
