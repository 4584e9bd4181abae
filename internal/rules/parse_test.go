package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleValid(t *testing.T) {
	input := `---
subject: [Foo]
mute: 28
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, StringOrList{"Foo"}, parsed[0].Subject)
	assert.Equal(t, 28, parsed[0].Mute)
}

func TestParseSubjectAndSubjectRegexConflict(t *testing.T) {
	input := `---
subject: [Foo]
subject_regex: [Bar]
mute: 28
---`
	_, err := Parse(input)
	assert.Error(t, err)
}

func TestParseNonIntegerMute(t *testing.T) {
	input := `---
subject: [Foo]
mute: 1.4
---`
	_, err := Parse(input)
	assert.Error(t, err)
}

func TestParseUnknownKey(t *testing.T) {
	input := `---
subject: [Foo]
subreddit_name: testsub
mute: 3
---`
	_, err := Parse(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "subreddit_name")
}

func TestParseRegex(t *testing.T) {
	valid := `---
subject_regex: ["abc[de]f"]
mute: 28
---`
	parsed, err := Parse(valid)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, MethodRegex, parsed[0].SubjectOptions.Method())

	invalid := `---
subject_regex: ["abc[def"]
mute: 28
---`
	_, err = Parse(invalid)
	assert.Error(t, err)
}

func TestParseScalarCoercion(t *testing.T) {
	input := `---
subject: Hello
mute: 28
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, StringOrList{"Hello"}, parsed[0].Subject)
}

func TestParseNumericComparator(t *testing.T) {
	valid := `---
subject: Hello
author:
    post_karma: "> 100"
mute: 28
---`
	_, err := Parse(valid)
	assert.NoError(t, err)

	invalid := `---
subject: Hello
author:
    post_karma: "> banana"
mute: 28
---`
	_, err = Parse(invalid)
	assert.Error(t, err)
}

func TestParseDateComparator(t *testing.T) {
	valid := `---
subject: Hello
author:
    account_age: "15 minutes"
mute: 28
---`
	_, err := Parse(valid)
	assert.NoError(t, err)

	invalid := `---
subject: Hello
author:
    account_age: "15 minues"
mute: 28
---`
	_, err = Parse(invalid)
	assert.Error(t, err)
}

func TestParseModActionType(t *testing.T) {
	valid := `---
subject: Hello
mod_action:
    mod_action_type: "banuser"
    action_within: "15 minutes"
mute: 28
---`
	_, err := Parse(valid)
	assert.NoError(t, err)

	invalid := `---
subject: Hello
mod_action:
    mod_action_type: "huguser"
    action_within: "15 minutes"
mute: 28
---`
	_, err = Parse(invalid)
	assert.Error(t, err)
}

func TestParseNegatedSubjectShorthand(t *testing.T) {
	input := `---
~subject: Hello
mod_action:
    mod_action_type: "banuser"
    action_within: "15 minutes"
mute: 28
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, StringOrList{"Hello"}, parsed[0].NotSubject)
	require.NotNil(t, parsed[0].NotSubjectOptions)
	assert.True(t, parsed[0].NotSubjectOptions.Negate)
}

func TestParseNegationNotAllowedOnModActionType(t *testing.T) {
	input := `---
subject: Hello
mod_action:
    ~mod_action_type: "banuser"
    action_within: "15 minutes"
mute: 28
---`
	_, err := Parse(input)
	assert.Error(t, err)
}

func TestParseComments(t *testing.T) {
	input := `---
subject: Hello # This is stripped by the YAML parser.
mute: 28
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, StringOrList{"Hello"}, parsed[0].Subject)
}

func TestParseShorthandOptions(t *testing.T) {
	input := `---
subject (full-exact, case-sensitive): [Hello]
reply: hi
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	opts := parsed[0].SubjectOptions
	require.NotNil(t, opts)
	assert.Equal(t, MethodFullExact, opts.SearchMethod)
	assert.True(t, opts.CaseSensitive)
	assert.False(t, opts.Negate)
}

func TestParseCanonicalOptionsUntouched(t *testing.T) {
	// Explicit field + field_options input decodes as written; the
	// normalizer leaves already-canonical keys alone.
	canonical := `---
subject: [Hello]
subject_options:
    search_method: regex
    negate: false
reply: hi
---`
	parsed, err := Parse(canonical)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	require.NotNil(t, parsed[0].SubjectOptions)
	assert.Equal(t, MethodRegex, parsed[0].SubjectOptions.SearchMethod)
	assert.False(t, parsed[0].SubjectOptions.CaseSensitive)
	assert.False(t, parsed[0].SubjectOptions.Negate)

	// The canonical spelling and the equivalent shorthand produce the
	// same rule.
	shorthand := `---
subject (regex): [Hello]
reply: hi
---`
	fromShorthand, err := Parse(shorthand)
	require.NoError(t, err)
	require.Len(t, fromShorthand, 1)
	assert.Equal(t, fromShorthand[0], parsed[0])
}

func TestParseCanonicalNegatedFieldWithExplicitOptions(t *testing.T) {
	// Without options, a canonical not-field gets negate defaulted on.
	defaulted := `---
notsubject: [Hello]
reply: hi
---`
	parsed, err := Parse(defaulted)
	require.NoError(t, err)
	require.NotNil(t, parsed[0].NotSubjectOptions)
	assert.True(t, parsed[0].NotSubjectOptions.Negate)

	// Explicit options are honored verbatim, including an omitted negate.
	explicit := `---
notsubject: [Hello]
notsubject_options:
    search_method: full-exact
reply: hi
---`
	parsed, err = Parse(explicit)
	require.NoError(t, err)
	require.NotNil(t, parsed[0].NotSubjectOptions)
	assert.Equal(t, MethodFullExact, parsed[0].NotSubjectOptions.SearchMethod)
	assert.False(t, parsed[0].NotSubjectOptions.Negate)
}

func TestParseShorthandUnknownOption(t *testing.T) {
	input := `---
subject (fuzzy): [Hello]
reply: hi
---`
	_, err := Parse(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fuzzy")
}

func TestParseShorthandTwoMethods(t *testing.T) {
	input := `---
subject (includes, regex): [Hello]
reply: hi
---`
	_, err := Parse(input)
	assert.Error(t, err)
}

func TestParseSubjectPlusBodyFolding(t *testing.T) {
	input := `---
subject+body: [refund]
reply: hi
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, StringOrList{"refund"}, parsed[0].SubjectAndBody)

	input = `---
~body+subject: [refund]
reply: hi
---`
	parsed, err = Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	assert.Equal(t, StringOrList{"refund"}, parsed[0].NotSubjectAndBody)
	require.NotNil(t, parsed[0].NotSubjectAndBodyOptions)
	assert.True(t, parsed[0].NotSubjectAndBodyOptions.Negate)
}

func TestParseAuthorShorthand(t *testing.T) {
	input := `---
author:
    ~flair_text (starts-with): [Verified]
reply: hi
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 1)
	author := parsed[0].Author
	require.NotNil(t, author)
	assert.Equal(t, StringOrList{"Verified"}, author.NotFlairText)
	require.NotNil(t, author.NotFlairTextOptions)
	assert.Equal(t, MethodStartsWith, author.NotFlairTextOptions.SearchMethod)
	assert.True(t, author.NotFlairTextOptions.Negate)
}

func TestParseMultipleDocuments(t *testing.T) {
	input := `---
subject: [first]
reply: one
---
body: [second]
reply: two
priority: 5
---`
	parsed, err := Parse(input)
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, StringOrList{"first"}, parsed[0].Subject)
	assert.Equal(t, 5, parsed[1].Priority)
}

func TestParseAllOrNothing(t *testing.T) {
	input := `---
subject: [good]
reply: fine
---
subject: [bad]
bogus_key: true
reply: nope
---`
	parsed, err := Parse(input)
	require.Error(t, err)
	assert.Nil(t, parsed)
	assert.Contains(t, err.Error(), "rule 2")
}

func TestParseEmptyInput(t *testing.T) {
	parsed, err := Parse("")
	require.NoError(t, err)
	assert.Nil(t, parsed)

	parsed, err = Parse("   \n\n")
	require.NoError(t, err)
	assert.Nil(t, parsed)
}

func TestValidateNoAction(t *testing.T) {
	input := `---
subject: [Hello]
---`
	_, err := Parse(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no actions")

	// A rule targeting moderators may omit actions.
	modRule := `---
subject: [Hello]
author:
    is_moderator: true
moderators_exempt: false
archive: true
---`
	_, err = Parse(modRule)
	assert.NoError(t, err)
}

func TestValidateUnbanRequiresBannedCheck(t *testing.T) {
	input := `---
subject: [Hello]
reply: hi
unban: true
---`
	_, err := Parse(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unban")

	withCheck := `---
subject: [Hello]
reply: hi
unban: true
author:
    is_banned: true
---`
	_, err = Parse(withCheck)
	assert.NoError(t, err)
}

func TestValidateExemptionContradiction(t *testing.T) {
	input := `---
subject: [Hello]
reply: hi
moderators_exempt: true
author:
    is_moderator: true
---`
	_, err := Parse(input)
	assert.Error(t, err)

	// The default exemption does not conflict with targeting moderators.
	defaulted := `---
subject: [Hello]
reply: hi
author:
    is_moderator: true
---`
	_, err = Parse(defaulted)
	assert.NoError(t, err)
}

func TestValidateParticipantModeratorConflict(t *testing.T) {
	input := `---
subject: [Hello]
reply: hi
author:
    is_participant: true
    is_moderator: true
---`
	_, err := Parse(input)
	assert.Error(t, err)
}

func TestValidateMuteLength(t *testing.T) {
	input := `---
subject: [Hello]
mute: 5
---`
	_, err := Parse(input)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mute")
}

func TestValidateModActionNeedsTypeOrReason(t *testing.T) {
	input := `---
subject: [Hello]
reply: hi
mod_action:
    action_within: "15 minutes"
---`
	_, err := Parse(input)
	assert.Error(t, err)
}

func TestParseFlairTemplateID(t *testing.T) {
	valid := `---
subject: [Hello]
reply: hi
author:
    set_flair:
        set_flair_template_id: "12345678-1234-1234-1234-123456789012"
---`
	_, err := Parse(valid)
	assert.NoError(t, err)

	invalid := `---
subject: [Hello]
reply: hi
author:
    set_flair:
        set_flair_template_id: "not-a-uuid"
---`
	_, err = Parse(invalid)
	assert.Error(t, err)
}

func TestParseEmptyMatchString(t *testing.T) {
	input := `---
subject: [""]
reply: hi
---`
	_, err := Parse(input)
	assert.Error(t, err)
}
