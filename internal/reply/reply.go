// Package reply expands the placeholder tokens a rule's reply text may carry
// into values from the match context: author and subreddit names, captured
// match substrings, and the mod-action timing and target tokens.
package reply

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/modmailer/modmailer/internal/eval"
	"github.com/modmailer/modmailer/internal/i18n"
)

// matchPlaceholderRe recognizes the {{match}} token family:
// {{match}}, {{match-subject}}, {{match-body}}, {{match-2}},
// {{match-subject-3}} and so on. Indexes are 1-based.
var matchPlaceholderRe = regexp.MustCompile(`\{\{match(?:-(subject|body))?(?:-(\d+))?\}\}`)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"{", `\{`,
	"}", `\}`,
	"[", `\[`,
	"]", `\]`,
	"(", `\(`,
	")", `\)`,
	"#", `\#`,
	"+", `\+`,
	"-", `\-`,
	".", `\.`,
	"!", `\!`,
)

// EscapeMarkdown backslash-escapes markdown control characters so usernames
// and subreddit names render literally inside reply markdown.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// Options carries the non-rule inputs of placeholder expansion.
type Options struct {
	Username  string
	Subreddit string
	Language  *i18n.Language
	// PostWord and CommentWord override the language's nouns for the
	// {{mod_action_target_kind}} token when non-empty.
	PostWord    string
	CommentWord string
}

// Render expands every placeholder in input against the match context. The
// mod-action tokens are only substituted when the corresponding context is
// present; an unsubstituted token is left verbatim. Match tokens always
// substitute, with the empty string when the referenced capture is absent.
func Render(input string, match *eval.MatchContext, opts Options) string {
	out := input

	out = strings.ReplaceAll(out, "{{author}}", EscapeMarkdown(opts.Username))
	out = strings.ReplaceAll(out, "{{subreddit}}", EscapeMarkdown(opts.Subreddit))

	lang := opts.Language
	if lang == nil {
		lang = i18n.Default
	}

	if !match.ModActionDate.IsZero() {
		out = strings.ReplaceAll(out, "{{mod_action_timespan_to_now}}", lang.TimespanToNow(match.ModActionDate))
		out = strings.ReplaceAll(out, "{{mod_action_relative_time}}", lang.RelativeTime(match.ModActionDate))
	}
	if match.ModActionTargetPermalink != "" {
		out = strings.ReplaceAll(out, "{{mod_action_target_permalink}}", match.ModActionTargetPermalink)
	}
	if match.ModActionTargetKind != "" {
		out = strings.ReplaceAll(out, "{{mod_action_target_kind}}", targetKindWord(match.ModActionTargetKind, lang, opts))
	}

	return expandMatchPlaceholders(out, match)
}

func targetKindWord(kind string, lang *i18n.Language, opts Options) string {
	if kind == "post" {
		if opts.PostWord != "" {
			return opts.PostWord
		}
		return lang.PostWord
	}
	if opts.CommentWord != "" {
		return opts.CommentWord
	}
	return lang.CommentWord
}

// expandMatchPlaceholders repeatedly replaces the leftmost match token and
// rescans, so every distinct token spelling gets substituted. The iteration
// cap bounds the loop when a substituted value itself spells a token.
func expandMatchPlaceholders(input string, match *eval.MatchContext) string {
	out := input
	for i := 0; i < 100; i++ {
		token := matchPlaceholderRe.FindString(out)
		if token == "" {
			break
		}
		out = strings.ReplaceAll(out, token, matchPlaceholderText(token, match))
	}
	return out
}

func matchPlaceholderText(token string, match *eval.MatchContext) string {
	parts := matchPlaceholderRe.FindStringSubmatch(token)
	if parts == nil {
		return ""
	}

	var captures []string
	switch parts[1] {
	case "subject":
		captures = match.SubjectMatch
	case "body":
		captures = match.BodyMatch
	default:
		captures = match.SubjectMatch
		if captures == nil {
			captures = match.BodyMatch
		}
	}
	if captures == nil {
		return ""
	}

	index := 0
	if parts[2] != "" {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return ""
		}
		index = n - 1
	}
	if index < 0 || index >= len(captures) {
		return ""
	}
	return captures[index]
}
