// Package eval runs one rule against one message context. Evaluation is a
// sequence of independent predicate gates; the first failing gate stops the
// rule with a not-matched result. External lookups (profile, membership,
// moderation log) are only issued when a rule's predicates require them, and
// an evaluator without a client skips the capability-dependent gates
// entirely, which keeps rule evaluation testable offline.
package eval

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/modmailer/modmailer/internal/host"
	"github.com/modmailer/modmailer/internal/rules"
)

// Input is the message context one rule is checked against.
type Input struct {
	Subreddit string
	Subject   string
	Body      string
	// Username is the conversation participant; always known, even for
	// authors whose profile cannot be resolved.
	Username string
	// Author is the resolved profile, or nil for a shadowbanned or
	// suspended participant.
	Author *host.User
	// Flags of the actor whose message triggered this evaluation.
	AuthorIsModerator bool
	AuthorIsAdmin     bool
}

// MatchContext accumulates the outcome of checking one rule: whether it
// matched, the action payload copied from the rule, the captured match
// substrings for placeholder expansion, the moderation-log context when a
// mod-action predicate matched, and the verbose trace when the rule asked
// for one.
type MatchContext struct {
	Matched      bool
	FriendlyName string
	Priority     int

	Reply        string
	PrivateReply string
	Mute         int
	Archive      bool
	Unban        bool
	ApproveUser  bool
	SetFlair     *rules.FlairChange

	ModActionDate            time.Time
	ModActionTargetPermalink string
	ModActionTargetKind      string // "post" or "comment"

	SubjectMatch []string
	BodyMatch    []string

	IncludeSignoff bool
	VerboseLogs    []string

	verbose bool
}

func (m *MatchContext) trace(format string, args ...any) {
	if m.verbose {
		m.VerboseLogs = append(m.VerboseLogs, fmt.Sprintf(format, args...))
	}
}

// Evaluator checks rules against messages. Client may be nil; the
// capability-dependent predicates (membership, moderation log, subreddit
// visibility, flair) are then skipped.
type Evaluator struct {
	Client host.Client
	Logger *slog.Logger
}

func (e *Evaluator) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

// CheckRule evaluates one rule against one message context. The returned
// MatchContext always carries the rule's action payload so callers can
// report what would have happened; Matched reports whether every gate
// passed. An error is only returned for contract violations (a search
// method or regex that validation should have rejected), never for failed
// predicates or unavailable lookups.
func (e *Evaluator) CheckRule(ctx context.Context, rule *rules.Rule, in Input) (*MatchContext, error) {
	result := &MatchContext{
		FriendlyName:   rule.FriendlyName,
		Priority:       rule.Priority,
		Reply:          rule.Reply,
		PrivateReply:   rule.PrivateReply,
		Mute:           rule.Mute,
		Archive:        rule.Archive,
		Unban:          rule.Unban,
		ApproveUser:    rule.ApproveUser,
		IncludeSignoff: rule.IncludeSignoff(),
		verbose:        rule.VerboseLogs,
	}
	if rule.Author != nil {
		result.SetFlair = rule.Author.SetFlair
	}

	if rule.FriendlyName != "" {
		result.trace("Processing rule %q", rule.FriendlyName)
	}

	targetsModerators := rule.Author != nil && rule.Author.IsModerator != nil && *rule.Author.IsModerator
	if rule.ExemptsModerators() && in.AuthorIsModerator && !targetsModerators {
		result.trace("Rule exempts moderators, and author is a moderator.")
		return result, nil
	}
	if rule.ExemptsAdmins() && in.AuthorIsAdmin {
		result.trace("Rule exempts admins, and author is an admin.")
		return result, nil
	}

	if rule.Subject != nil {
		match, err := rules.Match(in.Subject, rule.Subject, rule.SubjectOptions)
		if err != nil {
			return nil, err
		}
		if match == nil {
			result.trace("Subject does not match.")
			return result, nil
		}
		result.SubjectMatch = match
		result.trace("Subject matched: %q", match)
	}

	if rule.NotSubject != nil {
		match, err := rules.Match(in.Subject, rule.NotSubject, rule.NotSubjectOptions)
		if err != nil {
			return nil, err
		}
		if match == nil {
			result.trace("Negated subject matched, so rule fails.")
			return result, nil
		}
		result.trace("Negated subject did not match, so check passes.")
	}

	if rule.SubjectShorterThan > 0 && utf8.RuneCountInString(in.Subject) >= rule.SubjectShorterThan {
		result.trace("Subject is too long, so rule fails.")
		return result, nil
	}
	if rule.SubjectLongerThan > 0 && utf8.RuneCountInString(in.Subject) <= rule.SubjectLongerThan {
		result.trace("Subject is too short, so rule fails.")
		return result, nil
	}

	if rule.Body != nil {
		match, err := rules.Match(in.Body, rule.Body, rule.BodyOptions)
		if err != nil {
			return nil, err
		}
		if match == nil {
			result.trace("Body does not match.")
			return result, nil
		}
		result.BodyMatch = match
		result.trace("Body matched: %q", match)
	}

	if rule.NotBody != nil {
		match, err := rules.Match(in.Body, rule.NotBody, rule.NotBodyOptions)
		if err != nil {
			return nil, err
		}
		if match == nil {
			result.trace("Negated body matched, so rule fails.")
			return result, nil
		}
		result.trace("Negated body did not match, so check passes.")
	}

	if rule.BodyShorterThan > 0 && utf8.RuneCountInString(in.Body) >= rule.BodyShorterThan {
		result.trace("Body is too long, so rule fails.")
		return result, nil
	}
	if rule.BodyLongerThan > 0 && utf8.RuneCountInString(in.Body) <= rule.BodyLongerThan {
		result.trace("Body is too short, so rule fails.")
		return result, nil
	}

	if rule.SubjectAndBody != nil {
		subjectMatch, err := rules.Match(in.Subject, rule.SubjectAndBody, rule.SubjectAndBodyOptions)
		if err != nil {
			return nil, err
		}
		bodyMatch, err := rules.Match(in.Body, rule.SubjectAndBody, rule.SubjectAndBodyOptions)
		if err != nil {
			return nil, err
		}
		if subjectMatch == nil && bodyMatch == nil {
			result.trace("subject+body does not match.")
			return result, nil
		}
		result.SubjectMatch = subjectMatch
		result.BodyMatch = bodyMatch
		result.trace("subject+body matched.")
	}

	if rule.NotSubjectAndBody != nil {
		subjectOK, err := rules.Match(in.Subject, rule.NotSubjectAndBody, rule.NotSubjectAndBodyOptions)
		if err != nil {
			return nil, err
		}
		bodyOK, err := rules.Match(in.Body, rule.NotSubjectAndBody, rule.NotSubjectAndBodyOptions)
		if err != nil {
			return nil, err
		}
		if subjectOK == nil || bodyOK == nil {
			result.trace("Negated subject+body matched, so rule fails.")
			return result, nil
		}
		result.trace("Negated subject+body did not match, so check passes.")
	}

	if rule.Author != nil {
		ok, err := e.checkAuthor(ctx, rule, in, result)
		if err != nil || !ok {
			return result, err
		}
	}

	if e.Client != nil && rule.ModAction != nil && in.Author != nil {
		ok, err := e.checkModAction(ctx, rule.ModAction, in, result)
		if err != nil || !ok {
			return result, err
		}
	}

	if rule.SubVisibility != "" && e.Client != nil {
		if !e.checkSubVisibility(ctx, rule.SubVisibility, in, result) {
			return result, nil
		}
	}

	result.Matched = true
	return result, nil
}

// checkAuthor runs the author predicate block. Profile-dependent checks only
// run when a resolved profile exists; name checks always run; a missing
// profile combined with any profile-dependent predicate fails the rule.
func (e *Evaluator) checkAuthor(ctx context.Context, rule *rules.Rule, in Input, result *MatchContext) (bool, error) {
	author := rule.Author

	if in.Author != nil {
		if !e.checkThresholds(author, in, result) {
			return false, nil
		}

		if e.Client != nil && author.IsBanned != nil {
			banned, err := e.Client.IsBanned(ctx, in.Subreddit, in.Username)
			if err != nil {
				e.logger().Warn("banned lookup failed", "user", in.Username, "err", err)
				result.trace("Banned status could not be verified, so rule fails.")
				return false, nil
			}
			if *author.IsBanned != banned {
				result.trace("User banned check failed, skipping rule.")
				return false, nil
			}
			result.trace("User banned check matched.")
		}

		if e.Client != nil && author.IsContributor != nil {
			contributor, err := e.Client.IsContributor(ctx, in.Subreddit, in.Author.Username)
			if err != nil {
				e.logger().Warn("contributor lookup failed", "user", in.Username, "err", err)
				result.trace("Approved-user status could not be verified, so rule fails.")
				return false, nil
			}
			if *author.IsContributor != contributor {
				result.trace("Approved user check failed, skipping rule.")
				return false, nil
			}
			result.trace("Approved user check matched.")
		}

		if author.IsModerator != nil {
			if *author.IsModerator != in.AuthorIsModerator {
				result.trace("Moderator check failed, skipping rule.")
				return false, nil
			}
			result.trace("Moderator check passed.")
		}

		if ok, err := e.checkFlair(ctx, author, in, result); err != nil || !ok {
			return false, err
		}
	}

	if author.Name != nil {
		match, err := rules.Match(in.Username, author.Name, author.NameOptions)
		if err != nil {
			return false, err
		}
		if match == nil {
			result.trace("Author name does not match.")
			return false, nil
		}
		result.trace("Author name matches.")
	}

	if author.NotName != nil {
		match, err := rules.Match(in.Username, author.NotName, author.NotNameOptions)
		if err != nil {
			return false, err
		}
		if match == nil {
			result.trace("Negated author name matched, so rule fails.")
			return false, nil
		}
		result.trace("Negated author name did not match, so check passes.")
	}

	if author.IsShadowbanned != nil {
		if *author.IsShadowbanned != (in.Author == nil) {
			result.trace("Shadowban check failed, skipping rule.")
			return false, nil
		}
		result.trace("Shadowban check passed.")
	}

	if in.Author == nil && hasProfileDependentChecks(author) {
		result.trace("Author profile is unavailable and profile-dependent checks exist.")
		return false, nil
	}

	return true, nil
}

// checkThresholds combines whichever karma/age thresholds are configured,
// with AND by default and OR when satisfy_any_threshold is set.
func (e *Evaluator) checkThresholds(author *rules.AuthorChecks, in Input, result *MatchContext) bool {
	var checks []bool
	if author.PostKarma != "" {
		ok := rules.MeetsNumericThreshold(in.Author.LinkKarma, author.PostKarma)
		result.trace("Post karma threshold matched: %t", ok)
		checks = append(checks, ok)
	}
	if author.CommentKarma != "" {
		ok := rules.MeetsNumericThreshold(in.Author.CommentKarma, author.CommentKarma)
		result.trace("Comment karma threshold matched: %t", ok)
		checks = append(checks, ok)
	}
	if author.CombinedKarma != "" {
		ok := rules.MeetsNumericThreshold(in.Author.LinkKarma+in.Author.CommentKarma, author.CombinedKarma)
		result.trace("Combined karma threshold matched: %t", ok)
		checks = append(checks, ok)
	}
	if author.AccountAge != "" {
		ok := rules.MeetsDateThreshold(in.Author.CreatedAt, author.AccountAge, "")
		result.trace("Account age threshold matched: %t", ok)
		checks = append(checks, ok)
	}

	if len(checks) == 0 {
		return true
	}

	passed := 0
	for _, ok := range checks {
		if ok {
			passed++
		}
	}
	result.trace("%d of %d threshold checks passed.", passed, len(checks))

	if author.SatisfyAnyThreshold {
		if passed == 0 {
			result.trace("satisfy_any_threshold is true and no threshold passed.")
			return false
		}
	} else if passed < len(checks) {
		result.trace("satisfy_any_threshold is unset and a threshold failed.")
		return false
	}
	return true
}

// checkFlair runs the flair text/class predicates. They need a fetched flair
// object; a configured flair check against a flairless user fails the rule.
func (e *Evaluator) checkFlair(ctx context.Context, author *rules.AuthorChecks, in Input, result *MatchContext) (bool, error) {
	hasFlairChecks := author.FlairText != nil || author.NotFlairText != nil ||
		author.FlairCSSClass != nil || author.NotFlairCSSClass != nil
	if !hasFlairChecks || e.Client == nil {
		return true, nil
	}

	flair, err := e.Client.UserFlair(ctx, in.Subreddit, in.Author.Username)
	if err != nil {
		e.logger().Warn("flair lookup failed", "user", in.Username, "err", err)
		result.trace("Flair could not be fetched, so rule fails.")
		return false, nil
	}
	if flair == nil {
		result.trace("User has no flair, but flair checks exist. Skipping rule.")
		return false, nil
	}

	for _, check := range []struct {
		name    string
		input   string
		values  []string
		options *rules.SearchOptions
	}{
		{"Flair text", flair.Text, author.FlairText, author.FlairTextOptions},
		{"Negated flair text", flair.Text, author.NotFlairText, author.NotFlairTextOptions},
		{"Flair CSS class", flair.CSSClass, author.FlairCSSClass, author.FlairCSSClassOptions},
		{"Negated flair CSS class", flair.CSSClass, author.NotFlairCSSClass, author.NotFlairCSSClassOptions},
	} {
		if check.values == nil {
			continue
		}
		match, err := rules.Match(check.input, check.values, check.options)
		if err != nil {
			return false, err
		}
		if match == nil {
			result.trace("%s check failed.", check.name)
			return false, nil
		}
	}

	result.trace("Flair matched.")
	return true, nil
}

// checkModAction fetches the moderation log (one query per requested action
// type, unioned) and filters it down to entries about the participant that
// satisfy the recency, reason and queue-membership constraints. The most
// recent surviving entry's timestamp and target are captured for
// placeholders.
func (e *Evaluator) checkModAction(ctx context.Context, check *rules.ModActionCheck, in Input, result *MatchContext) (bool, error) {
	const logFetchLimit = 200

	var entries []host.ModAction
	types := check.ModActionType
	if len(types) == 0 {
		types = []string{""}
	}
	for _, actionType := range types {
		fetched, err := e.Client.ModerationLog(ctx, host.ModLogQuery{
			Subreddit:  in.Subreddit,
			Moderators: check.ModeratorName,
			Type:       actionType,
			Limit:      logFetchLimit,
		})
		if err != nil {
			e.logger().Warn("moderation log fetch failed", "type", actionType, "err", err)
			result.trace("Moderation log could not be fetched, so rule fails.")
			return false, nil
		}
		entries = append(entries, fetched...)
	}

	filtered := entries[:0]
	for _, entry := range entries {
		if entry.TargetAuthor == in.Author.Username {
			filtered = append(filtered, entry)
		}
	}
	entries = filtered

	if check.ActionWithin != "" {
		filtered = entries[:0]
		for _, entry := range entries {
			if rules.MeetsDateThreshold(entry.CreatedAt, check.ActionWithin, "<") {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if check.ActionReason != nil {
		filtered = entries[:0]
		for _, entry := range entries {
			detailsMatch, err := rules.Match(entry.Details, check.ActionReason, check.ActionReasonOptions)
			if err != nil {
				return false, err
			}
			descriptionMatch, err := rules.Match(entry.Description, check.ActionReason, check.ActionReasonOptions)
			if err != nil {
				return false, err
			}
			if (entry.Details != "" && detailsMatch != nil) || (entry.Description != "" && descriptionMatch != nil) {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if check.StillInQueue != nil && *check.StillInQueue {
		queueIDs, err := e.Client.ModQueueIDs(ctx, in.Subreddit)
		if err != nil {
			e.logger().Warn("mod queue fetch failed", "err", err)
			result.trace("Moderation queue could not be fetched, so rule fails.")
			return false, nil
		}
		queued := make(map[string]bool, len(queueIDs))
		for _, id := range queueIDs {
			queued[id] = true
		}
		filtered = entries[:0]
		for _, entry := range entries {
			if entry.TargetID != "" && queued[entry.TargetID] {
				filtered = append(filtered, entry)
			}
		}
		entries = filtered
	}

	if len(entries) == 0 {
		result.trace("No matching mod log entry.")
		return false, nil
	}
	result.trace("Found %d matching mod log entries.", len(entries))

	newest := entries[0]
	result.ModActionDate = newest.CreatedAt
	result.ModActionTargetPermalink = newest.TargetPermalink
	switch {
	case host.IsCommentID(newest.TargetID):
		result.ModActionTargetKind = "comment"
	case host.IsPostID(newest.TargetID):
		result.ModActionTargetKind = "post"
	}
	return true, nil
}

// checkSubVisibility compares a required visibility tier against the actual
// subreddit type: "public" rejects every non-public tier, "private" accepts
// private and employees-only, "restricted" requires an exact match.
func (e *Evaluator) checkSubVisibility(ctx context.Context, required string, in Input, result *MatchContext) bool {
	actual, err := e.Client.SubredditType(ctx, in.Subreddit)
	if err != nil {
		e.logger().Warn("subreddit type lookup failed", "err", err)
		result.trace("Subreddit visibility could not be verified, so rule fails.")
		return false
	}

	ok := false
	switch required {
	case rules.VisibilityPublic:
		ok = actual != host.SubredditPrivate && actual != host.SubredditRestricted && actual != host.SubredditEmployeesOnly
	case rules.VisibilityPrivate:
		ok = actual == host.SubredditPrivate || actual == host.SubredditEmployeesOnly
	case rules.VisibilityRestricted:
		ok = actual == host.SubredditRestricted
	}
	if !ok {
		result.trace("Subreddit is %s, not %s.", actual, required)
		return false
	}
	result.trace("Subreddit visibility %s matched.", required)
	return true
}

func hasProfileDependentChecks(author *rules.AuthorChecks) bool {
	return author.AccountAge != "" ||
		author.PostKarma != "" ||
		author.CommentKarma != "" ||
		author.CombinedKarma != "" ||
		author.FlairText != nil ||
		author.FlairCSSClass != nil ||
		author.IsBanned != nil ||
		author.IsContributor != nil
}
