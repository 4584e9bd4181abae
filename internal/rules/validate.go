package rules

import (
	"fmt"
	"regexp"
)

// ValidateRule checks the cross-field consistency of a single rule. Checks
// run in a fixed order and the first violation is returned. Structural and
// per-field constraints are assumed to have passed already.
func ValidateRule(rule *Rule) error {
	if rule.Reply == "" && rule.PrivateReply == "" && rule.Mute == 0 && !boolIs(ruleAuthorIsModerator(rule), true) {
		return fmt.Errorf("no actions specified: rule must reply, private_reply or mute")
	}

	for _, f := range ruleMatchFields(rule) {
		if f.options.Method() != MethodRegex {
			continue
		}
		for _, expr := range f.values {
			if _, err := regexp.Compile(expr); err != nil {
				return fmt.Errorf("invalid %s regex %q: %w", f.name, expr, err)
			}
		}
	}

	if rule.ModAction != nil && len(rule.ModAction.ModActionType) == 0 && len(rule.ModAction.ActionReason) == 0 {
		return fmt.Errorf("mod_action must have an action type or an action reason (or both)")
	}

	if rule.Unban && !boolIs(ruleAuthorIsBanned(rule), true) {
		return fmt.Errorf("unban requires an author check for is_banned = true")
	}

	if boolIs(rule.ModeratorsExempt, true) && boolIs(ruleAuthorIsModerator(rule), true) {
		return fmt.Errorf("moderators cannot be exempt while also requiring the author to be a moderator")
	}

	if rule.Author != nil && boolIs(rule.Author.IsParticipant, true) && boolIs(rule.Author.IsModerator, true) {
		return fmt.Errorf("is_participant and is_moderator cannot both be required true")
	}

	if rule.Mute != 0 && rule.Mute != 3 && rule.Mute != 7 && rule.Mute != 28 {
		return fmt.Errorf("mute must be 3, 7 or 28 days, got %d", rule.Mute)
	}

	return nil
}

func ruleAuthorIsBanned(rule *Rule) *bool {
	if rule.Author == nil {
		return nil
	}
	return rule.Author.IsBanned
}

func ruleAuthorIsModerator(rule *Rule) *bool {
	if rule.Author == nil {
		return nil
	}
	return rule.Author.IsModerator
}

func boolIs(b *bool, want bool) bool {
	return b != nil && *b == want
}
