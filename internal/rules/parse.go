package rules

import (
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Allowed property sets. The schema is closed-world: a key outside these
// sets anywhere in a rule aborts the whole parse.
var (
	ruleKeys = keySet(
		"rule_friendly_name", "is_reply", "is_first_user_reply",
		"subject", "subject_options", "notsubject", "notsubject_options",
		"body", "body_options", "notbody", "notbody_options",
		"body_shorter_than", "body_longer_than",
		"subjectandbody", "subjectandbody_options",
		"notsubjectandbody", "notsubjectandbody_options",
		"subject_shorter_than", "subject_longer_than",
		"moderators_exempt", "admins_exempt",
		"author", "mod_action", "sub_visibility", "priority",
		"reply", "private_reply", "mute", "archive", "unban",
		"approve_user", "verbose_logs", "signoff",
	)
	authorKeys = keySet(
		"name", "name_options", "notname", "notname_options",
		"post_karma", "comment_karma", "combined_karma", "account_age",
		"satisfy_any_threshold",
		"flair_text", "flair_text_options",
		"notflair_text", "notflair_text_options",
		"flair_css_class", "flair_css_class_options",
		"notflair_css_class", "notflair_css_class_options",
		"is_participant", "is_contributor", "is_moderator",
		"is_shadowbanned", "is_banned", "set_flair",
	)
	modActionKeys = keySet(
		"moderator_name", "mod_action_type", "action_within",
		"action_reason", "action_reason_options", "still_in_queue",
	)
	optionsKeys  = keySet("search_method", "case_sensitive", "negate")
	setFlairKeys = keySet("override_flair", "set_flair_text", "set_flair_css_class", "set_flair_template_id")
)

var flairTemplateIDRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func keySet(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// Parse reads a multi-document YAML rule configuration ("---"-delimited, one
// rule per document) and returns the validated rule list. Parsing is
// all-or-nothing: the first structural, schema or semantic violation aborts
// with an error naming the offending rule and field, and no partial rule
// list is ever returned.
func Parse(text string) ([]Rule, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	dec := yaml.NewDecoder(strings.NewReader(text))
	var parsed []Rule
	for {
		var doc yaml.Node
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parsing rules: %w", err)
		}

		node := documentContent(&doc)
		if node == nil {
			continue
		}

		rule, err := parseRuleNode(node)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", len(parsed)+1, err)
		}
		parsed = append(parsed, *rule)
	}

	for i := range parsed {
		if err := ValidateRule(&parsed[i]); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i+1, err)
		}
	}

	return parsed, nil
}

// documentContent unwraps a document node and drops empty documents (a
// trailing "---" produces one).
func documentContent(doc *yaml.Node) *yaml.Node {
	node := doc
	if node.Kind == yaml.DocumentNode {
		if len(node.Content) == 0 {
			return nil
		}
		node = node.Content[0]
	}
	if node.Kind == 0 {
		return nil
	}
	if node.Kind == yaml.ScalarNode && node.Tag == "!!null" {
		return nil
	}
	return node
}

func parseRuleNode(node *yaml.Node) (*Rule, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("rule must be a mapping")
	}

	// Shorthand normalization runs across the rule root and the author and
	// mod_action blocks before anything is decoded.
	if err := normalizeMapping(node); err != nil {
		return nil, err
	}
	for _, scope := range []string{"author", "mod_action"} {
		if child := mappingValue(node, scope); child != nil {
			if err := normalizeMapping(child); err != nil {
				return nil, err
			}
		}
	}

	if err := checkKnownKeys(node, ruleKeys, ""); err != nil {
		return nil, err
	}
	if author := mappingValue(node, "author"); author != nil {
		if err := checkKnownKeys(author, authorKeys, "author"); err != nil {
			return nil, err
		}
		if setFlair := mappingValue(author, "set_flair"); setFlair != nil {
			if err := checkKnownKeys(setFlair, setFlairKeys, "author.set_flair"); err != nil {
				return nil, err
			}
		}
	}
	if modAction := mappingValue(node, "mod_action"); modAction != nil {
		if err := checkKnownKeys(modAction, modActionKeys, "mod_action"); err != nil {
			return nil, err
		}
	}

	var rule Rule
	if err := node.Decode(&rule); err != nil {
		return nil, err
	}

	if err := checkFieldConstraints(&rule); err != nil {
		return nil, err
	}

	applyNegatedDefaults(&rule)
	return &rule, nil
}

// mappingValue returns the value node for key, or nil when absent or not a
// mapping.
func mappingValue(node *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Kind == yaml.ScalarNode && node.Content[i].Value == key {
			value := node.Content[i+1]
			if value.Kind == yaml.MappingNode {
				return value
			}
			return nil
		}
	}
	return nil
}

// checkKnownKeys enforces the closed-world schema for one mapping scope,
// including the nested *_options blocks.
func checkKnownKeys(node *yaml.Node, allowed map[string]bool, path string) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if key.Kind != yaml.ScalarNode {
			return fmt.Errorf("%s has a non-scalar key", scopeLabel(path))
		}
		if !allowed[key.Value] {
			return fmt.Errorf("%s has invalid property %q", scopeLabel(path), key.Value)
		}
		if strings.HasSuffix(key.Value, "_options") && node.Content[i+1].Kind == yaml.MappingNode {
			optPath := key.Value
			if path != "" {
				optPath = path + "." + key.Value
			}
			if err := checkKnownKeys(node.Content[i+1], optionsKeys, optPath); err != nil {
				return err
			}
		}
	}
	return nil
}

func scopeLabel(path string) string {
	if path == "" {
		return "rule"
	}
	return path
}

// checkFieldConstraints applies the per-field enum and pattern constraints
// that the structural schema declares: search-method enums, comparator
// grammars, the flair-template UUID shape, the moderation-action-type enum,
// the subreddit-visibility enum, and non-empty match strings.
func checkFieldConstraints(rule *Rule) error {
	for _, f := range ruleMatchFields(rule) {
		if err := checkSearchOptions(f.name+"_options", f.options); err != nil {
			return err
		}
		for _, s := range f.values {
			if s == "" {
				return fmt.Errorf("%s must not contain empty strings", f.name)
			}
		}
	}

	if author := rule.Author; author != nil {
		for field, value := range map[string]string{
			"author.post_karma":     author.PostKarma,
			"author.comment_karma":  author.CommentKarma,
			"author.combined_karma": author.CombinedKarma,
		} {
			if value != "" && !numericComparatorRe.MatchString(value) {
				return fmt.Errorf("%s is not a valid numeric comparator: %q", field, value)
			}
		}
		if author.AccountAge != "" && !dateComparatorRe.MatchString(author.AccountAge) {
			return fmt.Errorf("author.account_age is not a valid date comparator: %q", author.AccountAge)
		}
		if sf := author.SetFlair; sf != nil && sf.SetFlairTemplateID != "" && !flairTemplateIDRe.MatchString(sf.SetFlairTemplateID) {
			return fmt.Errorf("author.set_flair.set_flair_template_id is not a valid flair template id: %q", sf.SetFlairTemplateID)
		}
	}

	if ma := rule.ModAction; ma != nil {
		for _, actionType := range ma.ModActionType {
			if !isModActionType(actionType) {
				return fmt.Errorf("mod_action.mod_action_type has unknown action type %q", actionType)
			}
		}
		if ma.ActionWithin != "" && !dateComparatorRe.MatchString(ma.ActionWithin) {
			return fmt.Errorf("mod_action.action_within is not a valid date comparator: %q", ma.ActionWithin)
		}
	}

	switch rule.SubVisibility {
	case "", VisibilityPublic, VisibilityPrivate, VisibilityRestricted:
	default:
		return fmt.Errorf("sub_visibility must be public, private or restricted, got %q", rule.SubVisibility)
	}

	return nil
}

func checkSearchOptions(field string, options *SearchOptions) error {
	if options == nil || options.SearchMethod == "" {
		return nil
	}
	if !isSearchMethod(string(options.SearchMethod)) {
		return fmt.Errorf("%s has unknown search method %q", field, options.SearchMethod)
	}
	return nil
}

func isModActionType(s string) bool {
	for _, t := range ModActionTypes {
		if t == s {
			return true
		}
	}
	return false
}

// applyNegatedDefaults gives "not"-prefixed fields written in canonical form
// (no shorthand, no explicit options) the negated-match semantics the field
// name implies.
func applyNegatedDefaults(rule *Rule) {
	negated := func() *SearchOptions { return &SearchOptions{Negate: true} }
	if rule.NotSubject != nil && rule.NotSubjectOptions == nil {
		rule.NotSubjectOptions = negated()
	}
	if rule.NotBody != nil && rule.NotBodyOptions == nil {
		rule.NotBodyOptions = negated()
	}
	if rule.NotSubjectAndBody != nil && rule.NotSubjectAndBodyOptions == nil {
		rule.NotSubjectAndBodyOptions = negated()
	}
	if author := rule.Author; author != nil {
		if author.NotName != nil && author.NotNameOptions == nil {
			author.NotNameOptions = negated()
		}
		if author.NotFlairText != nil && author.NotFlairTextOptions == nil {
			author.NotFlairTextOptions = negated()
		}
		if author.NotFlairCSSClass != nil && author.NotFlairCSSClassOptions == nil {
			author.NotFlairCSSClassOptions = negated()
		}
	}
}

// matchField pairs one match-string list with its options for iteration.
type matchField struct {
	name    string
	values  []string
	options *SearchOptions
}

func ruleMatchFields(rule *Rule) []matchField {
	fields := []matchField{
		{"subject", rule.Subject, rule.SubjectOptions},
		{"notsubject", rule.NotSubject, rule.NotSubjectOptions},
		{"body", rule.Body, rule.BodyOptions},
		{"notbody", rule.NotBody, rule.NotBodyOptions},
		{"subjectandbody", rule.SubjectAndBody, rule.SubjectAndBodyOptions},
		{"notsubjectandbody", rule.NotSubjectAndBody, rule.NotSubjectAndBodyOptions},
	}
	if author := rule.Author; author != nil {
		fields = append(fields,
			matchField{"author.name", author.Name, author.NameOptions},
			matchField{"author.notname", author.NotName, author.NotNameOptions},
			matchField{"author.flair_text", author.FlairText, author.FlairTextOptions},
			matchField{"author.notflair_text", author.NotFlairText, author.NotFlairTextOptions},
			matchField{"author.flair_css_class", author.FlairCSSClass, author.FlairCSSClassOptions},
			matchField{"author.notflair_css_class", author.NotFlairCSSClass, author.NotFlairCSSClassOptions},
		)
	}
	if ma := rule.ModAction; ma != nil {
		fields = append(fields, matchField{"mod_action.action_reason", ma.ActionReason, ma.ActionReasonOptions})
	}
	return fields
}
