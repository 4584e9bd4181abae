package rules

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Shorthand field grammar. A key may be written as "~name", "name (opts)" or
// "~name (opts)"; the leading "~" negates the field and maps it to its
// "not"-prefixed counterpart, and the parenthesized tokens select a search
// method and/or case sensitivity. "subject+body" and "body+subject" fold into
// the single "subjectandbody" field. "body_regex"/"subject_regex" are legacy
// spellings of body/subject with the regex method.
var shorthandKeyRe = regexp.MustCompile(`^(body_regex|subject_regex|~?subject|~?body|~?subject\+body|~?body\+subject|~?name|~?flair_text|~?flair_css_class|action_reason)(?: \(([\w\s,-]+)\))?$`)

// normalizeMapping rewrites shorthand keys in one mapping scope (rule root,
// author block or mod_action block) into the canonical "name" +
// "name_options" shape. Already-canonical keys are left untouched, so
// normalization is idempotent.
func normalizeMapping(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return nil
	}

	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		if key.Kind != yaml.ScalarNode {
			continue
		}

		matches := shorthandKeyRe.FindStringSubmatch(key.Value)
		if matches == nil {
			continue
		}

		properName := matches[1]
		negate := strings.HasPrefix(properName, "~")
		if negate {
			properName = "not" + strings.TrimPrefix(properName, "~")
		}

		method, caseSensitive, err := parseOptionTokens(key.Value, matches[2])
		if err != nil {
			return err
		}

		switch properName {
		case "body_regex":
			properName = "body"
			method = MethodRegex
		case "subject_regex":
			properName = "subject"
			method = MethodRegex
		}

		if base := strings.TrimPrefix(properName, "not"); base == "subject+body" || base == "body+subject" {
			properName = "subjectandbody"
			if negate {
				properName = "notsubjectandbody"
			}
		}

		needOptions := negate || caseSensitive || method != ""
		if properName == key.Value && !needOptions {
			// Already canonical.
			continue
		}

		if err := checkKeyCollision(node, i, properName, properName+"_options"); err != nil {
			return err
		}

		key.Value = properName
		if needOptions {
			if method == "" {
				method = MethodIncludes
			}
			node.Content = append(node.Content,
				scalarNode("!!str", properName+"_options"),
				optionsNode(method, caseSensitive, negate))
		}
	}
	return nil
}

// parseOptionTokens interprets the comma-separated tokens inside a shorthand
// key's parentheses. Each token must be a search method or a case-sensitivity
// marker; anything else is a configuration error.
func parseOptionTokens(key, raw string) (SearchMethod, bool, error) {
	var method SearchMethod
	var caseSensitive bool

	for _, token := range strings.Split(raw, ",") {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}
		if token == "case-sensitive" || token == "case_sensitive" {
			caseSensitive = true
			continue
		}
		if isSearchMethod(token) {
			if method != "" {
				return "", false, fmt.Errorf("key %q specifies more than one search method", key)
			}
			method = SearchMethod(token)
			continue
		}
		return "", false, fmt.Errorf("key %q has unrecognized search option %q", key, token)
	}
	return method, caseSensitive, nil
}

func isSearchMethod(s string) bool {
	for _, m := range SearchMethods {
		if string(m) == s {
			return true
		}
	}
	return false
}

// checkKeyCollision rejects a rewrite whose canonical names already exist in
// the mapping, e.g. both "subject" and "subject_regex" in one rule.
func checkKeyCollision(node *yaml.Node, selfIndex int, names ...string) error {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if i == selfIndex {
			continue
		}
		key := node.Content[i]
		if key.Kind != yaml.ScalarNode {
			continue
		}
		for _, name := range names {
			if key.Value == name {
				return fmt.Errorf("conflicting keys %q and %q", node.Content[selfIndex].Value, name)
			}
		}
	}
	return nil
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

func boolNodeValue(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func optionsNode(method SearchMethod, caseSensitive, negate bool) *yaml.Node {
	return &yaml.Node{
		Kind: yaml.MappingNode,
		Tag:  "!!map",
		Content: []*yaml.Node{
			scalarNode("!!str", "search_method"), scalarNode("!!str", string(method)),
			scalarNode("!!str", "case_sensitive"), scalarNode("!!bool", boolNodeValue(caseSensitive)),
			scalarNode("!!str", "negate"), scalarNode("!!bool", boolNodeValue(negate)),
		},
	}
}
