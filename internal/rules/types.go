package rules

// SearchMethod selects the text-matching algorithm for a match-string list.
type SearchMethod string

const (
	MethodIncludes     SearchMethod = "includes"
	MethodIncludesWord SearchMethod = "includes-word"
	MethodStartsWith   SearchMethod = "starts-with"
	MethodEndsWith     SearchMethod = "ends-with"
	MethodFullExact    SearchMethod = "full-exact"
	MethodRegex        SearchMethod = "regex"
)

// SearchMethods lists every recognized search method, in documentation order.
var SearchMethods = []SearchMethod{
	MethodIncludesWord,
	MethodIncludes,
	MethodStartsWith,
	MethodEndsWith,
	MethodFullExact,
	MethodRegex,
}

// SearchOptions modifies how a match-string list is compared against input
// text. The zero value means case-insensitive substring containment.
type SearchOptions struct {
	SearchMethod  SearchMethod `yaml:"search_method,omitempty"`
	CaseSensitive bool         `yaml:"case_sensitive,omitempty"`
	Negate        bool         `yaml:"negate,omitempty"`
}

// Method returns the effective search method, defaulting to "includes".
func (o *SearchOptions) Method() SearchMethod {
	if o == nil || o.SearchMethod == "" {
		return MethodIncludes
	}
	return o.SearchMethod
}

// StringOrList allows YAML fields to accept either a single string or a list.
// "rm" → ["rm"], ["a", "b"] → ["a", "b"]. No other coercions are applied.
type StringOrList []string

func (s *StringOrList) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var single string
	if err := unmarshal(&single); err == nil {
		*s = []string{single}
		return nil
	}
	var list []string
	if err := unmarshal(&list); err != nil {
		return err
	}
	*s = list
	return nil
}

// FlairChange is the flair-mutation directive attached to a matched rule.
type FlairChange struct {
	OverrideFlair      bool   `yaml:"override_flair,omitempty"`
	SetFlairText       string `yaml:"set_flair_text,omitempty"`
	SetFlairCSSClass   string `yaml:"set_flair_css_class,omitempty"`
	SetFlairTemplateID string `yaml:"set_flair_template_id,omitempty"`
}

// AuthorChecks groups the predicates evaluated against the message author.
type AuthorChecks struct {
	Name        StringOrList   `yaml:"name,omitempty"`
	NameOptions *SearchOptions `yaml:"name_options,omitempty"`

	NotName        StringOrList   `yaml:"notname,omitempty"`
	NotNameOptions *SearchOptions `yaml:"notname_options,omitempty"`

	// Comparator strings, e.g. "> 100". Validated against the numeric
	// comparator grammar at parse time.
	PostKarma     string `yaml:"post_karma,omitempty"`
	CommentKarma  string `yaml:"comment_karma,omitempty"`
	CombinedKarma string `yaml:"combined_karma,omitempty"`

	// Relative-date comparator string, e.g. "< 10 days".
	AccountAge string `yaml:"account_age,omitempty"`

	// When true, the configured karma/age thresholds combine with OR
	// instead of the default AND.
	SatisfyAnyThreshold bool `yaml:"satisfy_any_threshold,omitempty"`

	FlairText        StringOrList   `yaml:"flair_text,omitempty"`
	FlairTextOptions *SearchOptions `yaml:"flair_text_options,omitempty"`

	NotFlairText        StringOrList   `yaml:"notflair_text,omitempty"`
	NotFlairTextOptions *SearchOptions `yaml:"notflair_text_options,omitempty"`

	FlairCSSClass        StringOrList   `yaml:"flair_css_class,omitempty"`
	FlairCSSClassOptions *SearchOptions `yaml:"flair_css_class_options,omitempty"`

	NotFlairCSSClass        StringOrList   `yaml:"notflair_css_class,omitempty"`
	NotFlairCSSClassOptions *SearchOptions `yaml:"notflair_css_class_options,omitempty"`

	IsParticipant  *bool `yaml:"is_participant,omitempty"`
	IsContributor  *bool `yaml:"is_contributor,omitempty"`
	IsModerator    *bool `yaml:"is_moderator,omitempty"`
	IsShadowbanned *bool `yaml:"is_shadowbanned,omitempty"`
	IsBanned       *bool `yaml:"is_banned,omitempty"`

	SetFlair *FlairChange `yaml:"set_flair,omitempty"`
}

// ModActionTypes is the closed set of moderation-log action types a rule may
// filter on.
var ModActionTypes = []string{
	"banuser", "unbanuser",
	"spamlink", "removelink", "approvelink",
	"spamcomment", "removecomment", "approvecomment",
	"editflair", "lock", "unlock",
	"muteuser", "unmuteuser",
	"addremovalreason",
}

// ModActionCheck is the moderation-log predicate of a rule.
type ModActionCheck struct {
	ModeratorName StringOrList `yaml:"moderator_name,omitempty"`
	ModActionType StringOrList `yaml:"mod_action_type,omitempty"`

	// Relative-date comparator; a missing operator defaults to "<"
	// ("happened more recently than N units ago").
	ActionWithin string `yaml:"action_within,omitempty"`

	ActionReason        StringOrList   `yaml:"action_reason,omitempty"`
	ActionReasonOptions *SearchOptions `yaml:"action_reason_options,omitempty"`

	StillInQueue *bool `yaml:"still_in_queue,omitempty"`
}

// Subreddit visibility tiers a rule may require.
const (
	VisibilityPublic     = "public"
	VisibilityPrivate    = "private"
	VisibilityRestricted = "restricted"
)

// Rule is one declarative autoresponse rule: a set of predicates plus the
// action payload to apply when every predicate passes.
type Rule struct {
	FriendlyName string `yaml:"rule_friendly_name,omitempty"`

	IsReply          *bool `yaml:"is_reply,omitempty"`
	IsFirstUserReply *bool `yaml:"is_first_user_reply,omitempty"`

	Subject        StringOrList   `yaml:"subject,omitempty"`
	SubjectOptions *SearchOptions `yaml:"subject_options,omitempty"`

	NotSubject        StringOrList   `yaml:"notsubject,omitempty"`
	NotSubjectOptions *SearchOptions `yaml:"notsubject_options,omitempty"`

	Body        StringOrList   `yaml:"body,omitempty"`
	BodyOptions *SearchOptions `yaml:"body_options,omitempty"`

	NotBody        StringOrList   `yaml:"notbody,omitempty"`
	NotBodyOptions *SearchOptions `yaml:"notbody_options,omitempty"`

	BodyShorterThan int `yaml:"body_shorter_than,omitempty"`
	BodyLongerThan  int `yaml:"body_longer_than,omitempty"`

	SubjectAndBody        StringOrList   `yaml:"subjectandbody,omitempty"`
	SubjectAndBodyOptions *SearchOptions `yaml:"subjectandbody_options,omitempty"`

	NotSubjectAndBody        StringOrList   `yaml:"notsubjectandbody,omitempty"`
	NotSubjectAndBodyOptions *SearchOptions `yaml:"notsubjectandbody_options,omitempty"`

	SubjectShorterThan int `yaml:"subject_shorter_than,omitempty"`
	SubjectLongerThan  int `yaml:"subject_longer_than,omitempty"`

	// Exemptions default to true when unset.
	ModeratorsExempt *bool `yaml:"moderators_exempt,omitempty"`
	AdminsExempt     *bool `yaml:"admins_exempt,omitempty"`

	Author    *AuthorChecks   `yaml:"author,omitempty"`
	ModAction *ModActionCheck `yaml:"mod_action,omitempty"`

	SubVisibility string `yaml:"sub_visibility,omitempty"`

	// Higher priority rules are evaluated first; the first match wins.
	Priority int `yaml:"priority,omitempty"`

	Reply        string `yaml:"reply,omitempty"`
	PrivateReply string `yaml:"private_reply,omitempty"`
	Mute         int    `yaml:"mute,omitempty"`
	Archive      bool   `yaml:"archive,omitempty"`
	Unban        bool   `yaml:"unban,omitempty"`
	ApproveUser  bool   `yaml:"approve_user,omitempty"`

	VerboseLogs bool  `yaml:"verbose_logs,omitempty"`
	Signoff     *bool `yaml:"signoff,omitempty"`
}

// ExemptsModerators reports whether the rule skips messages from moderators.
// Unset means exempt.
func (r *Rule) ExemptsModerators() bool {
	return r.ModeratorsExempt == nil || *r.ModeratorsExempt
}

// ExemptsAdmins reports whether the rule skips messages from admins.
// Unset means exempt.
func (r *Rule) ExemptsAdmins() bool {
	return r.AdminsExempt == nil || *r.AdminsExempt
}

// IncludeSignoff reports whether the configured signoff text should be
// appended to this rule's public reply. Unset means include.
func (r *Rule) IncludeSignoff() bool {
	return r.Signoff == nil || *r.Signoff
}
