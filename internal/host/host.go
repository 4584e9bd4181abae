// Package host declares the capability interfaces the autoresponder core
// needs from the hosting moderation platform, plus the wire types exchanged
// over them. Concrete bindings (the real moderation API) live outside this
// module; tests use fakes.
package host

import (
	"context"
	"strings"
	"time"
)

// User is a resolved author profile. A participant whose profile cannot be
// resolved (shadowbanned or suspended) has no User at all.
type User struct {
	Username     string
	LinkKarma    int
	CommentKarma int
	CreatedAt    time.Time
}

// Flair is a user's flair in one subreddit.
type Flair struct {
	Text     string
	CSSClass string
}

// FlairUpdate describes a flair mutation to apply.
type FlairUpdate struct {
	Text       string
	CSSClass   string
	TemplateID string
}

// ModAction is one moderation-log entry.
type ModAction struct {
	Type            string
	Moderator       string
	CreatedAt       time.Time
	TargetID        string
	TargetAuthor    string
	TargetPermalink string
	// Details and Description are two description-like fields; a reason
	// filter passes when either matches.
	Details     string
	Description string
}

// ModLogQuery filters a moderation-log fetch server-side. Type is a single
// action type; callers wanting several types issue one query per type.
type ModLogQuery struct {
	Subreddit  string
	Moderators []string
	Type       string
	Limit      int
}

// SubredditType is the privacy tier of a subreddit.
type SubredditType string

const (
	SubredditPublic        SubredditType = "public"
	SubredditPrivate       SubredditType = "private"
	SubredditRestricted    SubredditType = "restricted"
	SubredditEmployeesOnly SubredditType = "employees_only"
)

// Client is the read-side moderation API the rule evaluator consults. Every
// call is lazy: it is only issued when a rule's predicates require it.
type Client interface {
	// UserByUsername resolves an author profile. A not-found error means
	// the account is shadowbanned or suspended.
	UserByUsername(ctx context.Context, username string) (*User, error)
	IsBanned(ctx context.Context, subreddit, username string) (bool, error)
	IsContributor(ctx context.Context, subreddit, username string) (bool, error)
	IsModerator(ctx context.Context, subreddit, username string) (bool, error)
	// UserFlair returns nil when the user has no flair in the subreddit.
	UserFlair(ctx context.Context, subreddit, username string) (*Flair, error)
	ModerationLog(ctx context.Context, q ModLogQuery) ([]ModAction, error)
	// ModQueueIDs returns the ids of items currently awaiting moderation.
	ModQueueIDs(ctx context.Context, subreddit string) ([]string, error)
	SubredditType(ctx context.Context, subreddit string) (SubredditType, error)
}

// ConversationMessage is one message within a modmail conversation.
type ConversationMessage struct {
	ID                  string
	Author              string
	AuthorIsMod         bool
	AuthorIsAdmin       bool
	AuthorIsParticipant bool
	Body                string
}

// Conversation is a modmail thread about one participant.
type Conversation struct {
	ID          string
	Subject     string
	Participant string
	Messages    []ConversationMessage
}

// ModmailEvent is the inbound trigger for one received modmail message.
type ModmailEvent struct {
	ConversationID string
	MessageID      string
	AuthorName     string
}

// ModmailClient is the action sink: everything the responder does to a
// conversation or its participant after a rule matches.
type ModmailClient interface {
	Conversation(ctx context.Context, conversationID string) (*Conversation, error)
	// Reply posts to the conversation; internal replies are visible to
	// moderators only.
	Reply(ctx context.Context, conversationID, body string, internal, authorHidden bool) error
	// MuteConversation mutes the participant for the given number of hours.
	MuteConversation(ctx context.Context, conversationID string, hours int) error
	ArchiveConversation(ctx context.Context, conversationID string) error
	UnbanUser(ctx context.Context, subreddit, username string) error
	ApproveUser(ctx context.Context, subreddit, username string) error
	SetUserFlair(ctx context.Context, subreddit, username string, flair FlairUpdate) error
}

// WikiClient persists rule backups to a subreddit wiki.
type WikiClient interface {
	// WikiPage returns the page content; a not-found error means the page
	// does not exist yet.
	WikiPage(ctx context.Context, subreddit, page string) (string, error)
	CreateWikiPage(ctx context.Context, subreddit, page, content, reason string) error
	UpdateWikiPage(ctx context.Context, subreddit, page, content, reason string) error
	// SetWikiPageModOnly restricts page visibility to subreddit mods.
	SetWikiPageModOnly(ctx context.Context, subreddit, page string) error
}

// Thing-id prefixes of the host platform's typed identifiers.
const (
	commentIDPrefix = "t1_"
	postIDPrefix    = "t3_"
)

// IsCommentID reports whether id names a comment.
func IsCommentID(id string) bool {
	return strings.HasPrefix(id, commentIDPrefix)
}

// IsPostID reports whether id names a post (link).
func IsPostID(id string) bool {
	return strings.HasPrefix(id, postIDPrefix)
}
