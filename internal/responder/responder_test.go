package responder

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/modmailer/modmailer/internal/host"
	"github.com/modmailer/modmailer/internal/rules"
	"github.com/modmailer/modmailer/internal/settings"
	"github.com/modmailer/modmailer/internal/store"
)

func boolPtr(b bool) *bool { return &b }

type fakeHost struct {
	users      map[string]*host.User
	moderators map[string]bool
}

func (f *fakeHost) UserByUsername(_ context.Context, username string) (*host.User, error) {
	user, ok := f.users[username]
	if !ok {
		return nil, errors.New("user not found")
	}
	return user, nil
}

func (f *fakeHost) IsBanned(context.Context, string, string) (bool, error) { return false, nil }

func (f *fakeHost) IsContributor(context.Context, string, string) (bool, error) {
	return false, nil
}

func (f *fakeHost) IsModerator(_ context.Context, _ string, username string) (bool, error) {
	return f.moderators[username], nil
}

func (f *fakeHost) UserFlair(context.Context, string, string) (*host.Flair, error) { return nil, nil }

func (f *fakeHost) ModerationLog(context.Context, host.ModLogQuery) ([]host.ModAction, error) {
	return nil, nil
}

func (f *fakeHost) ModQueueIDs(context.Context, string) ([]string, error) { return nil, nil }

func (f *fakeHost) SubredditType(context.Context, string) (host.SubredditType, error) {
	return host.SubredditPublic, nil
}

type sentReply struct {
	body         string
	internal     bool
	authorHidden bool
}

type fakeModmail struct {
	conversation *host.Conversation
	replies      []sentReply
	mutedHours   []int
	archived     int
	unbanned     []string
	approved     []string
	flairs       []host.FlairUpdate
}

func (f *fakeModmail) Conversation(context.Context, string) (*host.Conversation, error) {
	return f.conversation, nil
}

func (f *fakeModmail) Reply(_ context.Context, _ string, body string, internal, authorHidden bool) error {
	f.replies = append(f.replies, sentReply{body, internal, authorHidden})
	return nil
}

func (f *fakeModmail) MuteConversation(_ context.Context, _ string, hours int) error {
	f.mutedHours = append(f.mutedHours, hours)
	return nil
}

func (f *fakeModmail) ArchiveConversation(context.Context, string) error {
	f.archived++
	return nil
}

func (f *fakeModmail) UnbanUser(_ context.Context, _, username string) error {
	f.unbanned = append(f.unbanned, username)
	return nil
}

func (f *fakeModmail) ApproveUser(_ context.Context, _, username string) error {
	f.approved = append(f.approved, username)
	return nil
}

func (f *fakeModmail) SetUserFlair(_ context.Context, _, _ string, flair host.FlairUpdate) error {
	f.flairs = append(f.flairs, flair)
	return nil
}

type recordingScheduler struct {
	actions []Action
	runAt   []time.Time
}

func (s *recordingScheduler) Schedule(_ context.Context, runAt time.Time, action Action) error {
	s.actions = append(s.actions, action)
	s.runAt = append(s.runAt, runAt)
	return nil
}

func newConversation() *host.Conversation {
	return &host.Conversation{
		ID:          "conv-1",
		Subject:     "I need help",
		Participant: "testuser",
		Messages: []host.ConversationMessage{
			{ID: "msg-1", Author: "testuser", AuthorIsParticipant: true, Body: "please help me"},
		},
	}
}

func newResponder(modmail *fakeModmail, ruleList []rules.Rule) *Responder {
	cfg := settings.Default()
	cfg.Subreddit = "testsub"
	return &Responder{
		Client: &fakeHost{
			users: map[string]*host.User{
				"testuser": {Username: "testuser", CreatedAt: time.Now().AddDate(-1, 0, 0)},
			},
			moderators: map[string]bool{},
		},
		Modmail:  modmail,
		Dedupe:   store.NewMemoryStore(),
		Settings: cfg,
		Rules:    ruleList,
		AppName:  "modmailer",
	}
}

func event() host.ModmailEvent {
	return host.ModmailEvent{ConversationID: "conv-1", MessageID: "ModmailMessage_msg-1", AuthorName: "testuser"}
}

func TestNewChoosesDedupeStore(t *testing.T) {
	cfg := settings.Default()
	r := New(cfg, &fakeHost{}, &fakeModmail{}, nil, nil)
	assert.IsType(t, &store.MemoryStore{}, r.Dedupe)

	cfg.RedisAddr = "localhost:6379"
	r = New(cfg, &fakeHost{}, &fakeModmail{}, nil, nil)
	assert.IsType(t, &store.RedisStore{}, r.Dedupe)
}

func TestAuditRecordsMatchedRule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.jsonl")
	audit, err := NewAuditLogger(path)
	require.NoError(t, err)
	defer audit.Close()

	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{FriendlyName: "help responder", Body: []string{"help"}, Reply: "x"},
	})
	r.Audit = audit

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rule_name":"help responder"`)
	assert.Contains(t, string(data), `"outcome":"matched"`)
}

func TestHandleMessageRepliesWithSignoff(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{Body: []string{"help"}, Reply: "Hi {{author}}, a mod will be along."},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	require.Len(t, modmail.replies, 1)
	sent := modmail.replies[0]
	assert.False(t, sent.internal)
	assert.True(t, sent.authorHidden)
	assert.Contains(t, sent.body, "Hi testuser, a mod will be along.")
	assert.Contains(t, sent.body, settings.DefaultSignoff)
}

func TestHandleMessageSignoffOptOut(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{Body: []string{"help"}, Reply: "reply text", Signoff: boolPtr(false)},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	require.Len(t, modmail.replies, 1)
	assert.NotContains(t, modmail.replies[0].body, settings.DefaultSignoff)
}

func TestHandleMessageSelfEventSkipped(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{{Body: []string{"help"}, Reply: "x"}})

	ev := event()
	ev.AuthorName = "modmailer"
	require.NoError(t, r.HandleMessage(context.Background(), ev))
	assert.Empty(t, modmail.replies)
}

func TestHandleMessageDeduplicates(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{{Body: []string{"help"}, Reply: "x"}})

	require.NoError(t, r.HandleMessage(context.Background(), event()))
	require.NoError(t, r.HandleMessage(context.Background(), event()))
	assert.Len(t, modmail.replies, 1)
}

func TestHandleMessageNoParticipant(t *testing.T) {
	conv := newConversation()
	conv.Participant = ""
	modmail := &fakeModmail{conversation: conv}
	r := newResponder(modmail, []rules.Rule{{Body: []string{"help"}, Reply: "x"}})

	require.NoError(t, r.HandleMessage(context.Background(), event()))
	assert.Empty(t, modmail.replies)
}

func TestHandleMessagePriorityOrderFirstMatchWins(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{Body: []string{"help"}, Reply: "low", Priority: 1},
		{Body: []string{"help"}, Reply: "high", Priority: 10},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	require.Len(t, modmail.replies, 1)
	assert.Contains(t, modmail.replies[0].body, "high")
}

func TestHandleMessageReplyRulesSkippedOnFirstMessage(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{Body: []string{"help"}, Reply: "x", IsReply: boolPtr(true)},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))
	assert.Empty(t, modmail.replies)
}

func TestHandleMessageFirstUserReply(t *testing.T) {
	conv := newConversation()
	conv.Messages = append(conv.Messages,
		host.ConversationMessage{ID: "msg-2", Author: "somemod", Body: "we're looking into it"},
		host.ConversationMessage{ID: "msg-3", Author: "testuser", AuthorIsParticipant: true, Body: "thanks for the help"},
	)
	modmail := &fakeModmail{conversation: conv}
	r := newResponder(modmail, []rules.Rule{
		{Body: []string{"thanks"}, Reply: "you're welcome", IsFirstUserReply: boolPtr(true)},
	})

	ev := host.ModmailEvent{ConversationID: "conv-1", MessageID: "ModmailMessage_msg-3", AuthorName: "testuser"}
	require.NoError(t, r.HandleMessage(context.Background(), ev))
	assert.Len(t, modmail.replies, 1)

	// A later reply from the same user is no longer the first user reply.
	conv.Messages = append(conv.Messages,
		host.ConversationMessage{ID: "msg-4", Author: "testuser", AuthorIsParticipant: true, Body: "thanks again"},
	)
	ev.MessageID = "ModmailMessage_msg-4"
	require.NoError(t, r.HandleMessage(context.Background(), ev))
	assert.Len(t, modmail.replies, 1)
}

func TestHandleMessageModeratorGatedRules(t *testing.T) {
	conv := newConversation()
	modmail := &fakeModmail{conversation: conv}
	r := newResponder(modmail, []rules.Rule{
		{
			Body:   []string{"help"},
			Reply:  "mods only",
			Author: &rules.AuthorChecks{IsModerator: boolPtr(true)},
		},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))
	assert.Empty(t, modmail.replies, "rule requiring a moderator author is not eligible for user messages")
}

func TestHandleMessageAppliesActions(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{
			Body:         []string{"help"},
			PrivateReply: "internal note",
			Mute:         7,
			Archive:      true,
		},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	require.Len(t, modmail.replies, 1)
	assert.True(t, modmail.replies[0].internal)
	assert.Equal(t, "internal note", modmail.replies[0].body)
	assert.Equal(t, []int{168}, modmail.mutedHours)
	assert.Equal(t, 1, modmail.archived)
}

func TestHandleMessageDelayedAction(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	sched := &recordingScheduler{}
	r := newResponder(modmail, []rules.Rule{{Body: []string{"help"}, Reply: "x"}})
	r.Settings.SecondsDelayBeforeSend = 30
	r.Scheduler = sched

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	assert.Empty(t, modmail.replies, "nothing sent yet")
	require.Len(t, sched.actions, 1)
	assert.Equal(t, "conv-1", sched.actions[0].ConversationID)
	assert.NotEmpty(t, sched.actions[0].Reply)
}

func TestHandleMessageVerboseDebugNote(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, []rules.Rule{
		{Body: []string{"nomatch"}, Reply: "x", VerboseLogs: true},
	})

	require.NoError(t, r.HandleMessage(context.Background(), event()))

	require.Len(t, modmail.replies, 1)
	note := modmail.replies[0]
	assert.True(t, note.internal)
	assert.Contains(t, note.body, "Rule matched: false")
}

func TestApplyFlairHonorsOverride(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, nil)
	client := r.Client.(*fakeHost)

	action := Action{
		ConversationID: "conv-1",
		Username:       "testuser",
		SetFlair:       &rules.FlairChange{SetFlairText: "helped"},
	}
	require.NoError(t, r.Apply(context.Background(), action))
	require.Len(t, modmail.flairs, 1)
	assert.Equal(t, "helped", modmail.flairs[0].Text)

	// An unresolvable user without override means no flair change.
	delete(client.users, "testuser")
	require.NoError(t, r.Apply(context.Background(), action))
	assert.Len(t, modmail.flairs, 1)
}

func TestApplyRejectsUnsupportedMuteLength(t *testing.T) {
	modmail := &fakeModmail{conversation: newConversation()}
	r := newResponder(modmail, nil)

	require.NoError(t, r.Apply(context.Background(), Action{ConversationID: "conv-1", MuteDays: 5}))
	assert.Empty(t, modmail.mutedHours)
}
