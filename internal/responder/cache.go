package responder

import (
	"context"

	"github.com/modmailer/modmailer/internal/host"
)

// cachingClient memoizes the read-side lookups for the duration of one
// message pass, so several rules checking the same predicate share one host
// call. Only successful results are cached; errors are retried on the next
// rule. Not safe for concurrent use; a pass evaluates rules sequentially.
type cachingClient struct {
	host.Client
	banned      map[string]bool
	contributor map[string]bool
	moderator   map[string]bool
	flair       map[string]*host.Flair
	queueIDs    []string
	hasQueueIDs bool
	subType     host.SubredditType
}

func newCachingClient(inner host.Client) *cachingClient {
	return &cachingClient{
		Client:      inner,
		banned:      make(map[string]bool),
		contributor: make(map[string]bool),
		moderator:   make(map[string]bool),
		flair:       make(map[string]*host.Flair),
	}
}

func (c *cachingClient) IsBanned(ctx context.Context, subreddit, username string) (bool, error) {
	if v, ok := c.banned[username]; ok {
		return v, nil
	}
	v, err := c.Client.IsBanned(ctx, subreddit, username)
	if err == nil {
		c.banned[username] = v
	}
	return v, err
}

func (c *cachingClient) IsContributor(ctx context.Context, subreddit, username string) (bool, error) {
	if v, ok := c.contributor[username]; ok {
		return v, nil
	}
	v, err := c.Client.IsContributor(ctx, subreddit, username)
	if err == nil {
		c.contributor[username] = v
	}
	return v, err
}

func (c *cachingClient) IsModerator(ctx context.Context, subreddit, username string) (bool, error) {
	if v, ok := c.moderator[username]; ok {
		return v, nil
	}
	v, err := c.Client.IsModerator(ctx, subreddit, username)
	if err == nil {
		c.moderator[username] = v
	}
	return v, err
}

func (c *cachingClient) UserFlair(ctx context.Context, subreddit, username string) (*host.Flair, error) {
	if v, ok := c.flair[username]; ok {
		return v, nil
	}
	v, err := c.Client.UserFlair(ctx, subreddit, username)
	if err == nil {
		c.flair[username] = v
	}
	return v, err
}

func (c *cachingClient) ModQueueIDs(ctx context.Context, subreddit string) ([]string, error) {
	if c.hasQueueIDs {
		return c.queueIDs, nil
	}
	ids, err := c.Client.ModQueueIDs(ctx, subreddit)
	if err == nil {
		c.queueIDs = ids
		c.hasQueueIDs = true
	}
	return ids, err
}

func (c *cachingClient) SubredditType(ctx context.Context, subreddit string) (host.SubredditType, error) {
	if c.subType != "" {
		return c.subType, nil
	}
	t, err := c.Client.SubredditType(ctx, subreddit)
	if err == nil {
		c.subType = t
	}
	return t, err
}
