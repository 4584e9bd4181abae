// Package backup mirrors the rule file to a durable location whenever it
// changes: the subreddit wiki, an S3 bucket, or a local directory. Every
// target skips the write when the stored copy already matches, so backup
// runs are safe to trigger on every settings save.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/modmailer/modmailer/internal/host"
	"github.com/modmailer/modmailer/internal/settings"
)

// Store persists one subreddit's rule text.
type Store interface {
	// Save writes rulesText for subreddit, with reason recorded where the
	// target supports edit reasons. Unchanged content is a no-op.
	Save(ctx context.Context, subreddit, rulesText, reason string) error
}

// WikiStore backs rules up to a mod-only wiki page.
type WikiStore struct {
	Client host.WikiClient
	// Page defaults to the standard backup page name.
	Page string
}

func (w *WikiStore) page() string {
	if w.Page != "" {
		return w.Page
	}
	return settings.BackupWikiPage
}

func (w *WikiStore) Save(ctx context.Context, subreddit, rulesText, reason string) error {
	page := w.page()

	existing, err := w.Client.WikiPage(ctx, subreddit, page)
	if err == nil {
		if strings.TrimSpace(existing) == strings.TrimSpace(rulesText) {
			return nil
		}
		if err := w.Client.UpdateWikiPage(ctx, subreddit, page, rulesText, reason); err != nil {
			return fmt.Errorf("updating wiki page %s: %w", page, err)
		}
		return nil
	}

	if err := w.Client.CreateWikiPage(ctx, subreddit, page, rulesText, reason); err != nil {
		return fmt.Errorf("creating wiki page %s: %w", page, err)
	}
	if err := w.Client.SetWikiPageModOnly(ctx, subreddit, page); err != nil {
		return fmt.Errorf("restricting wiki page %s: %w", page, err)
	}
	return nil
}

// LocalStore backs rules up to files under Dir, one per subreddit.
type LocalStore struct {
	Dir string
}

func (l *LocalStore) Save(_ context.Context, subreddit, rulesText, _ string) error {
	if err := os.MkdirAll(l.Dir, 0o700); err != nil {
		return err
	}

	path := filepath.Join(l.Dir, subreddit+".yaml")
	if existing, err := os.ReadFile(path); err == nil &&
		strings.TrimSpace(string(existing)) == strings.TrimSpace(rulesText) {
		return nil
	}
	return os.WriteFile(path, []byte(rulesText), 0o600)
}

// MultiStore fans a backup out to several targets, reporting the first
// failure after attempting all of them.
type MultiStore []Store

func (m MultiStore) Save(ctx context.Context, subreddit, rulesText, reason string) error {
	var firstErr error
	for _, s := range m {
		if err := s.Save(ctx, subreddit, rulesText, reason); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
