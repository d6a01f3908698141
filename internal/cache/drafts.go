package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DraftStore keeps in-progress code per assignment, question and language.
// It is a convenience for the editor and never the source of truth.
type DraftStore struct {
	helper *CacheHelper
	ttl    time.Duration
}

func NewDraftStore(cm *CacheManager, ttl time.Duration) *DraftStore {
	if ttl <= 0 {
		ttl = DraftCacheConfig.TTL
	}
	return &DraftStore{helper: cm.Draft, ttl: ttl}
}

func draftKey(assignmentID, questionID uint, language string) string {
	return fmt.Sprintf("%d:%d:%s", assignmentID, questionID, language)
}

// Save stores code, silently dropping it when redis is not configured
func (d *DraftStore) Save(ctx context.Context, assignmentID, questionID uint, language, code string) error {
	return d.helper.SetString(ctx, draftKey(assignmentID, questionID, language), code, d.ttl)
}

// Get returns the draft and whether one was found
func (d *DraftStore) Get(ctx context.Context, assignmentID, questionID uint, language string) (string, bool, error) {
	code, err := d.helper.GetString(ctx, draftKey(assignmentID, questionID, language))
	if err != nil {
		if errors.Is(err, ErrCacheNotFound) || errors.Is(err, ErrCacheNotAvailable) {
			return "", false, nil
		}
		return "", false, err
	}
	return code, true, nil
}

// Clear removes every draft of an assignment
func (d *DraftStore) Clear(ctx context.Context, assignmentID uint) error {
	return d.helper.InvalidatePattern(ctx, fmt.Sprintf("%d:*", assignmentID))
}
