package jobs

import (
	"context"
	"log"
	"time"

	"github.com/ripplefeed/backend/internal/models"
)

// purgeBatchSize bounds how many posts one sweep loads at a time.
const purgeBatchSize = 100

// PostStore is the post surface the purger needs.
type PostStore interface {
	ListExpiredDeleted(ctx context.Context, before time.Time, limit int64) ([]models.Post, error)
	HardDeletePost(ctx context.Context, id string) error
}

// AggregateStore removes a post's engagement documents.
type AggregateStore interface {
	DeleteAggregates(ctx context.Context, postID string) error
}

// ObjectStore removes stored media by key.
type ObjectStore interface {
	Delete(ctx context.Context, key string) error
}

// Purger hard-deletes posts whose soft-delete has outlived the retention
// window, cascading through engagement aggregates and owned media. It is the
// only code path that physically removes engagement state.
type Purger struct {
	posts      PostStore
	aggregates AggregateStore
	objects    ObjectStore
	retention  time.Duration
}

// NewPurger creates a Purger with the given retention window in days.
func NewPurger(posts PostStore, aggregates AggregateStore, objects ObjectStore, retentionDays int) *Purger {
	return &Purger{
		posts:      posts,
		aggregates: aggregates,
		objects:    objects,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
	}
}

// Run sweeps expired soft-deleted posts in batches until none remain.
// Failures on one post are logged and skipped so the rest of the sweep
// continues; the post stays behind for the next run. A sweep that stops
// purging stops iterating too: failed posts are listed again on the next
// batch, so without progress the loop would re-fetch the same batch forever.
func (p *Purger) Run(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)
	purged := 0

	for {
		posts, err := p.posts.ListExpiredDeleted(ctx, cutoff, purgeBatchSize)
		if err != nil {
			log.Printf("Retention sweep aborted: %v", err)
			return
		}
		if len(posts) == 0 {
			break
		}

		batchPurged := 0
		for _, post := range posts {
			if err := p.purgePost(ctx, post); err != nil {
				log.Printf("Unable to purge post %s: %v", post.ID.Hex(), err)
				continue
			}
			batchPurged++
		}
		purged += batchPurged

		if batchPurged == 0 {
			log.Printf("Retention sweep stalled, leaving %d posts for the next run.", len(posts))
			break
		}
		if len(posts) < purgeBatchSize {
			break
		}
	}

	log.Printf("Retention sweep complete, purged %d posts.", purged)
}

// purgePost removes the post's aggregates and media before the post document
// itself, so an interrupted purge never leaves a read-visible post without
// its engagement state.
func (p *Purger) purgePost(ctx context.Context, post models.Post) error {
	if err := p.aggregates.DeleteAggregates(ctx, post.ID.Hex()); err != nil {
		return err
	}
	for _, key := range post.MediaKeys {
		if err := p.objects.Delete(ctx, key); err != nil {
			return err
		}
	}
	return p.posts.HardDeletePost(ctx, post.ID.Hex())
}
