package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/ripplefeed/backend/internal/models"
)

type fakePostStore struct {
	expired []models.Post
	deleted []string
	listErr error
}

func (s *fakePostStore) ListExpiredDeleted(ctx context.Context, before time.Time, limit int64) ([]models.Post, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	// Return only posts not yet hard-deleted.
	var out []models.Post
	for _, p := range s.expired {
		removed := false
		for _, id := range s.deleted {
			if id == p.ID.Hex() {
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, p)
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakePostStore) HardDeletePost(ctx context.Context, id string) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type fakeAggregateStore struct {
	deleted []string
	failOn  string
	failAll bool
}

func (s *fakeAggregateStore) DeleteAggregates(ctx context.Context, postID string) error {
	if s.failAll || postID == s.failOn {
		return errors.New("aggregate delete failed")
	}
	s.deleted = append(s.deleted, postID)
	return nil
}

type fakeObjectStore struct {
	deleted []string
}

func (s *fakeObjectStore) Delete(ctx context.Context, key string) error {
	s.deleted = append(s.deleted, key)
	return nil
}

func expiredPost(mediaKeys ...string) models.Post {
	return models.Post{
		ID:        primitive.NewObjectID(),
		AuthorID:  "1",
		IsDeleted: true,
		UpdatedAt: time.Now().Add(-60 * 24 * time.Hour),
		MediaKeys: mediaKeys,
	}
}

func TestPurgeCascade(t *testing.T) {
	p1 := expiredPost("uploads/a.jpg", "uploads/b.mp4")
	p2 := expiredPost()

	posts := &fakePostStore{expired: []models.Post{p1, p2}}
	aggregates := &fakeAggregateStore{}
	objects := &fakeObjectStore{}
	NewPurger(posts, aggregates, objects, 30).Run(context.Background())

	if len(posts.deleted) != 2 {
		t.Fatalf("hard-deleted %d posts, want 2", len(posts.deleted))
	}
	if len(aggregates.deleted) != 2 {
		t.Fatalf("deleted aggregates for %d posts, want 2", len(aggregates.deleted))
	}
	if len(objects.deleted) != 2 {
		t.Fatalf("deleted %d objects, want 2", len(objects.deleted))
	}
	for i, want := range []string{"uploads/a.jpg", "uploads/b.mp4"} {
		if objects.deleted[i] != want {
			t.Fatalf("objects deleted = %v", objects.deleted)
		}
	}
}

func TestPurgeSkipsFailingPost(t *testing.T) {
	p1 := expiredPost()
	p2 := expiredPost()

	posts := &fakePostStore{expired: []models.Post{p1, p2}}
	aggregates := &fakeAggregateStore{failOn: p1.ID.Hex()}
	objects := &fakeObjectStore{}
	NewPurger(posts, aggregates, objects, 30).Run(context.Background())

	// p1 failed and must survive for the next run; p2 is purged.
	if len(posts.deleted) != 1 || posts.deleted[0] != p2.ID.Hex() {
		t.Fatalf("hard-deleted = %v, want only %s", posts.deleted, p2.ID.Hex())
	}
}

func TestPurgeStopsOnStalledBatch(t *testing.T) {
	// A full batch where every post fails to purge: the next list returns the
	// identical batch, so the sweep must notice the lack of progress and stop
	// instead of re-fetching forever.
	expired := make([]models.Post, purgeBatchSize)
	for i := range expired {
		expired[i] = expiredPost()
	}
	posts := &fakePostStore{expired: expired}
	aggregates := &fakeAggregateStore{failAll: true}
	objects := &fakeObjectStore{}

	done := make(chan struct{})
	go func() {
		NewPurger(posts, aggregates, objects, 30).Run(context.Background())
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("sweep kept looping over a batch it could not purge")
	}

	if len(posts.deleted) != 0 {
		t.Fatalf("hard-deleted = %v, want none", posts.deleted)
	}
}

func TestPurgeListFailureAborts(t *testing.T) {
	posts := &fakePostStore{listErr: errors.New("mongo down")}
	aggregates := &fakeAggregateStore{}
	objects := &fakeObjectStore{}
	NewPurger(posts, aggregates, objects, 30).Run(context.Background())

	if len(posts.deleted) != 0 || len(aggregates.deleted) != 0 {
		t.Fatal("sweep mutated state after a list failure")
	}
}
