package repository_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	repository "github.com/okian/hydrater/internal/adapters/repository"
	"github.com/okian/hydrater/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// flakyStore fails rating reads while broken is set.
type flakyStore struct {
	*repository.MemoryStore
	mu     sync.Mutex
	broken bool
	calls  int
}

func (f *flakyStore) Ratings(ctx context.Context, userID string) (model.RatingSet, error) {
	f.mu.Lock()
	f.calls++
	broken := f.broken
	f.mu.Unlock()
	if broken {
		return nil, errors.New("connection reset")
	}
	return f.MemoryStore.Ratings(ctx, userID)
}

func (f *flakyStore) setBroken(b bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.broken = b
}

func (f *flakyStore) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBreakerStore(t *testing.T) {
	Convey("Given a breaker around a flaky store", t, func() {
		ctx := context.Background()
		inner := &flakyStore{MemoryStore: repository.NewMemoryStore()}
		So(inner.Upsert(ctx, submission("alice", "f1", 5)), ShouldBeNil)

		store := repository.NewBreakerStore(inner,
			repository.WithFailureThreshold(3),
			repository.WithOpenTimeout(50*time.Millisecond),
		)

		Convey("When reads succeed", func() {
			set, err := store.Ratings(ctx, "alice")

			Convey("Then results pass through and the breaker stays closed", func() {
				So(err, ShouldBeNil)
				So(set, ShouldHaveLength, 1)
				So(store.State(), ShouldEqual, "closed")
			})
		})

		Convey("When unknown users are read repeatedly", func() {
			for i := 0; i < 5; i++ {
				_, err := store.Ratings(ctx, "ghost")
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			}

			Convey("Then not-found does not count as a failure", func() {
				So(store.State(), ShouldEqual, "closed")
			})
		})

		Convey("When the backend fails three times in a row", func() {
			inner.setBroken(true)
			for i := 0; i < 3; i++ {
				_, err := store.Ratings(ctx, "alice")
				So(err, ShouldNotBeNil)
			}

			Convey("Then the breaker opens and fails fast", func() {
				So(store.State(), ShouldEqual, "open")
				before := inner.callCount()
				_, err := store.Ratings(ctx, "alice")
				So(errors.Is(err, repository.ErrBreaker), ShouldBeTrue)
				So(inner.callCount(), ShouldEqual, before)
			})

			Convey("And it recovers after the open timeout", func() {
				inner.setBroken(false)
				time.Sleep(80 * time.Millisecond)
				set, err := store.Ratings(ctx, "alice")
				So(err, ShouldBeNil)
				So(set, ShouldHaveLength, 1)
				So(store.State(), ShouldEqual, "closed")
			})
		})

		Convey("When writing through the breaker", func() {
			So(store.Upsert(ctx, submission("bob", "f1", 2)), ShouldBeNil)

			Convey("Then the inner store receives it", func() {
				profiles, err := store.Candidates(ctx, "")
				So(err, ShouldBeNil)
				So(profiles, ShouldHaveLength, 2)
			})
		})
	})
}
