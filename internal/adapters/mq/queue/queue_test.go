package queue_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/hydrater/internal/adapters/mq/queue"
	"github.com/okian/hydrater/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func submission(id string) model.Submission {
	return model.Submission{
		SubmissionID: id,
		UserID:       "user-" + id,
		Rating:       model.Rating{FountainID: "f1", Coldness: 3, Pressure: 3, Experience: 3, YumFactor: 3},
		ReceivedAt:   time.Now(),
	}
}

func TestInMemoryQueue(t *testing.T) {
	ctx := context.Background()

	Convey("Given a queue with capacity two", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		Convey("Then it starts empty and open", func() {
			So(q.Len(ctx), ShouldEqual, 0)
			So(q.IsClosed(), ShouldBeFalse)
		})

		Convey("When a submission is enqueued and dequeued", func() {
			So(q.Enqueue(ctx, submission("s1")), ShouldBeTrue)
			So(q.Len(ctx), ShouldEqual, 1)

			got := <-q.Dequeue(ctx)

			Convey("Then the same submission comes out", func() {
				So(got.SubmissionID, ShouldEqual, "s1")
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is full", func() {
			So(q.Enqueue(ctx, submission("s1")), ShouldBeTrue)
			So(q.Enqueue(ctx, submission("s2")), ShouldBeTrue)
			err := q.Offer(ctx, submission("s3"))

			Convey("Then further submissions are rejected with ErrFull", func() {
				So(err, ShouldEqual, queue.ErrFull)
				So(q.Enqueue(ctx, submission("s4")), ShouldBeFalse)
				So(q.Len(ctx), ShouldEqual, 2)
			})
		})

		Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()

			Convey("Then the submission is rejected", func() {
				So(q.Offer(cctx, submission("s1")), ShouldEqual, context.Canceled)
				So(q.Len(ctx), ShouldEqual, 0)
			})
		})

		Convey("When the queue is closed with pending items", func() {
			So(q.Enqueue(ctx, submission("s1")), ShouldBeTrue)
			So(q.Close(), ShouldBeNil)

			Convey("Then intake stops but pending items drain", func() {
				So(q.IsClosed(), ShouldBeTrue)
				So(q.Offer(ctx, submission("s2")), ShouldEqual, queue.ErrClosed)

				var drained []string
				for s := range q.Dequeue(ctx) {
					drained = append(drained, s.SubmissionID)
				}
				So(drained, ShouldResemble, []string{"s1"})
				So(q.Close(), ShouldBeNil)
			})
		})
	})

	Convey("Given concurrent producers and consumers", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(50))
		const producers, perProducer = 5, 40

		var consumed sync.Map
		var consumers sync.WaitGroup
		for i := 0; i < 3; i++ {
			consumers.Add(1)
			go func() {
				defer consumers.Done()
				for s := range q.Dequeue(ctx) {
					consumed.Store(s.SubmissionID, true)
				}
			}()
		}

		var wg sync.WaitGroup
		for p := 0; p < producers; p++ {
			wg.Add(1)
			go func(p int) {
				defer wg.Done()
				for j := 0; j < perProducer; j++ {
					s := submission(fmt.Sprintf("%d-%d", p, j))
					for !q.Enqueue(ctx, s) {
						time.Sleep(time.Millisecond)
					}
				}
			}(p)
		}
		wg.Wait()
		_ = q.Close()
		consumers.Wait()

		Convey("Then every submission is consumed exactly once", func() {
			n := 0
			consumed.Range(func(_, _ any) bool { n++; return true })
			So(n, ShouldEqual, producers*perProducer)
		})
	})
}
