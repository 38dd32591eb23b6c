package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestKey(t *testing.T) {
	Convey("Given cache key construction", t, func() {
		Convey("Then unscoped keys carry only the user", func() {
			So(Key("u1", "", ""), ShouldEqual, "recommendation:u1:next")
		})

		Convey("Then scoped keys append course and path", func() {
			So(Key("u1", "c1", ""), ShouldEqual, "recommendation:u1:course:c1:next")
			So(Key("u1", "", "p1"), ShouldEqual, "recommendation:u1:path:p1:next")
			So(Key("u1", "c1", "p1"), ShouldEqual, "recommendation:u1:course:c1:path:p1:next")
		})

		Convey("Then ids containing separators cannot collide with scoped keys", func() {
			So(Key("u1:course:c1", "", ""), ShouldNotEqual, Key("u1", "c1", ""))
			So(Key("u1", "c1:path:p1", ""), ShouldNotEqual, Key("u1", "c1", "p1"))
			So(Key("u1:course:c1", "", ""), ShouldEqual, "recommendation:u1%3Acourse%3Ac1:next")
		})
	})
}

func TestMemoryStore(t *testing.T) {
	Convey("Given a memory store", t, func() {
		clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
		s := NewMemoryStore(WithClock(clock.Now), WithMaxEntries(3))
		ctx := context.Background()

		Convey("When a key is missing", func() {
			_, err := s.Get(ctx, "nope")

			Convey("Then ErrMiss is returned", func() {
				So(errors.Is(err, ErrMiss), ShouldBeTrue)
			})
		})

		Convey("When a value is set", func() {
			src := []byte("payload")
			So(s.Set(ctx, "k", src, 30*time.Second), ShouldBeNil)
			src[0] = 'X'

			Convey("Then a copy is returned within the ttl", func() {
				got, err := s.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, "payload")
				So(s.Size(), ShouldEqual, 1)
			})

			Convey("Then it expires once the ttl elapses", func() {
				clock.Advance(30 * time.Second)
				_, err := s.Get(ctx, "k")
				So(errors.Is(err, ErrMiss), ShouldBeTrue)
				So(s.Size(), ShouldEqual, 0)
			})

			Convey("Then overwriting keeps a single entry", func() {
				So(s.Set(ctx, "k", []byte("v2"), time.Minute), ShouldBeNil)
				got, _ := s.Get(ctx, "k")
				So(string(got), ShouldEqual, "v2")
				So(s.Size(), ShouldEqual, 1)
			})

			Convey("Then Delete removes it", func() {
				So(s.Delete(ctx, "k"), ShouldBeNil)
				So(s.Delete(ctx, "k"), ShouldBeNil)
				_, err := s.Get(ctx, "k")
				So(errors.Is(err, ErrMiss), ShouldBeTrue)
			})
		})

		Convey("When more entries than the bound are set", func() {
			for i := 1; i <= 4; i++ {
				So(s.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0), ShouldBeNil)
			}

			Convey("Then the oldest entry is evicted", func() {
				_, err := s.Get(ctx, "k1")
				So(errors.Is(err, ErrMiss), ShouldBeTrue)
				for _, k := range []string{"k2", "k3", "k4"} {
					_, err := s.Get(ctx, k)
					So(err, ShouldBeNil)
				}
				So(s.Size(), ShouldEqual, 3)
			})
		})
	})
}

func TestMemoryStoreConcurrency(t *testing.T) {
	Convey("Given concurrent writers and readers", t, func() {
		s := NewMemoryStore(WithMaxEntries(50))
		ctx := context.Background()

		var wg sync.WaitGroup
		for w := 0; w < 8; w++ {
			wg.Add(1)
			go func(w int) {
				defer wg.Done()
				for i := 0; i < 200; i++ {
					key := fmt.Sprintf("k%d", (w*200+i)%80)
					_ = s.Set(ctx, key, []byte("v"), time.Minute)
					_, _ = s.Get(ctx, key)
					if i%7 == 0 {
						_ = s.Delete(ctx, key)
					}
				}
			}(w)
		}
		wg.Wait()

		Convey("Then the bound holds", func() {
			So(s.Size(), ShouldBeLessThanOrEqualTo, 50)
			So(s.Size(), ShouldEqual, int64(len(s.entries)))
		})
	})
}
