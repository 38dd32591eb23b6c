package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRedisStore(t *testing.T) {
	Convey("Given a redis store on miniredis", t, func() {
		mr := miniredis.RunT(t)
		ctx := context.Background()
		s, err := NewRedisStore(ctx, RedisConfig{Addr: mr.Addr()})
		So(err, ShouldBeNil)
		defer s.Close()

		Convey("When a value is set with a ttl", func() {
			So(s.Set(ctx, "recommendation:u1:next", []byte(`{"a":1}`), 30*time.Second), ShouldBeNil)

			Convey("Then it is readable and carries the ttl", func() {
				got, err := s.Get(ctx, "recommendation:u1:next")
				So(err, ShouldBeNil)
				So(string(got), ShouldEqual, `{"a":1}`)
				So(mr.TTL("recommendation:u1:next"), ShouldEqual, 30*time.Second)
			})

			Convey("Then it expires after the ttl", func() {
				mr.FastForward(31 * time.Second)
				_, err := s.Get(ctx, "recommendation:u1:next")
				So(errors.Is(err, ErrMiss), ShouldBeTrue)
			})

			Convey("Then Delete removes it", func() {
				So(s.Delete(ctx, "recommendation:u1:next"), ShouldBeNil)
				So(mr.Exists("recommendation:u1:next"), ShouldBeFalse)
			})
		})

		Convey("When the key is absent", func() {
			_, err := s.Get(ctx, "missing")

			Convey("Then ErrMiss is returned", func() {
				So(errors.Is(err, ErrMiss), ShouldBeTrue)
			})
		})

		Convey("When redis goes away", func() {
			mr.Close()
			_, getErr := s.Get(ctx, "k")
			setErr := s.Set(ctx, "k", []byte("v"), time.Second)

			Convey("Then operations report ErrUnavailable", func() {
				So(errors.Is(getErr, ErrUnavailable), ShouldBeTrue)
				So(errors.Is(setErr, ErrUnavailable), ShouldBeTrue)
			})
		})
	})

	Convey("Given an unreachable redis", t, func() {
		_, err := NewRedisStore(context.Background(), RedisConfig{})

		Convey("Then construction fails", func() {
			So(errors.Is(err, ErrUnavailable), ShouldBeTrue)
		})
	})
}
