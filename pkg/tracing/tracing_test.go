package tracing_test

import (
	"context"
	"testing"

	"github.com/okian/orbit-recommendation/pkg/tracing"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSetup(t *testing.T) {
	Convey("Given tracing setup", t, func() {
		ctx := context.Background()

		Convey("When the endpoint is empty", func() {
			shutdown, err := tracing.Setup(ctx, "test-service", "  ")

			Convey("Then a no-op shutdown is returned", func() {
				So(err, ShouldBeNil)
				So(shutdown(ctx), ShouldBeNil)
			})
		})

		Convey("When an unreachable endpoint is configured", func() {
			// Non-routable address; nothing is exported before shutdown.
			shutdown, err := tracing.Setup(ctx, "test-service", "http://192.0.2.1:4318")

			Convey("Then the provider is installed and shuts down cleanly", func() {
				So(err, ShouldBeNil)
				So(shutdown(ctx), ShouldBeNil)
			})
		})

		Convey("Then a tracer is always available", func() {
			_, span := tracing.Tracer().Start(ctx, "noop-check")
			span.End()
			So(span, ShouldNotBeNil)
		})
	})
}
