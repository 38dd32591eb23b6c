package api_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/orbit-recommendation/internal/adapters/http/api"
	"github.com/okian/orbit-recommendation/internal/domain/model"
	"github.com/okian/orbit-recommendation/pkg/logger"
)

type call struct {
	method, userID, courseID, pathID string
}

type mockService struct {
	mu            sync.Mutex
	calls         []call
	invalidateErr error
}

func (m *mockService) record(c call) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, c)
}

func (m *mockService) last() call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[len(m.calls)-1]
}

func (m *mockService) Next(_ context.Context, userID string) model.Recommendation {
	m.record(call{method: "Next", userID: userID})
	return model.Recommendation{
		Type: model.TypeLesson, TargetID: "c1-lesson-2", Title: "Continue with next lesson",
		Reason: "r", Confidence: 0.85, RuleApplied: model.RuleSequentialProgress,
	}
}

func (m *mockService) All(ctx context.Context, userID string) []model.Recommendation {
	m.record(call{method: "All", userID: userID})
	return []model.Recommendation{model.Fallback()}
}

func (m *mockService) Contextual(_ context.Context, userID, courseID, pathID string) model.Recommendation {
	m.record(call{method: "Contextual", userID: userID, courseID: courseID, pathID: pathID})
	return model.Recommendation{
		Type: model.TypeCourse, TargetID: "p1-course-next", Title: "t",
		Reason: "r", Confidence: 0.8, RuleApplied: model.RulePathContinuation,
	}
}

func (m *mockService) Invalidate(_ context.Context, userID, courseID, pathID string) error {
	m.record(call{method: "Invalidate", userID: userID, courseID: courseID, pathID: pathID})
	return m.invalidateErr
}

type mockStats struct{}

func (mockStats) GetStats() map[string]any {
	return map[string]any{"started": true, "decisions": 3}
}

func newTestHandler(svc *mockService) http.Handler {
	mux := http.NewServeMux()
	api.NewServer(svc, mockStats{}).Register(context.Background(), mux)
	return api.RequestIDMiddleware(mux)
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, http.NoBody)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestRecommendationRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		So(logger.Init(), ShouldBeNil)
		svc := &mockService{}
		h := newTestHandler(svc)

		Convey("When requesting the next recommendation", func() {
			w := serve(h, http.MethodGet, "/recommendations/users/u1/next")

			Convey("Then the unscoped decision is returned as camelCase JSON", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Header().Get("Content-Type"), ShouldEqual, "application/json; charset=utf-8")
				So(svc.last(), ShouldResemble, call{method: "Next", userID: "u1"})

				var body map[string]any
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body["type"], ShouldEqual, "LESSON")
				So(body["targetId"], ShouldEqual, "c1-lesson-2")
				So(body["ruleApplied"], ShouldEqual, "SEQUENTIAL_PROGRESS")
				So(body["confidence"], ShouldEqual, 0.85)
			})
		})

		Convey("When a course or path is given", func() {
			w := serve(h, http.MethodGet, "/recommendations/users/u1/next?courseId=c1&pathId=p1")

			Convey("Then the contextual variant is used", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(svc.last(), ShouldResemble, call{method: "Contextual", userID: "u1", courseID: "c1", pathID: "p1"})
				So(w.Body.String(), ShouldContainSubstring, `"ruleApplied":"PATH_CONTINUATION"`)
			})
		})

		Convey("When listing all recommendations", func() {
			w := serve(h, http.MethodGet, "/recommendations/users/u1")

			Convey("Then an array is returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				var body []model.Recommendation
				So(json.Unmarshal(w.Body.Bytes(), &body), ShouldBeNil)
				So(body, ShouldHaveLength, 1)
				So(body[0].RuleApplied, ShouldEqual, model.RuleFallback)
			})
		})

		Convey("When the user id is blank", func() {
			w := serve(h, http.MethodGet, "/recommendations/users/%20/next")

			Convey("Then it is rejected", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(w.Body.String(), ShouldContainSubstring, "bad_request")
			})
		})

		Convey("When invalidating a cached entry", func() {
			w := serve(h, http.MethodDelete, "/recommendations/users/u1/cache?courseId=c1")

			Convey("Then 204 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNoContent)
				So(svc.last(), ShouldResemble, call{method: "Invalidate", userID: "u1", courseID: "c1"})
			})
		})

		Convey("When invalidation fails", func() {
			svc.invalidateErr = errors.New("redis down")
			w := serve(h, http.MethodDelete, "/recommendations/users/u1/cache")

			Convey("Then 503 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
				So(w.Body.String(), ShouldContainSubstring, "cache_unavailable")
			})
		})

		Convey("When using the wrong method", func() {
			w := serve(h, http.MethodPost, "/recommendations/users/u1/next")

			Convey("Then the mux rejects it", func() {
				So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})
}

func TestOperationalRoutes(t *testing.T) {
	Convey("Given the API server", t, func() {
		So(logger.Init(), ShouldBeNil)
		h := newTestHandler(&mockService{})

		Convey("When requesting stats", func() {
			w := serve(h, http.MethodGet, "/stats")

			Convey("Then the provider's stats are encoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, `"decisions":3`)
			})
		})

		Convey("When posting to stats", func() {
			w := serve(h, http.MethodPost, "/stats")

			Convey("Then 404 is returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("When scraping health after a request", func() {
			_ = serve(h, http.MethodGet, "/recommendations/users/u1/next")
			w := serve(h, http.MethodGet, "/healthz")

			Convey("Then the service metrics are exposed", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(w.Body.String(), ShouldContainSubstring, "orbit_recommendation_http_requests_total")
			})
		})
	})
}

func TestRequestIDMiddleware(t *testing.T) {
	Convey("Given the request id middleware", t, func() {
		So(logger.Init(), ShouldBeNil)
		h := newTestHandler(&mockService{})

		Convey("When the caller sends no id", func() {
			w := serve(h, http.MethodGet, "/stats")

			Convey("Then one is assigned", func() {
				So(len(w.Header().Get(api.RequestIDHeader)), ShouldEqual, 36)
			})
		})

		Convey("When the caller sends an id", func() {
			req := httptest.NewRequest(http.MethodGet, "/stats", http.NoBody)
			req.Header.Set(api.RequestIDHeader, "req-42")
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			Convey("Then it is echoed back", func() {
				So(w.Header().Get(api.RequestIDHeader), ShouldEqual, "req-42")
				So(strings.TrimSpace(w.Body.String()), ShouldNotBeEmpty)
			})
		})
	})
}
