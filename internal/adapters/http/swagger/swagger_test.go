package swagger

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/smartystreets/goconvey/convey"
)

func TestSwaggerHandler(t *testing.T) {
	convey.Convey("Given a router with the docs registered", t, func() {
		r := mux.NewRouter()
		Register(r)

		convey.Convey("When the OpenAPI document is requested", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/openapi.yaml", http.NoBody))

			convey.Convey("Then it describes the session routes", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "application/yaml; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/sessions/{id}/live:")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/matches/relevant:")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "/matches/today:")
			})
		})

		convey.Convey("When the docs page is requested", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api-docs", http.NoBody))

			convey.Convey("Then ReDoc is pointed at the document", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusOK)
				convey.So(w.Header().Get("Content-Type"), convey.ShouldEqual, "text/html; charset=utf-8")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "redoc-container")
				convey.So(w.Body.String(), convey.ShouldContainSubstring, "Redoc.init('/openapi.yaml'")
			})
		})

		convey.Convey("When the docs are posted to", func() {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/openapi.yaml", http.NoBody))

			convey.Convey("Then the method is not allowed", func() {
				convey.So(w.Code, convey.ShouldEqual, http.StatusMethodNotAllowed)
			})
		})
	})

	convey.Convey("Given a nil router", t, func() {
		convey.Convey("Then Register panics", func() {
			convey.So(func() { Register(nil) }, convey.ShouldPanic)
		})
	})
}
