package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantStatus int
		wantJSON   bool
		wantLogged bool
	}{
		{
			name:       "no panic",
			handler:    func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
			wantStatus: http.StatusOK,
		},
		{
			name:       "string panic",
			handler:    func(w http.ResponseWriter, r *http.Request) { panic("boom") },
			wantStatus: http.StatusInternalServerError,
			wantJSON:   true,
			wantLogged: true,
		},
		{
			name: "runtime panic",
			handler: func(w http.ResponseWriter, r *http.Request) {
				var m map[string]string
				m["key"] = "value"
			},
			wantStatus: http.StatusInternalServerError,
			wantJSON:   true,
			wantLogged: true,
		},
		{
			name: "panic after headers",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
				panic("late")
			},
			wantStatus: http.StatusAccepted,
			wantLogged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			core, logs := observer.New(zap.ErrorLevel)
			w := httptest.NewRecorder()
			ErrorHandler(zap.New(core))(tt.handler).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/climbs", nil))

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			if tt.wantJSON {
				var body ErrorResponse
				if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if body.Success || body.Error != "Internal Server Error" || body.Path != "/api/v1/climbs" {
					t.Errorf("unexpected envelope %+v", body)
				}
			}
			entries := logs.FilterMessage("panic_recovered").All()
			if got := len(entries) == 1; got != tt.wantLogged {
				t.Fatalf("panic_recovered logged = %v, want %v", got, tt.wantLogged)
			}
			if tt.wantLogged && entries[0].ContextMap()["path"] != "/api/v1/climbs" {
				t.Errorf("path = %v, want /api/v1/climbs", entries[0].ContextMap()["path"])
			}
		})
	}
}

func TestErrorHandler_RepanicsAbort(t *testing.T) {
	t.Parallel()

	h := ErrorHandler(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Errorf("recovered %v, want http.ErrAbortHandler", rec)
		}
	}()
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
