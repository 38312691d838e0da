package middleware_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"timesheet/internal/middleware"
	"timesheet/internal/models/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	var seen string
	h := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, seen)
		assert.Equal(t, seen, w.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "abc-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, "abc-123", seen)
		assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
	})
}

func TestLogging_PassesStatusThrough(t *testing.T) {
	h := middleware.Logging(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/tea", nil))

	assert.Equal(t, http.StatusTeapot, w.Code)
	assert.Equal(t, "short and stout", w.Body.String())
}

func TestRateLimit(t *testing.T) {
	h := middleware.RateLimit(2)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		return w
	}

	first := send("10.0.0.1")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "2", first.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))

	assert.Equal(t, http.StatusOK, send("10.0.0.1").Code)

	limited := send("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	var body map[string]any
	require.NoError(t, json.NewDecoder(limited.Body).Decode(&body))
	assert.Equal(t, "rate_limit_exceeded", body["error"])

	assert.Equal(t, http.StatusOK, send("10.0.0.2").Code, "лимит считается по IP")
}

func TestRateLimit_Disabled(t *testing.T) {
	h := middleware.RateLimit(0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	}
}

func TestIdentity(t *testing.T) {
	var got task.User
	var found bool
	h := middleware.Identity(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, found = middleware.UserFromContext(r.Context())
	}))

	tests := []struct {
		name           string
		userID         string
		role           string
		expectedStatus int
		expectedUser   task.User
	}{
		{
			name:           "employee",
			userID:         "42",
			role:           "employee",
			expectedStatus: http.StatusOK,
			expectedUser:   task.User{ID: 42, Role: task.RoleEmployee},
		},
		{
			name:           "role is case insensitive",
			userID:         " 7 ",
			role:           "Manager",
			expectedStatus: http.StatusOK,
			expectedUser:   task.User{ID: 7, Role: task.RoleManager},
		},
		{name: "missing id", role: "admin", expectedStatus: http.StatusUnauthorized},
		{name: "non numeric id", userID: "bob", role: "admin", expectedStatus: http.StatusUnauthorized},
		{name: "negative id", userID: "-3", role: "admin", expectedStatus: http.StatusUnauthorized},
		{name: "missing role", userID: "42", expectedStatus: http.StatusUnauthorized},
		{name: "unknown role", userID: "42", role: "root", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, found = task.User{}, false

			req := httptest.NewRequest(http.MethodPost, "/tasks/x/start", nil)
			if tt.userID != "" {
				req.Header.Set(middleware.HeaderUserID, tt.userID)
			}
			if tt.role != "" {
				req.Header.Set(middleware.HeaderUserRole, tt.role)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				require.True(t, found)
				assert.Equal(t, tt.expectedUser, got)
				return
			}

			assert.False(t, found)
			var body map[string]any
			require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
			assert.NotEmpty(t, body["message"])
		})
	}
}

func TestRecover(t *testing.T) {
	h := middleware.RequestID(middleware.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})))

	w := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var body map[string]any
	require.NoError(t, json.NewDecoder(w.Body).Decode(&body))
	assert.Equal(t, "внутренняя ошибка сервера", body["message"])
	assert.Equal(t, w.Header().Get("X-Request-ID"), body["request_id"])
}

func TestRecover_AbortHandlerPropagates(t *testing.T) {
	h := middleware.Recover(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic(http.ErrAbortHandler)
	}))

	assert.Panics(t, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}
