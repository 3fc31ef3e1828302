package app

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/metinatakli/cinefeed/internal/favorites"
	"github.com/metinatakli/cinefeed/internal/mocks"
	"github.com/metinatakli/cinefeed/internal/validator"
)

type testDeps struct {
	catalog *mocks.MockCatalogClient
	gate    *mocks.StubGate
	repo    *mocks.MockFavoriteRepo
}

func newTestApplication(t *testing.T, opts ...func(*Application, *testDeps)) (*Application, *testDeps) {
	t.Helper()

	deps := &testDeps{
		catalog: &mocks.MockCatalogClient{},
		gate:    mocks.NewStubGate(domain.Online),
		repo:    &mocks.MockFavoriteRepo{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	sessionManager := scs.New()
	sessionManager.Cookie.Name = "session_id"

	app := &Application{
		config:         Config{Env: "test"},
		validator:      validator.NewValidator(),
		logger:         logger,
		sessionManager: sessionManager,
		catalog:        deps.catalog,
		gate:           deps.gate,
		favorites:      favorites.NewStore(deps.repo, logger),
	}

	for _, opt := range opts {
		opt(app, deps)
	}

	app.feeds = newFeedRegistry(app.newFeedController, time.Minute, logger)

	t.Cleanup(func() {
		app.feeds.Close()
		app.favorites.Close()
	})

	return app, deps
}

func executeRequest(t *testing.T, method, url string, body any) (*httptest.ResponseRecorder, *http.Request) {
	var reader io.Reader

	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(jsonData)
	}

	r := httptest.NewRequest(method, url, reader)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()

	return w, r
}

func checkErrorResponse(t *testing.T, w *httptest.ResponseRecorder, wantStatus int, wantErrMessage string) {
	t.Helper()

	if wantStatus >= 200 && wantStatus < 300 {
		return
	}

	switch wantStatus {
	case http.StatusUnprocessableEntity:
		var validationResp ValidationErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&validationResp); err != nil {
			t.Fatalf("Failed to decode validation error response: %v", err)
		}

		if len(validationResp.ValidationErrors) == 0 {
			if wantErrMessage != "" && validationResp.Message != wantErrMessage {
				t.Errorf("Error message = %v, want %v", validationResp.Message, wantErrMessage)
			}
			return
		}

		errorSet := make(map[string]bool)
		for _, vErr := range validationResp.ValidationErrors {
			errorSet[vErr.Issue] = true
		}

		if !errorSet[wantErrMessage] {
			t.Errorf("Expected validation error message '%s' not found in response", wantErrMessage)
		}

	default:
		var errorResp ErrorResponse
		if err := json.NewDecoder(w.Body).Decode(&errorResp); err != nil {
			t.Fatalf("Failed to decode error response: %v", err)
		}

		if wantErrMessage != "" && errorResp.Message != wantErrMessage {
			t.Errorf("Error message = %v, want %v", errorResp.Message, wantErrMessage)
		}
	}
}

func decodeJSON[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}

	return v
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()

	for _, c := range w.Result().Cookies() {
		if c.Name == "session_id" {
			return c
		}
	}

	t.Fatal("response did not set a session cookie")
	return nil
}

func movieIDs(movies []domain.Movie) []int {
	ids := make([]int, len(movies))
	for i, m := range movies {
		ids[i] = m.ID
	}
	return ids
}

func ptr[T any](v T) *T {
	return &v
}
