package integration_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/metinatakli/cinefeed/internal/domain"
	"github.com/stretchr/testify/require"
)

var keysToIgnore = map[string]struct{}{
	"timestamp": {},
	"requestId": {},
	"createdAt": {},
}

func prepareRequest(method, path string, body io.Reader, headers map[string]string, cookies []http.Cookie) (*http.Request, error) {
	req := httptest.NewRequest(method, path, body)

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	for _, c := range cookies {
		req.AddCookie(&c)
	}

	return req, nil
}

func compareResponse(t *testing.T, body io.Reader, expectedResponse string) {
	var actual map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&actual))

	cleanMap(actual)

	var expected map[string]any
	require.NoError(t, json.Unmarshal([]byte(expectedResponse), &expected))

	// ignore indetermistic fields while comparing
	opts := cmpopts.IgnoreMapEntries(func(k string, _ any) bool {
		_, ok := keysToIgnore[k]
		return ok
	})

	if diff := cmp.Diff(expected, actual, opts); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}
}

func cleanMap(m map[string]any) {
	for k := range m {
		if _, ok := keysToIgnore[k]; ok {
			delete(m, k)
			continue
		}

		switch v := m[k].(type) {
		case map[string]any:
			cleanMap(v)
		case []any:
			for _, item := range v {
				if nested, ok := item.(map[string]any); ok {
					cleanMap(nested)
				}
			}
		}
	}
}

func sessionCookie(t testing.TB, res *http.Response) http.Cookie {
	t.Helper()

	for _, c := range res.Cookies() {
		if c.Name == "session_id" {
			return *c
		}
	}

	t.Fatal("response did not set a session cookie")
	return http.Cookie{}
}

// FakeCatalog serves TestCatalogPages in the wire format of the catalog API.
type FakeCatalog struct {
	server *httptest.Server
	calls  atomic.Int64
}

type fakeMovie struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	GenreIDs []int  `json:"genre_ids"`
}

func newFakeCatalog() *FakeCatalog {
	fc := &FakeCatalog{}

	r := chi.NewRouter()

	r.Get("/movie/popular", func(w http.ResponseWriter, r *http.Request) {
		fc.calls.Add(1)

		if r.URL.Query().Get("api_key") != TestCatalogAPIKey {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		page, _ := strconv.Atoi(r.URL.Query().Get("page"))

		results := []fakeMovie{}
		for _, m := range TestCatalogPages[page] {
			results = append(results, fakeMovie{ID: m.ID, Title: m.Title, GenreIDs: m.GenreIDs})
		}

		writeFake(w, map[string]any{
			"page":          page,
			"total_pages":   TestCatalogTotalPages,
			"total_results": 3,
			"results":       results,
		})
	})

	r.Get("/genre/movie/list", func(w http.ResponseWriter, r *http.Request) {
		writeFake(w, map[string]any{"genres": TestGenres})
	})

	r.Get("/movie/{id}", func(w http.ResponseWriter, r *http.Request) {
		id, _ := strconv.Atoi(chi.URLParam(r, "id"))

		for _, movies := range TestCatalogPages {
			for _, m := range movies {
				if m.ID != id {
					continue
				}

				genres := []domain.Genre{}
				for _, g := range TestGenres {
					if m.HasGenre(g.ID) {
						genres = append(genres, g)
					}
				}

				writeFake(w, map[string]any{
					"id":      m.ID,
					"title":   m.Title,
					"runtime": 100,
					"genres":  genres,
				})
				return
			}
		}

		w.WriteHeader(http.StatusNotFound)
	})

	fc.server = httptest.NewServer(r)

	return fc
}

func writeFake(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (fc *FakeCatalog) URL() string {
	return fc.server.URL
}

// PageCalls is the number of page requests served since the last Reset.
func (fc *FakeCatalog) PageCalls() int {
	return int(fc.calls.Load())
}

func (fc *FakeCatalog) Reset() {
	fc.calls.Store(0)
}

func (fc *FakeCatalog) Close() {
	fc.server.Close()
}

func jsonBody(t testing.TB, v any) io.Reader {
	t.Helper()

	b, err := json.Marshal(v)
	require.NoError(t, err)

	return bytes.NewReader(b)
}
