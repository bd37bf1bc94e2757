package apiclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seen struct {
	method string
	path   string
	query  string
	auth   string
	body   string
	ctype  string
}

func newServer(t *testing.T, got *seen) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	record := func(w http.ResponseWriter, req *http.Request) {
		data, _ := io.ReadAll(req.Body)
		*got = seen{
			method: req.Method,
			path:   req.URL.Path,
			query:  req.URL.RawQuery,
			auth:   req.Header.Get("Authorization"),
			body:   string(data),
			ctype:  req.Header.Get("Content-Type"),
		}
	}
	r.Get("/accounts/{id}", func(w http.ResponseWriter, req *http.Request) {
		record(w, req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"` + chi.URLParam(req, "id") + `"}`))
	})
	r.Post("/accounts", func(w http.ResponseWriter, req *http.Request) {
		record(w, req)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"1"}`))
	})
	r.Put("/accounts/{id}", record)
	r.Patch("/accounts/{id}", record)
	r.Delete("/accounts/{id}", func(w http.ResponseWriter, req *http.Request) {
		record(w, req)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"gone"}`))
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPClient_Operations(t *testing.T) {
	var got seen
	srv := newServer(t, &got)
	c := New(Options{BaseURL: srv.URL + "/", Token: "default-token", Timeout: 5 * time.Second})
	ctx := context.Background()

	resp, err := c.Get(ctx, Request{
		URL:         "/accounts/{id}",
		PathParams:  []Param{{Name: "id", Value: "a b"}},
		QueryParams: []Param{{Name: "expand", Value: "owner"}},
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"id":"a b"}`, string(resp.Body))
	assert.Equal(t, "/accounts/a b", got.path)
	assert.Equal(t, "expand=owner", got.query)
	assert.Equal(t, "Bearer default-token", got.auth)
	assert.Empty(t, got.body)

	resp, err = c.Post(ctx, Request{URL: "accounts", Body: []byte(`{"name":"n"}`), Token: "override"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, `{"name":"n"}`, got.body)
	assert.Equal(t, "application/json", got.ctype)
	assert.Equal(t, "Bearer override", got.auth)

	_, err = c.Put(ctx, Request{URL: "/accounts/1", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, got.method)

	_, err = c.Patch(ctx, Request{URL: "/accounts/1", Body: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, got.method)

	resp, err = c.Delete(ctx, Request{URL: "/accounts/1"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Nil(t, resp.Body)
}

func TestHTTPClient_NoToken(t *testing.T) {
	var got seen
	srv := newServer(t, &got)
	c := New(Options{BaseURL: srv.URL})

	_, err := c.Get(context.Background(), Request{URL: "/accounts/x"})
	require.NoError(t, err)
	assert.Empty(t, got.auth)
}

func TestHTTPClient_TransportError(t *testing.T) {
	c := New(Options{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})
	_, err := c.Get(context.Background(), Request{URL: "/x"})
	assert.Error(t, err)
}

func TestResolveURL(t *testing.T) {
	c := New(Options{BaseURL: "https://api.example.com/v1"})

	u, err := c.ResolveURL(Request{URL: "/items/{id}", PathParams: []Param{{Name: "id", Value: "42"}}})
	require.NoError(t, err)
	assert.Equal(t, "https://api.example.com/v1/items/42", u)

	u, err = c.ResolveURL(Request{URL: "http://other.test/x?a=1", QueryParams: []Param{{Name: "b", Value: "2"}}})
	require.NoError(t, err)
	assert.Equal(t, "http://other.test/x?a=1&b=2", u)
}
