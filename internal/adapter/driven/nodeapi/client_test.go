package nodeapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/envpanel/internal/adapter/driven/nodeapi"
	"github.com/ericfisherdev/envpanel/internal/domain/model"
	"github.com/ericfisherdev/envpanel/internal/domain/port/driven"
)

const testCredential = "secret-token"

// newTestClient creates a Client backed by the given httptest handler.
func newTestClient(t *testing.T, handler http.Handler) *nodeapi.Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := nodeapi.NewClientWithHTTPClient(server.Client(), server.URL+"/api", slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)

	return client
}

func TestNewClient_RejectsRelativeBaseURL(t *testing.T) {
	_, err := nodeapi.NewClient("/relative/path", time.Second, slog.Default())
	assert.Error(t, err)
}

func TestCheckCredential_Accepted(t *testing.T) {
	var gotPath, gotHeader string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Get(nodeapi.CredentialHeader)
		w.WriteHeader(http.StatusOK)
	}))

	ok, err := client.CheckCredential(context.Background(), testCredential)

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/api/node-system/auth-token-check", gotPath)
	assert.Equal(t, testCredential, gotHeader)
}

func TestCheckCredential_RejectedOnNon200(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden, http.StatusNoContent, http.StatusInternalServerError} {
		client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(status)
		}))

		ok, err := client.CheckCredential(context.Background(), testCredential)

		require.NoError(t, err, "status %d", status)
		assert.False(t, ok, "status %d", status)
	}
}

func TestCheckCredential_TransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := nodeapi.NewClientWithHTTPClient(server.Client(), server.URL, slog.Default())
	require.NoError(t, err)
	server.Close()

	ok, err := client.CheckCredential(context.Background(), testCredential)

	assert.Error(t, err)
	assert.False(t, ok)
}

func TestListEntries_DecodesArray(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/node-system/env-list-edit", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"category":"db","key":"HOST","value":"localhost","description":"primary"},
			{"category":"mail","key":"FROM","value":"noreply@example.com"}
		]`))
	}))

	entries, err := client.ListEntries(context.Background(), testCredential)

	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.Entry{Category: "db", Key: "HOST", Value: "localhost", Description: "primary"}, entries[0])
	assert.Equal(t, "", entries[1].Description)
}

func TestListEntries_NonArrayYieldsEmpty(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"message":"nothing here"}`))
	}))

	entries, err := client.ListEntries(context.Background(), testCredential)

	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestListEntries_ServerError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := client.ListEntries(context.Background(), testCredential)

	var statusErr *nodeapi.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestAddEntry_SendsJSONAndAcceptsOK(t *testing.T) {
	var got model.Entry
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/node-system/env-add-entry", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, testCredential, r.Header.Get(nodeapi.CredentialHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"OK"}`))
	}))

	entry := model.Entry{Category: "db", Key: "PORT", Value: "5432", Description: "postgres"}
	err := client.AddEntry(context.Background(), testCredential, entry)

	require.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestAddEntry_RejectionCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":"Key already exists"}`))
	}))

	err := client.AddEntry(context.Background(), testCredential, model.Entry{Category: "a", Key: "b", Value: "c"})

	var rejected *driven.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Key already exists", rejected.Message)
}

func TestUpdateEntry_EmptyResultUsesFallbackMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/node-system/env-update-entry", r.URL.Path)
		_, _ = w.Write([]byte(`{}`))
	}))

	err := client.UpdateEntry(context.Background(), testCredential, model.Entry{Category: "a", Key: "b", Value: "c"})

	var rejected *driven.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Error updating environment variable", rejected.Error())
}

func TestUpdateEntry_NonJSONErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	err := client.UpdateEntry(context.Background(), testCredential, model.Entry{Category: "a", Key: "b", Value: "c"})

	var statusErr *nodeapi.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
}

func TestUpdateEntry_SendsClearedDescription(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"result":"OK"}`))
	}))

	err := client.UpdateEntry(context.Background(), testCredential, model.Entry{Category: "db", Key: "HOST", Value: "x"})

	require.NoError(t, err)
	require.Contains(t, got, "description")
	assert.Equal(t, map[string]any{"category": "db", "key": "HOST", "value": "x", "description": ""}, got)
}

func TestRemoveEntry_SendsCategoryAndKey(t *testing.T) {
	var got map[string]string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/node-system/env-remove-entry", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))

	err := client.RemoveEntry(context.Background(), testCredential, "db", "HOST")

	require.NoError(t, err)
	assert.Equal(t, map[string]string{"category": "db", "key": "HOST"}, got)
}

func TestRemoveEntry_SuccessFalse(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":false}`))
	}))

	err := client.RemoveEntry(context.Background(), testCredential, "db", "HOST")

	var rejected *driven.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "Error deleting environment variable", rejected.Message)
}

func TestTree_ReturnsRawJSON(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/node-system/env-list-view", r.URL.Path)
		_, _ = w.Write([]byte(`{"db":{"HOST":"localhost"}}`))
	}))

	tree, err := client.Tree(context.Background(), testCredential)

	require.NoError(t, err)
	assert.JSONEq(t, `{"db":{"HOST":"localhost"}}`, string(tree))
}

func TestTree_ErrorStatus(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Tree(context.Background(), testCredential)

	var statusErr *nodeapi.StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Contains(t, statusErr.Error(), "401")
}

func TestTree_CachedResponsesAreKeptPerCredential(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "max-age=60")
		_ = json.NewEncoder(w).Encode(map[string]string{"token": r.Header.Get(nodeapi.CredentialHeader)})
	}))
	t.Cleanup(server.Close)

	client, err := nodeapi.NewClient(server.URL, 5*time.Second, slog.Default())
	require.NoError(t, err)

	first, err := client.Tree(context.Background(), "alpha")
	require.NoError(t, err)
	second, err := client.Tree(context.Background(), "beta")
	require.NoError(t, err)

	assert.JSONEq(t, `{"token":"alpha"}`, string(first))
	assert.JSONEq(t, `{"token":"beta"}`, string(second))
}

// versionedTreeServer serves a tree with a long max-age and an ETag tied to
// version, answering matching conditional requests with 304.
type versionedTreeServer struct {
	mu          sync.Mutex
	version     int
	notModified int
}

func (s *versionedTreeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	etag := fmt.Sprintf(`"v%d"`, s.version)
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		s.notModified++
		w.WriteHeader(http.StatusNotModified)
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]int{"version": s.version})
}

func (s *versionedTreeServer) bump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
}

func TestTree_RevalidatesDespiteMaxAge(t *testing.T) {
	tree := &versionedTreeServer{version: 1}
	server := httptest.NewServer(tree)
	t.Cleanup(server.Close)

	client, err := nodeapi.NewClient(server.URL, 5*time.Second, slog.Default())
	require.NoError(t, err)

	first, err := client.Tree(context.Background(), testCredential)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(first))

	tree.bump()

	second, err := client.Tree(context.Background(), testCredential)
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":2}`, string(second))
}

func TestTree_NotModifiedServedFromCache(t *testing.T) {
	tree := &versionedTreeServer{version: 1}
	server := httptest.NewServer(tree)
	t.Cleanup(server.Close)

	client, err := nodeapi.NewClient(server.URL, 5*time.Second, slog.Default())
	require.NoError(t, err)

	_, err = client.Tree(context.Background(), testCredential)
	require.NoError(t, err)
	again, err := client.Tree(context.Background(), testCredential)
	require.NoError(t, err)

	assert.JSONEq(t, `{"version":1}`, string(again))
	assert.Equal(t, 1, tree.notModified)
}
