package posthog_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fivetwenty-io/driverkit/internal/vendors/posthog"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDriver(t *testing.T, handler http.Handler) *posthog.Driver {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	d, err := posthog.New(&driver.Config{
		BaseURL:   server.URL,
		APIKey:    "phx_key",
		ProjectID: "123",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	return d
}

func TestFromEnv_MissingKey(t *testing.T) {
	t.Setenv("POSTHOG_API_KEY", "")

	_, err := posthog.FromEnv(nil)
	require.Error(t, err)
	assert.True(t, driver.IsAuthentication(err))
}

func TestRead_ProjectScopedPath(t *testing.T) {
	t.Parallel()

	d := newDriver(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/environments/123/dashboards/", request.URL.Path)
		assert.Equal(t, "Bearer phx_key", request.Header.Get("Authorization"))

		_ = json.NewEncoder(writer).Encode(map[string]any{
			"results": []map[string]any{{"id": 1, "name": "Growth"}},
			"next":    nil,
		})
	}))

	records, err := d.Read(context.Background(), driver.NewQuery("dashboards").WithLimit(10))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1", records[0].ID())
}

func TestRead_DefaultProject(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "/environments/default/persons/", request.URL.Path)
		_ = json.NewEncoder(writer).Encode(map[string]any{"results": []map[string]any{}})
	}))
	t.Cleanup(server.Close)

	d, err := posthog.New(&driver.Config{BaseURL: server.URL, APIKey: "phx_key"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Read(context.Background(), driver.NewQuery("persons"))
	require.NoError(t, err)
}

func TestReadBatched_FollowsNextLink(t *testing.T) {
	t.Parallel()

	var serverURL string

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		cursor := request.URL.Query().Get("cursor")

		var payload map[string]any

		switch cursor {
		case "":
			payload = map[string]any{
				"results": []map[string]any{{"id": "p1"}, {"id": "p2"}},
				"next":    fmt.Sprintf("%s/environments/123/persons/?cursor=abc&limit=2", serverURL),
			}
		case "abc":
			payload = map[string]any{
				"results": []map[string]any{{"id": "p3"}},
				"next":    nil,
			}
		default:
			t.Errorf("unexpected cursor %q", cursor)
		}

		_ = json.NewEncoder(writer).Encode(payload)
	}))
	t.Cleanup(server.Close)
	serverURL = server.URL

	d, err := posthog.New(&driver.Config{BaseURL: server.URL, APIKey: "phx_key", ProjectID: "123"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	it, err := d.ReadBatched(context.Background(), driver.NewQuery("persons").WithLimit(2))
	require.NoError(t, err)

	all, err := it.All(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "p3", all[2].ID())
}

func TestCreate(t *testing.T) {
	t.Parallel()

	t.Run("posts with trailing slash", func(t *testing.T) {
		t.Parallel()

		d := newDriver(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "/environments/123/feature_flags/", request.URL.Path)

			var body map[string]any
			require.NoError(t, json.NewDecoder(request.Body).Decode(&body))
			assert.Equal(t, "new-onboarding", body["key"])

			writer.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(writer).Encode(map[string]any{"id": 5, "key": "new-onboarding"})
		}))

		record, err := d.Create(context.Background(), "feature_flags", driver.Record{"key": "new-onboarding"})
		require.NoError(t, err)
		assert.Equal(t, "5", record.ID())
	})

	t.Run("ingested collections are read-only", func(t *testing.T) {
		t.Parallel()

		d := newDriver(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			t.Error("no HTTP request expected")
		}))

		_, err := d.Create(context.Background(), "events", driver.Record{"event": "signup"})
		require.Error(t, err)
		assert.True(t, driver.IsNotImplemented(err))
	})
}

func TestUpdate_UsesPatch(t *testing.T) {
	t.Parallel()

	d := newDriver(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodPatch, request.Method)
		assert.Equal(t, "/environments/123/feature_flags/5/", request.URL.Path)

		_ = json.NewEncoder(writer).Encode(map[string]any{"id": 5, "active": false})
	}))

	record, err := d.Update(context.Background(), "feature_flags", "5", driver.Record{"active": false})
	require.NoError(t, err)
	assert.Equal(t, false, record["active"])
}

func TestDelete(t *testing.T) {
	t.Parallel()

	d := newDriver(t, http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, http.MethodDelete, request.Method)
		assert.Equal(t, "/environments/123/dashboards/9/", request.URL.Path)
		writer.WriteHeader(http.StatusNoContent)
	}))

	deleted, err := d.Delete(context.Background(), "dashboards", "9")
	require.NoError(t, err)
	assert.True(t, deleted)
}

func TestCapabilities(t *testing.T) {
	t.Parallel()

	d := newDriver(t, http.NotFoundHandler())
	caps := d.Capabilities()

	assert.Equal(t, driver.PaginationCursor, caps.Pagination)
	assert.Equal(t, 100, caps.MaxPageSize)
	assert.False(t, caps.BatchOperations)
}
