package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/driverkit/internal/auth"
	"github.com/fivetwenty-io/driverkit/internal/transport"
	"github.com/fivetwenty-io/driverkit/pkg/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Do(t *testing.T) {
	t.Parallel()

	t.Run("successful request", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "/v1/customers", request.URL.Path)
			assert.Equal(t, http.MethodGet, request.Method)
			assert.Equal(t, "Bearer sk_test_123", request.Header.Get("Authorization"))
			assert.Equal(t, "application/json", request.Header.Get("Accept"))

			_ = json.NewEncoder(writer).Encode(map[string]string{"id": "cus_1", "email": "a@example.com"})
		}))
		defer server.Close()

		client := transport.NewClient("stripe", server.URL,
			transport.WithTokenManager(auth.NewStaticTokenManager("sk_test_123")))
		defer client.Close()

		resp, err := client.Get(context.Background(), "/v1/customers", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var result map[string]string
		require.NoError(t, resp.JSON(&result))
		assert.Equal(t, "cus_1", result["id"])
	})

	t.Run("request with query parameters", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "limit=10&starting_after=cus_5", request.URL.RawQuery)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := transport.NewClient("stripe", server.URL)
		defer client.Close()

		query := url.Values{}
		query.Set("limit", "10")
		query.Set("starting_after", "cus_5")

		resp, err := client.Get(context.Background(), "/v1/customers", query)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("request with JSON body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, http.MethodPost, request.Method)
			assert.Equal(t, "application/json", request.Header.Get("Content-Type"))

			var body map[string]string
			_ = json.NewDecoder(request.Body).Decode(&body)
			assert.Equal(t, "Jan", body["name"])

			writer.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := transport.NewClient("mpohoda", server.URL)
		defer client.Close()

		resp, err := client.Post(context.Background(), "/invoices", map[string]string{"name": "Jan"})
		require.NoError(t, err)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)
	})

	t.Run("request with form body", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))

			require.NoError(t, request.ParseForm())
			assert.Equal(t, "a@example.com", request.Form.Get("email"))

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := transport.NewClient("stripe", server.URL)
		defer client.Close()

		form := url.Values{}
		form.Set("email", "a@example.com")

		resp, err := client.PostForm(context.Background(), "/v1/customers", form)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("API key header auth", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "fidoo-key", request.Header.Get("X-Api-Key"))
			assert.Empty(t, request.Header.Get("Authorization"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := transport.NewClient("fidoo", server.URL,
			transport.WithAPIKeyHeader("X-Api-Key", auth.NewStaticTokenManager("fidoo-key")))
		defer client.Close()

		_, err := client.Get(context.Background(), "/users", nil)
		require.NoError(t, err)
	})

	t.Run("basic auth", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			username, password, ok := request.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "api-key", username)
			assert.Equal(t, "secret-key", password)
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := transport.NewClient("amplitude", server.URL,
			transport.WithBasicAuth("api-key", "secret-key"))
		defer client.Close()

		_, err := client.Get(context.Background(), "/api/2/export", nil)
		require.NoError(t, err)
	})

	t.Run("fixed headers", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			assert.Equal(t, "odoo-db", request.Header.Get("X-Odoo-Database"))
			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := transport.NewClient("odoo", server.URL,
			transport.WithHeader("X-Odoo-Database", "odoo-db"))
		defer client.Close()

		_, err := client.Get(context.Background(), "/api/v1/call", nil)
		require.NoError(t, err)
	})
}

func TestClient_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		body    string
		matcher func(error) bool
		message string
	}{
		{
			name:    "401 maps to authentication",
			status:  http.StatusUnauthorized,
			body:    `{"error":{"message":"Invalid API Key provided"}}`,
			matcher: driver.IsAuthentication,
			message: "Invalid API Key provided",
		},
		{
			name:    "403 maps to authentication",
			status:  http.StatusForbidden,
			body:    `{"message":"insufficient permissions"}`,
			matcher: driver.IsAuthentication,
			message: "insufficient permissions",
		},
		{
			name:    "404 maps to object not found",
			status:  http.StatusNotFound,
			body:    `{"detail":"Not found."}`,
			matcher: driver.IsNotFound,
			message: "Not found.",
		},
		{
			name:    "400 maps to query syntax",
			status:  http.StatusBadRequest,
			body:    `{"error":"invalid filter expression"}`,
			matcher: driver.IsQuerySyntax,
			message: "invalid filter expression",
		},
		{
			name:    "422 maps to validation",
			status:  http.StatusUnprocessableEntity,
			body:    `{"message":"email is required"}`,
			matcher: driver.IsValidation,
			message: "email is required",
		},
		{
			name:    "500 maps to connection",
			status:  http.StatusInternalServerError,
			body:    "",
			matcher: driver.IsConnection,
			message: "status 500",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
				writer.WriteHeader(tt.status)
				_, _ = writer.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := transport.NewClient("stripe", server.URL,
				transport.WithRetryConfig(0, time.Millisecond, time.Millisecond))
			defer client.Close()

			_, err := client.Get(context.Background(), "/v1/customers", nil)
			require.Error(t, err)
			assert.True(t, tt.matcher(err), "unexpected kind for %v", err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestClient_RateLimitRetry(t *testing.T) {
	t.Parallel()

	t.Run("succeeds after rate-limited attempts", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) <= 2 {
				writer.Header().Set("Retry-After", "0")
				writer.WriteHeader(http.StatusTooManyRequests)

				return
			}

			_ = json.NewEncoder(writer).Encode(map[string]any{"data": []any{}})
		}))
		defer server.Close()

		client := transport.NewClient("stripe", server.URL,
			transport.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond))
		defer client.Close()

		resp, err := client.Get(context.Background(), "/v1/customers", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(3), attempts.Load())
	})

	t.Run("exhausted retries surface rate limit error", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.Header().Set("Retry-After", "1")
			writer.WriteHeader(http.StatusTooManyRequests)
		}))
		defer server.Close()

		client := transport.NewClient("stripe", server.URL,
			transport.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond))
		defer client.Close()

		_, err := client.Get(context.Background(), "/v1/customers", nil)
		require.Error(t, err)
		assert.True(t, driver.IsRateLimit(err))
		assert.Equal(t, time.Second, driver.RetryAfter(err))
		assert.Equal(t, int64(3), attempts.Load())
	})

	t.Run("server errors are retried", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			if attempts.Add(1) == 1 {
				writer.WriteHeader(http.StatusServiceUnavailable)

				return
			}

			writer.WriteHeader(http.StatusOK)
		}))
		defer server.Close()

		client := transport.NewClient("posthog", server.URL,
			transport.WithRetryConfig(2, time.Millisecond, 5*time.Millisecond))
		defer client.Close()

		resp, err := client.Get(context.Background(), "/api/projects", nil)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, int64(2), attempts.Load())
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		t.Parallel()

		var attempts atomic.Int64

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			attempts.Add(1)
			writer.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		client := transport.NewClient("apify", server.URL,
			transport.WithRetryConfig(3, time.Millisecond, 5*time.Millisecond))
		defer client.Close()

		_, err := client.Get(context.Background(), "/v2/acts/missing", nil)
		require.Error(t, err)
		assert.True(t, driver.IsNotFound(err))
		assert.Equal(t, int64(1), attempts.Load())
	})
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		time.Sleep(200 * time.Millisecond)
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := transport.NewClient("stripe", server.URL,
		transport.WithTimeout(20*time.Millisecond),
		transport.WithRetryConfig(0, time.Millisecond, time.Millisecond))
	defer client.Close()

	_, err := client.Get(context.Background(), "/v1/customers", nil)
	require.Error(t, err)
	assert.True(t, driver.IsTimeout(err), "expected timeout, got %v", err)
}

func TestClient_ConnectionError(t *testing.T) {
	t.Parallel()

	// Nothing listens here.
	client := transport.NewClient("stripe", "http://127.0.0.1:1",
		transport.WithRetryConfig(0, time.Millisecond, time.Millisecond))
	defer client.Close()

	_, err := client.Get(context.Background(), "/v1/customers", nil)
	require.Error(t, err)
	assert.True(t, driver.IsConnection(err), "expected connection error, got %v", err)
}

func TestClient_TokenManagerFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		t.Error("request should not reach the server")
	}))
	defer server.Close()

	manager, err := auth.NewOAuth2TokenManager(&auth.OAuth2Config{
		TokenURL:     "http://127.0.0.1:1/token",
		ClientID:     "id",
		ClientSecret: "secret",
	})
	require.NoError(t, err)

	client := transport.NewClient("mpohoda", server.URL,
		transport.WithTokenManager(manager))
	defer client.Close()

	_, err = client.Get(context.Background(), "/invoices", nil)
	require.Error(t, err)
	assert.True(t, driver.IsAuthentication(err))
}

func TestClient_Interceptors(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "injected", request.Header.Get("X-Custom"))
		writer.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	chain := driver.NewInterceptorChain()
	chain.AddRequestInterceptor(driver.HeaderInterceptor(map[string]string{"X-Custom": "injected"}))

	responses := 0

	chain.AddResponseInterceptor(func(ctx context.Context, req *driver.Request, resp *driver.Response) error {
		responses++

		return nil
	})

	client := transport.NewClient("stripe", server.URL,
		transport.WithInterceptors(chain))
	defer client.Close()

	_, err := client.Get(context.Background(), "/v1/customers", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, responses)
}
