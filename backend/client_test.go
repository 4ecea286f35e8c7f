package backend

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)
	return client
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func TestNewClient(t *testing.T) {
	logger := zerolog.Nop()

	tests := []struct {
		name    string
		baseURL string
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid config",
			baseURL: "http://localhost:5000",
		},
		{
			name:    "trailing slash trimmed",
			baseURL: "http://localhost:5000/",
		},
		{
			name:    "missing URL",
			baseURL: "",
			wantErr: true,
			errMsg:  "backend URL is required",
		},
		{
			name:    "relative URL",
			baseURL: "localhost",
			wantErr: true,
			errMsg:  "invalid backend URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewClient(tt.baseURL, logger)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidConfig)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "http://localhost:5000", client.BaseURL())
			assert.NotNil(t, client.httpClient.Jar)
		})
	}
}

func TestClientOptions(t *testing.T) {
	logger := zerolog.Nop()

	t.Run("with timeout", func(t *testing.T) {
		client, err := NewClient("http://localhost:5000", logger, WithTimeout(5*time.Second))
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, client.httpClient.Timeout)
		assert.Zero(t, client.streamClient.Timeout)
	})

	t.Run("with custom http client", func(t *testing.T) {
		custom := &http.Client{Timeout: 10 * time.Second}
		client, err := NewClient("http://localhost:5000", logger, WithHTTPClient(custom))
		require.NoError(t, err)
		assert.Same(t, custom, client.httpClient)
		assert.NotNil(t, custom.Jar)
	})
}

func TestPhaseQuery(t *testing.T) {
	phases := []Phase{"RUNNING", "PENDING", "ERROR", "COMPLETE"}
	assert.Equal(t, "phase=RUNNING&phase=PENDING&phase=ERROR&phase=COMPLETE", PhaseQuery(phases))
	assert.Equal(t, "phase=PHASE_TYPE_ERROR&phase=PHASE_TYPE_RUNNING", PhaseQuery([]Phase{PhaseError, PhaseRunning}))
	assert.Empty(t, PhaseQuery(nil))
}

func TestLoginKeepsSessionCookie(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "alice", body["username"])
			assert.Equal(t, "secret", body["password"])

			http.SetCookie(w, &http.Cookie{Name: "session", Value: "abc", Path: "/"})
			writeJSON(w, http.StatusOK, map[string]any{
				"success": true,
				"user":    map[string]string{"username": "alice", "user_id": "u1"},
			})
		case "/api/user":
			cookie, err := r.Cookie("session")
			if err != nil || cookie.Value != "abc" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
				return
			}
			assert.Empty(t, r.Header.Get("Content-Type"))
			writeJSON(w, http.StatusOK, map[string]string{"username": "alice", "user_id": "u1"})
		default:
			http.NotFound(w, r)
		}
	})

	ctx := context.Background()

	_, err := client.CurrentUser(ctx)
	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))

	user, err := client.Login(ctx, "alice", "secret")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, "u1", user.UserID)

	user, err = client.CurrentUser(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.DisplayName())
}

func TestAPIErrorCarriesServerMessage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Magnet URL required"})
	})

	_, err := client.AddDownload(context.Background(), AddDownloadRequest{})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Magnet URL required", apiErr.Message)
	assert.Equal(t, "Magnet URL required", Message(err))
}

func TestAPIErrorWithoutJSONBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html>bad gateway</html>")
	})

	err := client.Logout(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "Bad Gateway", apiErr.Message)
	assert.Contains(t, apiErr.Body, "bad gateway")
}

func TestTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := NewClient(server.URL, zerolog.Nop())
	require.NoError(t, err)
	server.Close()

	_, err = client.ListTasks(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoConnection)
	assert.Equal(t, "Cannot reach the server", Message(err))
}

func TestMalformedResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "{not json")
	})

	_, err := client.ListFiles(context.Background(), "", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidResponse)
}

func TestListTasks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tasks", r.URL.Path)
		assert.Equal(t, "phase=PHASE_TYPE_RUNNING&phase=PHASE_TYPE_ERROR", r.URL.RawQuery)
		io.WriteString(w, `{"tasks":[
			{"id":"t1","name":"ubuntu.iso","phase":"PHASE_TYPE_RUNNING","progress":42,"file_size":"1073741824"},
			{"id":"t2","name":"broken","phase":"PHASE_TYPE_ERROR","progress":0,"message":"no seeds"}
		],"next_page_token":""}`)
	})

	list, err := client.ListTasks(context.Background(), PhaseRunning, PhaseError)
	require.NoError(t, err)
	require.Len(t, list.Tasks, 2)
	assert.Equal(t, PhaseRunning, list.Tasks[0].Phase)
	assert.Equal(t, 42, list.Tasks[0].Progress)
	assert.Equal(t, int64(1<<30), list.Tasks[0].FileSize.Int64())
	assert.Equal(t, "no seeds", list.Tasks[1].Message)
}

func TestListTasksMissingCollection(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		io.WriteString(w, `{}`)
	})

	list, err := client.ListTasks(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, list.Tasks)
	assert.Empty(t, list.Tasks)
}

func TestDeleteAndRetryTask(t *testing.T) {
	var mu sync.Mutex
	var calls []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls = append(calls, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)
		mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	ctx := context.Background()
	require.NoError(t, client.DeleteTask(ctx, "t1", true))
	require.NoError(t, client.DeleteTask(ctx, "t2", false))
	require.NoError(t, client.RetryTask(ctx, "t3"))

	assert.Equal(t, []string{
		"DELETE /api/tasks/t1?delete_files=true",
		"DELETE /api/tasks/t2?delete_files=false",
		"POST /api/tasks/t3/retry?",
	}, calls)
}

func TestListFilesParams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "folder-1", r.URL.Query().Get("parent_id"))
		assert.Equal(t, "next", r.URL.Query().Get("page_token"))
		io.WriteString(w, `{"files":[{"id":"f1","name":"a.mkv","kind":"drive#file","size":"2048"},{"id":"d1","name":"Movies","kind":"drive#folder","size":0}],"next_page_token":"more"}`)
	})

	list, err := client.ListFiles(context.Background(), "folder-1", "next")
	require.NoError(t, err)
	require.Len(t, list.Files, 2)
	assert.False(t, list.Files[0].IsFolder())
	assert.Equal(t, Size(2048), list.Files[0].Size)
	assert.True(t, list.Files[1].IsFolder())
	assert.True(t, list.HasMorePages())
}

func TestListFilesRootOmitsParent(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, ok := r.URL.Query()["parent_id"]
		assert.False(t, ok)
		io.WriteString(w, `{"files":[]}`)
	})

	list, err := client.ListFiles(context.Background(), "", "")
	require.NoError(t, err)
	assert.Empty(t, list.Files)
}

func TestTrashFiles(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/files/trash", r.URL.Path)
		var body map[string][]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, []string{"f1", "f2"}, body["ids"])
		writeJSON(w, http.StatusOK, map[string]any{"success": true})
	})

	require.NoError(t, client.TrashFiles(context.Background(), []string{"f1", "f2"}))
	assert.ErrorIs(t, client.TrashFiles(context.Background(), nil), ErrNoFileIDs)
}

func TestProxyDownload(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/proxy/download/f1":
			w.Header().Set("Content-Disposition", `attachment; filename="movie.mkv"`)
			w.Header().Set("Content-Type", "video/x-matroska")
			io.WriteString(w, "payload")
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Download URL not found"})
		}
	})

	ctx := context.Background()
	dl, err := client.ProxyDownload(ctx, "f1")
	require.NoError(t, err)
	defer dl.Body.Close()

	data, err := io.ReadAll(dl.Body)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))
	assert.Equal(t, "movie.mkv", dl.Name)
	assert.Equal(t, "video/x-matroska", dl.ContentType)

	_, err = client.ProxyDownload(ctx, "missing")
	require.Error(t, err)
	assert.Equal(t, "Download URL not found", Message(err))
}

func TestObserver(t *testing.T) {
	var endpoints []string
	var statuses []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"quota": map[string]string{"limit": "100", "usage": "25"}})
	}))
	defer server.Close()

	client, err := NewClient(server.URL, zerolog.Nop(), WithObserver(func(endpoint string, status int, _ time.Duration) {
		endpoints = append(endpoints, endpoint)
		statuses = append(statuses, status)
	}))
	require.NoError(t, err)

	quota, err := client.Quota(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25.0, quota.UsedPercent(), 0.001)
	assert.Equal(t, []string{"quota"}, endpoints)
	assert.Equal(t, []int{http.StatusOK}, statuses)
}

func TestBatchDeleteTasks(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/tasks/bad" {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "task not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	})

	result := BatchDeleteTasks(context.Background(), client, []string{"a", "bad", "b"}, false)
	assert.Equal(t, 3, result.Requested)
	sort.Strings(result.Successful)
	assert.Equal(t, []string{"a", "b"}, result.Successful)
	require.Len(t, result.Failed, 1)
	assert.Equal(t, "bad", result.Failed[0].TaskID)
	assert.Equal(t, "task not found", Message(result.Err()))

	empty := BatchRetryTasks(context.Background(), client, nil)
	assert.NoError(t, empty.Err())
}
