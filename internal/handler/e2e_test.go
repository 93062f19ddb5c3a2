package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/taskboard/internal/auth"
	"github.com/BuzzLyutic/taskboard/internal/dashboard"
	"github.com/BuzzLyutic/taskboard/internal/handler"
	"github.com/BuzzLyutic/taskboard/internal/model"
	"github.com/BuzzLyutic/taskboard/internal/notify"
	"github.com/BuzzLyutic/taskboard/internal/realtime"
	"github.com/BuzzLyutic/taskboard/internal/repo"
	"github.com/BuzzLyutic/taskboard/internal/testutil"
	"github.com/BuzzLyutic/taskboard/internal/view"
)

const e2eSecret = "e2e-secret"

// startInstance runs one server process against the shared database, with
// its own LISTEN connection, the way two replicas would.
func startInstance(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()
	logger := zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())

	listener := realtime.NewPGListener(pool, logger)
	go listener.Run(ctx)
	select {
	case <-listener.Ready():
	case <-time.After(10 * time.Second):
		t.Fatal("listener never started listening")
	}

	boards := dashboard.NewManager(ctx, dashboard.Deps{
		Repo:       repo.NewTaskRepo(pool),
		Feed:       listener,
		Publisher:  realtime.Nop{},
		Identity:   auth.UserFromContext,
		Sink:       notify.NewLogSink(logger),
		Permission: notify.PermissionDenied,
	}, dashboard.Config{}, logger)

	verifier := auth.NewVerifier(e2eSecret, auth.NewMemoryRevoker())
	server := httptest.NewServer(handler.NewRouter(handler.NewTaskHandler(boards, verifier, logger), verifier, logger))

	t.Cleanup(func() {
		server.Close()
		boards.CloseAll()
		cancel()
	})
	return server
}

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c *client) do(method, path string, body any) *http.Response {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (c *client) titles(query string) []string {
	c.t.Helper()
	resp := c.do(http.MethodGet, "/api/tasks"+query, nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var body struct {
		Tasks []dashboard.Item `json:"tasks"`
	}
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&body))

	out := []string{}
	for _, item := range body.Tasks {
		out = append(out, item.Title)
	}
	return out
}

func (c *client) stats() view.Stats {
	c.t.Helper()
	resp := c.do(http.MethodGet, "/api/tasks/stats", nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)

	var s view.Stats
	require.NoError(c.t, json.NewDecoder(resp.Body).Decode(&s))
	return s
}

func newClient(t *testing.T, server *httptest.Server, user model.User) *client {
	t.Helper()
	token, err := auth.NewVerifier(e2eSecret, nil).Issue(user, time.Hour)
	require.NoError(t, err)
	return &client{t: t, base: server.URL, token: token}
}

func TestE2E_FullWorkflowAcrossInstances(t *testing.T) {
	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	testutil.TruncateTasks(t, pool)

	ann := model.User{ID: uuid.New(), Email: "ann@example.com"}
	bob := model.User{ID: uuid.New(), Email: "bob@example.com"}

	laptop := newClient(t, startInstance(t, pool), ann)
	phone := newClient(t, startInstance(t, pool), ann)
	other := newClient(t, startInstance(t, pool), bob)

	// open every dashboard before writing so the changes arrive as events
	assert.Empty(t, laptop.titles(""))
	assert.Empty(t, phone.titles(""))
	assert.Empty(t, other.titles(""))

	resp := laptop.do(http.MethodPost, "/api/tasks", map[string]any{
		"title": "Buy groceries", "category": "shopping", "priority": "urgent",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Task
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))

	laptop.do(http.MethodPost, "/api/tasks", map[string]any{"title": "Call mom"})

	require.Eventually(t, func() bool {
		return len(phone.titles("")) == 2
	}, 10*time.Second, 50*time.Millisecond, "the other session refreshes from NOTIFY")
	assert.Equal(t, []string{"Call mom", "Buy groceries"}, phone.titles(""))
	assert.Equal(t, []string{"Buy groceries"}, phone.titles("?search=grocer&category=shopping"))
	assert.Empty(t, other.titles(""), "tasks never leak across users")

	resp = phone.do(http.MethodPatch, "/api/tasks/"+created.ID.String(), map[string]any{"completed": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		return laptop.stats().Completed == 1
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, view.Stats{Total: 2, Completed: 1, Pending: 1, CompletionRate: 50}, laptop.stats())
	assert.Empty(t, laptop.titles("?tab=urgent"), "completed urgent tasks leave the urgent tab")

	resp = other.do(http.MethodDelete, "/api/tasks/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "foreign tasks look missing")

	resp = laptop.do(http.MethodDelete, "/api/tasks/"+created.ID.String(), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	require.Eventually(t, func() bool {
		return len(phone.titles("")) == 1
	}, 10*time.Second, 50*time.Millisecond)
	assert.Equal(t, 1, phone.stats().Total)
}

func TestE2E_ConcurrentCreates(t *testing.T) {
	pool, cleanup := testutil.SetupTestDB(t)
	defer cleanup()
	testutil.TruncateTasks(t, pool)

	user := model.User{ID: uuid.New(), Email: "ann@example.com"}
	c := newClient(t, startInstance(t, pool), user)
	require.Empty(t, c.titles(""))

	const goroutines = 20
	var wg sync.WaitGroup
	codes := make([]int, goroutines)
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			resp := c.do(http.MethodPost, "/api/tasks", map[string]any{"title": fmt.Sprintf("Task %d", idx)})
			codes[idx] = resp.StatusCode
		}(i)
	}
	wg.Wait()

	for i, code := range codes {
		assert.Equal(t, http.StatusCreated, code, "request %d", i)
	}

	require.Eventually(t, func() bool {
		return c.stats().Total == goroutines
	}, 10*time.Second, 50*time.Millisecond, "the snapshot converges on the backend")

	var count int
	require.NoError(t, pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM tasks").Scan(&count))
	assert.Equal(t, goroutines, count)
}
