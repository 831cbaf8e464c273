package api_test

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/nimbly/internal/api"
	"github.com/nhle/nimbly/internal/credential"
	"github.com/nhle/nimbly/internal/model"
	"github.com/nhle/nimbly/tests/testutil"
)

type fixture struct {
	fake         *testutil.FakeAPI
	tokens       *credential.TokenStore
	client       *api.Client
	authFailures atomic.Int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		fake:   testutil.NewFakeAPI(t),
		tokens: testutil.NewTokenStore(t),
	}
	f.client = api.NewClient(f.fake.URL(), f.tokens,
		api.WithAuthFailureHandler(func() { f.authFailures.Add(1) }),
	)
	return f
}

func TestRequestCarriesBearerToken(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("valid")
	f.fake.AllowAccess("valid")
	f.fake.SetTodos([]model.Todo{{ID: 1, Title: "one", OwnerID: 1}})

	page, err := f.client.TodosByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, []string{"valid"}, f.fake.BearersFor("/todos/user/"))
	assert.Zero(t, f.fake.RefreshCalls())
}

func TestRefreshThenRetry(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("expired")
	f.tokens.SetRefreshToken("valid-r")
	f.fake.AllowRefresh("valid-r")
	f.fake.SetNextTokens("fresh", "fresh-r")
	f.fake.SetTodos([]model.Todo{{ID: 1, Title: "one", OwnerID: 1}})

	page, err := f.client.TodosByUser(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)

	// Original attempt with the stale token, then exactly one retry with
	// the refreshed one.
	assert.Equal(t, []string{"expired", "fresh"}, f.fake.BearersFor("/todos/user/"))
	assert.Equal(t, 1, f.fake.RefreshCalls())

	assert.Equal(t, "fresh", f.tokens.AccessToken())
	assert.Equal(t, "fresh-r", f.tokens.RefreshToken())
	assert.True(t, f.tokens.IsAuthenticated())
	assert.Zero(t, f.authFailures.Load())
}

func TestConcurrent401sShareOneRefresh(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("expired")
	f.tokens.SetRefreshToken("valid-r")
	f.fake.AllowRefresh("valid-r")
	f.fake.SetNextTokens("fresh", "fresh-r")
	f.fake.SetRefreshDelay(100 * time.Millisecond)
	f.fake.SetTodos([]model.Todo{{ID: 1, Title: "one", OwnerID: 1}})

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = f.client.TodosByUser(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "caller %d", i)
	}
	assert.Equal(t, 1, f.fake.RefreshCalls(),
		"all concurrent 401s must be satisfied by a single exchange")
	assert.Equal(t, "fresh", f.tokens.AccessToken())
}

func TestRefreshFailureCascade(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("expired")
	f.tokens.SetRefreshToken("stale-r")
	// stale-r was never allowed, so the exchange 401s.
	f.fake.SetRefreshDelay(100 * time.Millisecond)
	f.fake.SetTodos([]model.Todo{{ID: 1, OwnerID: 1}})

	const callers = 3
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			_, errs[slot] = f.client.TodosByUser(context.Background(), 1)
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.Error(t, err, "caller %d", i)
		assert.True(t, api.IsRefreshError(err), "caller %d: %v", i, err)
	}
	assert.Equal(t, 1, f.fake.RefreshCalls())
	assert.Equal(t, int64(1), f.authFailures.Load(),
		"auth-failure signal must fire once per failed exchange")
	assert.Empty(t, f.tokens.AccessToken())
	assert.Empty(t, f.tokens.RefreshToken())
	assert.False(t, f.tokens.IsAuthenticated())
}

func TestLogin401NeverTriggersRefresh(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetRefreshToken("valid-r")
	f.fake.AllowRefresh("valid-r")

	_, err := f.client.Login(context.Background(), model.Credentials{
		Username: "emilys",
		Password: "wrong",
	})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Zero(t, f.fake.RefreshCalls())
	assert.Zero(t, f.authFailures.Load())
}

func TestMissingRefreshTokenFailsAuth(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("expired")

	_, err := f.client.TodosByUser(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Zero(t, f.fake.RefreshCalls())
	assert.Equal(t, int64(1), f.authFailures.Load())
	assert.Empty(t, f.tokens.AccessToken())
}

func TestRetriedRequestIsNotRefreshedTwice(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("expired")
	f.tokens.SetRefreshToken("valid-r")
	f.fake.AllowRefresh("valid-r")
	// The update endpoint keeps answering 401 even after the refresh.
	f.fake.FailUpdate(http.StatusUnauthorized)

	_, err := f.client.UpdateTodo(context.Background(), 5, model.TodoPatch{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, 1, f.fake.RefreshCalls(),
		"a retried request must not start a second refresh")
}

func TestNotFoundIsTyped(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("valid")
	f.fake.AllowAccess("valid")

	_, err := f.client.DeleteTodo(context.Background(), 12345)
	require.Error(t, err)
	assert.True(t, api.IsNotFound(err))
	assert.False(t, api.IsUnauthorized(err))
}

func TestLoginReturnsUserAndTokens(t *testing.T) {
	f := newFixture(t)
	f.fake.SetNextTokens("login-a", "login-r")

	result, err := f.client.Login(context.Background(), model.Credentials{
		Username: f.fake.User().Username,
		Password: f.fake.Password(),
	})
	require.NoError(t, err)
	assert.Equal(t, f.fake.User().ID, result.ID)
	assert.Equal(t, "login-a", result.AccessToken)
	assert.Equal(t, "login-r", result.RefreshToken)
}

func TestCurrentUser(t *testing.T) {
	f := newFixture(t)
	f.tokens.SetAccessToken("valid")
	f.fake.AllowAccess("valid")

	user, err := f.client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, f.fake.User().Username, user.Username)
}

func TestNetworkFailureSurfacesTransportError(t *testing.T) {
	tokens := testutil.NewTokenStore(t)
	client := api.NewClient("http://127.0.0.1:1", tokens,
		api.WithTimeout(500*time.Millisecond))

	_, err := client.TodosByUser(context.Background(), 1)
	require.Error(t, err)
	assert.False(t, api.IsUnauthorized(err))
	assert.False(t, api.IsRefreshError(err))
	assert.Contains(t, err.Error(), "executing request")
}
