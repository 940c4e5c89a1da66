package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whisper2/server/internal/store/memory"
)

func TestChecker_CheckAll_AllHealthy(t *testing.T) {
	c := NewChecker(time.Second, nil)
	c.Register("durable", func(ctx context.Context) error { return nil })
	c.Register("volatile", func(ctx context.Context) error { return nil })

	status, results := c.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status)
	assert.Len(t, results, 2)
}

func TestChecker_CheckAll_OneUnhealthy(t *testing.T) {
	c := NewChecker(time.Second, nil)
	c.Register("durable", func(ctx context.Context) error { return nil })
	c.Register("volatile", func(ctx context.Context) error { return errors.New("connection refused") })

	status, results := c.CheckAll(context.Background())
	assert.Equal(t, StatusUnhealthy, status)
	require.Len(t, results, 2)
}

func TestChecker_Check_UnregisteredName(t *testing.T) {
	c := NewChecker(time.Second, nil)
	_, err := c.Check(context.Background(), "nonexistent")
	assert.Error(t, err)
}

func TestChecker_Check_CachesResult(t *testing.T) {
	c := NewChecker(time.Second, nil)
	calls := 0
	c.Register("counter", func(ctx context.Context) error {
		calls++
		return nil
	})

	_, err := c.Check(context.Background(), "counter")
	require.NoError(t, err)
	_, err = c.Check(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRegisterStoreChecks_BothHealthy(t *testing.T) {
	c := NewChecker(time.Second, nil)
	RegisterStoreChecks(c, memory.NewDurable(), memory.NewVolatile())

	status, _ := c.CheckAll(context.Background())
	assert.Equal(t, StatusHealthy, status)
}

func TestHandler_HealthyReturns200(t *testing.T) {
	c := NewChecker(time.Second, nil)
	c.Register("ok", func(ctx context.Context) error { return nil })

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHandler_UnhealthyReturns503(t *testing.T) {
	c := NewChecker(time.Second, nil)
	c.Register("broken", func(ctx context.Context) error { return errors.New("down") })

	srv := httptest.NewServer(c.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
