package frontend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/adammck/numbers/pkg/api"
	"github.com/adammck/numbers/pkg/config"
	"github.com/adammck/numbers/pkg/discovery/mock"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEndToEnd(t *testing.T) {
	fn := newFakeNet()
	disc := mock.New()

	rem := api.Remote{Ident: "numbers-0", Host: "10.0.0.1", Port: 9000}
	fn.numbersNode(t, rem)
	disc.Add("numbers", rem)

	bal := NewBalancer(zap.NewNop(), fn.dialer())
	f := newFrontend(config.Config{ServiceName: "numbers"}, disc, bal, clockwork.NewRealClock(), zap.NewNop())

	g := disc.Discover("numbers", bal.Add, bal.Remove)
	defer g.Stop()
	defer bal.Close()

	h := NewServer(f.Caller(), zap.NewNop()).Router()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"from": 0, "to": 100}`)))
	require.Equal(t, http.StatusOK, rec.Code)

	res := submitResponse{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Len(t, res.PrimeNumbers, 25)
	assert.Equal(t, "numbers-0", res.InstanceID)
	assert.GreaterOrEqual(t, res.DurationMs, 0.0)

	// Instance goes away; nothing left to ask.
	disc.Remove("numbers", "numbers-0")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"from": 0, "to": 100}`)))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRun(t *testing.T) {
	disc := mock.New()
	disc.Add("numbers", api.Remote{Ident: "a", Host: "a", Port: 1})

	bal := NewBalancer(zap.NewNop())
	cfg := config.Config{ServiceName: "numbers", HTTPAddr: "127.0.0.1:0"}
	f := newFrontend(cfg, disc, bal, clockwork.NewRealClock(), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- f.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return len(bal.Remotes()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("frontend did not shut down")
	}

	// Closed on the way out.
	assert.Empty(t, bal.Remotes())
}
