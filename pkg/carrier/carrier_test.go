package carrier_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"resell/pkg/carrier"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTracker_FetchStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tracking/TN-1":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":" 배송완료 "}`))
		case "/tracking/TN-BAD":
			_, _ = w.Write([]byte(`not json`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	tracker := carrier.NewHTTPTracker(srv.URL+"/", time.Second)
	ctx := context.Background()

	status, err := tracker.FetchStatus(ctx, "TN-1")
	require.NoError(t, err)
	assert.Equal(t, "배송완료", status)

	_, err = tracker.FetchStatus(ctx, "TN-404")
	assert.ErrorContains(t, err, "404")

	_, err = tracker.FetchStatus(ctx, "TN-BAD")
	assert.ErrorContains(t, err, "decode")

	_, err = tracker.FetchStatus(ctx, "")
	assert.Error(t, err)
}

func TestHTTPTracker_CancelledContext(t *testing.T) {
	tracker := carrier.NewHTTPTracker("http://127.0.0.1:1", time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := tracker.FetchStatus(ctx, "TN-1")
	assert.ErrorIs(t, err, context.Canceled)
}
