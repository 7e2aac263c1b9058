package handler

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/GTDGit/bizdir_api/internal/models"
)

func TestStreamSendsSnapshotThenSelections(t *testing.T) {
	ts := newTestServer(t)
	srv := httptest.NewServer(ts.router)
	defer srv.Close()

	s := ts.registry.Create()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/location/sessions/"+s.ID+"/events", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	lines := bufio.NewScanner(resp.Body)
	next := func(prefix string) string {
		for lines.Scan() {
			if strings.HasPrefix(lines.Text(), prefix) {
				return lines.Text()
			}
		}
		t.Fatalf("stream ended before %q", prefix)
		return ""
	}

	require.Equal(t, "event:session", next("event:"))
	require.Contains(t, next("data:"), `"sessionId":"`+s.ID+`"`)

	s.SelectManual(context.Background(), models.LocationSelection{
		Type: models.LocationCity, ID: "city-xyz", Slug: "bandung", Name: "Bandung", RegionID: "region-abc",
	})

	require.Equal(t, "event:location.selected", next("event:"))
	data := next("data:")
	require.Contains(t, data, `"id":"city-xyz"`)
	require.Contains(t, data, `"source":"manual"`)
	require.Contains(t, data, `"locked":true`)
}

func TestStreamUnknownSession(t *testing.T) {
	ts := newTestServer(t)
	w, env := ts.do(t, http.MethodGet, "/v1/location/sessions/missing/events", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, "SESSION_NOT_FOUND", env.Error.Code)
}
