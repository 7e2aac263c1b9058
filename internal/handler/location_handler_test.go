package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/GTDGit/bizdir_api/internal/location"
	"github.com/GTDGit/bizdir_api/internal/models"
)

func TestDetectionFlow(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/v1/location/sessions/" + id

	w, env := ts.do(t, http.MethodPost, base+"/detect", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, string(env.Data), `"started":true`)

	w, env = ts.do(t, http.MethodPost, base+"/detect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"reason":"already_started"`)

	w, _ = ts.do(t, http.MethodPost, base+"/position", gin.H{"latitude": -6.9175, "longitude": 107.6191})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return ts.snapshot(base).State == location.StateResolved
	}, time.Second, 10*time.Millisecond)
	snap := ts.snapshot(base)
	require.Equal(t, &models.LocationSelection{
		Type: models.LocationCity, ID: "city-xyz", Slug: "bandung", Name: "Bandung", RegionID: "region-abc",
	}, snap.Selection)
	require.Equal(t, location.SourceDetected, snap.Source)
	require.False(t, snap.Locked)

	w, env = ts.do(t, http.MethodPost, base+"/position", gin.H{"latitude": 1.0, "longitude": 1.0})
	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, "POSITION_ALREADY_REPORTED", env.Error.Code)
}

func TestDetectionDeniedAppliesDefault(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/v1/location/sessions/" + id

	w, _ := ts.do(t, http.MethodPost, base+"/detect", nil)
	require.Equal(t, http.StatusAccepted, w.Code)
	w, _ = ts.do(t, http.MethodPost, base+"/position", gin.H{"errorCode": 1, "message": "User denied Geolocation"})
	require.Equal(t, http.StatusAccepted, w.Code)

	require.Eventually(t, func() bool {
		return ts.snapshot(base).State == location.StateUnresolved
	}, time.Second, 10*time.Millisecond)
	snap := ts.snapshot(base)
	require.Equal(t, "city-jks", snap.Selection.ID)
	require.Equal(t, location.SourceDefault, snap.Source)
	require.Equal(t, location.StatusUnresolved, snap.Status)
	require.Equal(t, location.ReasonPermissionDenied, snap.Reason)
}

func TestManualSelectLocksSession(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/v1/location/sessions/" + id

	w, env := ts.do(t, http.MethodPost, base+"/select", gin.H{"type": "region", "id": "region-sgr"})
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode[location.SessionSnapshot](t, env.Data)
	require.True(t, snap.Locked)
	require.Equal(t, location.SourceManual, snap.Source)
	require.Equal(t, "region-sgr", snap.Selection.ID)
	require.Empty(t, snap.Selection.RegionID)

	w, env = ts.do(t, http.MethodPost, base+"/detect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, string(env.Data), `"reason":"locked"`)

	w, env = ts.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	snap = decode[location.SessionSnapshot](t, env.Data)
	require.Equal(t, location.StateIdle, snap.State)
	require.Equal(t, "region-sgr", snap.Selection.ID)
}

func TestManualSelectCancelsDetection(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/v1/location/sessions/" + id

	w, _ := ts.do(t, http.MethodPost, base+"/detect", nil)
	require.Equal(t, http.StatusAccepted, w.Code)

	w, _ = ts.do(t, http.MethodPost, base+"/select", gin.H{"type": "city", "id": "city-def"})
	require.Equal(t, http.StatusOK, w.Code)

	// a late device report cannot override the manual pick
	ts.do(t, http.MethodPost, base+"/position", gin.H{"latitude": -6.9, "longitude": 107.6})
	time.Sleep(20 * time.Millisecond)

	_, env := ts.do(t, http.MethodGet, base, nil)
	snap := decode[location.SessionSnapshot](t, env.Data)
	require.Equal(t, location.StateAborted, snap.State)
	require.Equal(t, "city-def", snap.Selection.ID)
	require.Equal(t, "region-abc", snap.Selection.RegionID)
	require.Equal(t, location.SourceManual, snap.Source)
}

func TestCancelDetectionEndpoint(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/v1/location/sessions/" + id

	w, env := ts.do(t, http.MethodDelete, base+"/detect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"cancelled":false}`, string(env.Data))

	ts.do(t, http.MethodPost, base+"/detect", nil)
	w, env = ts.do(t, http.MethodDelete, base+"/detect", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"cancelled":true}`, string(env.Data))

	require.Eventually(t, func() bool {
		return ts.snapshot(base).State == location.StateAborted
	}, time.Second, 10*time.Millisecond)

	_, env = ts.do(t, http.MethodGet, base, nil)
	require.Nil(t, decode[location.SessionSnapshot](t, env.Data).Selection)
}

func TestSessionValidation(t *testing.T) {
	ts := newTestServer(t)
	id := ts.createSession(t)
	base := "/v1/location/sessions/" + id

	w, env := ts.do(t, http.MethodGet, "/v1/location/sessions/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, location.ErrSessionNotFound.Error(), env.Error.Code)

	w, _ = ts.do(t, http.MethodPost, "/v1/location/sessions/missing/detect", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	tests := []struct {
		path string
		body any
		code int
	}{
		{base + "/position", gin.H{}, http.StatusBadRequest},
		{base + "/position", gin.H{"latitude": 1.0}, http.StatusBadRequest},
		{base + "/position", gin.H{"errorCode": 7}, http.StatusBadRequest},
		{base + "/select", gin.H{"type": "city"}, http.StatusBadRequest},
		{base + "/select", gin.H{"type": "district", "id": "d-1"}, http.StatusBadRequest},
		{base + "/select", gin.H{"type": "city", "id": "city-nope"}, http.StatusNotFound},
	}
	for _, tt := range tests {
		w, _ := ts.do(t, http.MethodPost, tt.path, tt.body)
		require.Equal(t, tt.code, w.Code, "%s %v", tt.path, tt.body)
	}
}

func TestGetSessionRestoresFromStore(t *testing.T) {
	ts := newTestServer(t)
	ts.selections.events["expired-session"] = &location.SelectionEvent{
		SessionID: "expired-session",
		Selection: models.LocationSelection{Type: models.LocationCity, ID: "city-xyz", Slug: "bandung", Name: "Bandung", RegionID: "region-abc"},
		Source:    location.SourceManual,
		Locked:    true,
	}

	w, env := ts.do(t, http.MethodGet, "/v1/location/sessions/expired-session", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Location session restored", env.Message)
	snap := decode[location.SessionSnapshot](t, env.Data)
	require.True(t, snap.Locked)
	require.Equal(t, "city-xyz", snap.Selection.ID)
}
