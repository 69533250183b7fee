package server

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/denysvitali/proximity-go"
	"github.com/denysvitali/proximity-go/model"
	"github.com/denysvitali/proximity-go/server/models"
	"github.com/denysvitali/proximity-go/store"
)

type memArchive struct {
	mu           sync.Mutex
	observations []store.Entry
	contacts     []models.Contact
	aliases      []models.KeyAlias
}

func (m *memArchive) SaveObservation(_ context.Context, e store.Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations = append(m.observations, e)
	return nil
}

func (m *memArchive) SaveContact(_ context.Context, c *models.Contact) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contacts = append(m.contacts, *c)
	return nil
}

func (m *memArchive) Contacts(_ context.Context, rpi string) ([]models.Contact, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []models.Contact
	for _, c := range m.contacts {
		if c.RPI == rpi {
			res = append(res, c)
		}
	}
	return res, nil
}

func (m *memArchive) KeyAliases(_ context.Context, keyIDs []string) ([]models.KeyAlias, error) {
	return m.aliases, nil
}

var _ Archive = &memArchive{}

type clock struct {
	now time.Time
}

func (c *clock) Now() time.Time {
	return c.now
}

func newTestServer(t *testing.T) (*Server, *memArchive, *clock, *proximity.GAENKey) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rootKey, err := proximity.KeyFromString("foo")
	require.NoError(t, err)
	gaen := proximity.NewGAENKey(rootKey)

	dailyKey, err := proximity.KeyFromString("example")
	require.NoError(t, err)
	dp3t := proximity.NewDP3TKey(dailyKey, time.Date(2020, 4, 10, 0, 0, 0, 0, time.UTC))

	archive := &memArchive{aliases: []models.KeyAlias{{KeyID: gaen.ID(), Alias: "phone"}}}
	clk := &clock{now: time.Unix(601, 0)}
	s := NewWithArchive(archive, []model.MainKey{gaen, dp3t}, store.WithClock(clk.Now))
	s.now = clk.Now
	return s, archive, clk, gaen
}

func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestGetKeys(t *testing.T) {
	s, _, _, gaen := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/keys", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var keys []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keys))
	require.Len(t, keys, 2)

	for _, k := range keys {
		if k["key_id"] != cleanedKeyID(gaen.ID()) {
			// DP-3T key of another day has nothing to advertise now
			require.Equal(t, "dp3t", k["type"])
			require.NotContains(t, k, "advertisement")
			continue
		}
		require.Equal(t, "phone", k["alias"])
		require.Equal(t, "gaen", k["type"])
		require.Contains(t, k, "advertisement")
	}
}

func TestKeysWithSameSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	secret, err := proximity.KeyFromString("same")
	require.NoError(t, err)
	s := NewWithArchive(&memArchive{}, []model.MainKey{
		proximity.NewGAENKey(secret),
		proximity.NewDP3TKey(secret, time.Date(2020, 4, 10, 0, 0, 0, 0, time.UTC)),
	})

	w := do(t, s, http.MethodGet, "/api/v1/keys", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var keys []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &keys))
	require.Len(t, keys, 2)
}

func TestGetAdvertisement(t *testing.T) {
	s, _, _, gaen := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/keys/"+cleanedKeyID(gaen.ID())+"/advertisement?t=0", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var adv map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &adv))
	require.Equal(t, "gaen", adv["protocol"])
	require.Equal(t, "0xFD6F", adv["serviceTag"])
	require.Equal(t, "ebaca2b735c90d01c361e8ca6ec167f200000000", adv["payload"])

	w = do(t, s, http.MethodGet, "/api/v1/keys/unknown/advertisement", nil)
	require.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/keys/"+cleanedKeyID(gaen.ID())+"/advertisement?t=abc", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIdentifiers(t *testing.T) {
	s, _, _, gaen := newTestServer(t)
	w := do(t, s, http.MethodGet, "/api/v1/keys/"+cleanedKeyID(gaen.ID())+"/identifiers?from=0&to=601", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var ids []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	require.Len(t, ids, 2)
	require.Equal(t, "a9141c2b822e1dc3fbe916c4ba64c368", ids[1]["identifier"])

	w = do(t, s, http.MethodGet, "/api/v1/keys/"+cleanedKeyID(gaen.ID())+"/identifiers?from=601&to=0", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIdentifiersSpanLimit(t *testing.T) {
	s, _, _, gaen := newTestServer(t)
	path := "/api/v1/keys/" + cleanedKeyID(gaen.ID()) + "/identifiers"

	w := do(t, s, http.MethodGet, path+"?from=0&to=86400", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ids []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ids))
	require.Len(t, ids, proximity.MaxScheduleWindows)

	w = do(t, s, http.MethodGet, path+"?from=0&to=86401", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, path+"?from=0&to=10000000000", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	s.maxSpan = time.Hour
	w = do(t, s, http.MethodGet, path+"?from=0&to=3601", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostScans(t *testing.T) {
	s, archive, clk, _ := newTestServer(t)

	rootKey, err := proximity.KeyFromString("bar")
	require.NoError(t, err)
	adv, err := proximity.Advertise(proximity.GAEN{}, rootKey, clk.now)
	require.NoError(t, err)
	ad, err := proximity.GAENLayout.Encode(adv)
	require.NoError(t, err)

	w := do(t, s, http.MethodPost, "/api/v1/scans", ScanRequest{
		Agent: &Agent{ID: "agent-1", Location: &Location{Latitude: 47.37, Longitude: 8.54}},
		Sightings: []model.Sighting{
			{Identifier: "aa", Metadata: "00000000", RSSI: -70, MeanRSSI: -70},
		},
		Raw: []RawAdvertisement{
			{Data: hex.EncodeToString(ad), RSSI: -50},
			{Data: "0303aabb", RSSI: -40},
		},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.EqualValues(t, 2, res["ingested"])
	require.EqualValues(t, 1, res["skipped"])
	require.EqualValues(t, 2, res["nearby"])
	strongest := res["strongest"].(map[string]any)
	require.Equal(t, adv.Payload.String()[:32], strongest["rpi"])
	require.EqualValues(t, -50, strongest["maxRssi"])

	require.Len(t, archive.contacts, 1)
	require.Equal(t, "agent-1", archive.contacts[0].AgentID)
	lat, lng := archive.contacts[0].Geometry.LatLng()
	require.InDelta(t, 47.37, lat, 1e-9)
	require.InDelta(t, 8.54, lng, 1e-9)

	w = do(t, s, http.MethodGet, "/api/v1/contacts/"+adv.Payload.String()[:32], nil)
	require.Equal(t, http.StatusOK, w.Code)
	var contacts []models.ContactResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	require.InDelta(t, 8.54, contacts[0].Lng, 1e-9)
}

func TestPostScansBadRequest(t *testing.T) {
	s, _, _, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/scans", ScanRequest{
		Raw: []RawAdvertisement{{Data: "zz"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNearbyPruneAndFlush(t *testing.T) {
	s, archive, clk, _ := newTestServer(t)
	w := do(t, s, http.MethodPost, "/api/v1/scans", ScanRequest{
		Sightings: []model.Sighting{
			{Identifier: "aa", RSSI: -60, MeanRSSI: -60},
			{Identifier: "bb", RSSI: -65, MeanRSSI: -65},
		},
	})
	require.Equal(t, http.StatusOK, w.Code)

	clk.now = clk.now.Add(31 * time.Second)
	w = do(t, s, http.MethodGet, "/api/v1/nearby", nil)
	require.JSONEq(t, `{"nearby":0}`, w.Body.String())
	w = do(t, s, http.MethodGet, "/api/v1/nearby?threshold=60", nil)
	require.JSONEq(t, `{"nearby":2}`, w.Body.String())
	w = do(t, s, http.MethodGet, "/api/v1/nearby?threshold=-1", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/entries", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)

	clk.now = clk.now.Add(10 * time.Minute)
	w = do(t, s, http.MethodPost, "/api/v1/scans", ScanRequest{
		Sightings: []model.Sighting{{Identifier: "cc", RSSI: -60, MeanRSSI: -60}},
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, archive.observations, 2)
	require.Equal(t, 1, s.Store().Len())

	w = do(t, s, http.MethodPost, "/api/v1/flush", nil)
	require.JSONEq(t, `{"flushed":1}`, w.Body.String())
	require.Len(t, archive.observations, 3)
}
