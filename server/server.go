package server

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/exp/maps"

	"github.com/denysvitali/proximity-go"
	"github.com/denysvitali/proximity-go/model"
	"github.com/denysvitali/proximity-go/server/models"
	"github.com/denysvitali/proximity-go/server/responses"
	"github.com/denysvitali/proximity-go/store"
)

var logger = logrus.StandardLogger().WithField("pkg", "server")

const (
	defaultScheduleWindow  = time.Hour
	DefaultMaxScheduleSpan = 24 * time.Hour
)

type Server struct {
	e       *gin.Engine
	archive Archive
	store   *store.Store
	keyMap  map[string]model.MainKey
	now     func() time.Time
	maxSpan time.Duration
}

type Config struct {
	DSN      string
	KeysDir  string
	PruneAge time.Duration
	// MaxScheduleSpan bounds the range of a schedule request.
	MaxScheduleSpan time.Duration
}

func New(cfg Config) (*Server, error) {
	archive, err := openArchive(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("unable to open archive: %w", err)
	}
	keys, err := proximity.LoadKeys(cfg.KeysDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load keys: %w", err)
	}
	opts := []store.Option{}
	if cfg.PruneAge > 0 {
		opts = append(opts, store.WithPruneAge(cfg.PruneAge))
	}
	s := NewWithArchive(archive, keys, opts...)
	if cfg.MaxScheduleSpan > 0 {
		s.maxSpan = cfg.MaxScheduleSpan
	}
	return s, nil
}

// NewWithArchive builds a server around an existing archive. Evicted store
// entries are written to the archive.
func NewWithArchive(archive Archive, keys []model.MainKey, opts ...store.Option) *Server {
	opts = append(opts, store.WithEvictHandler(archiveEvicted(archive)))
	s := Server{
		e:       gin.New(),
		archive: archive,
		store:   store.New(opts...),
		keyMap:  map[string]model.MainKey{},
		now:     time.Now,
		maxSpan: DefaultMaxScheduleSpan,
	}
	for _, k := range keys {
		if prev, ok := s.keyMap[k.ID()]; ok {
			logger.Warnf("key %s (%s) loaded twice, replacing %s key", k.ID(), k.Type(), prev.Type())
		}
		s.keyMap[k.ID()] = k
	}
	s.init()
	return &s
}

func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Store() *store.Store {
	return s.store
}

// Shutdown flushes the store so every remaining entry is archived.
func (s *Server) Shutdown() {
	n := s.store.Flush()
	logger.Infof("flushed %d entries", n)
}

func (s *Server) init() {
	s.e.Use(gin.Recovery())
	s.e.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
	}))
	v1 := s.e.Group("/api/v1")
	v1.GET("/keys", s.getKeys)
	v1.GET("/keys/:keyId/advertisement", s.getAdvertisement)
	v1.GET("/keys/:keyId/identifiers", s.getIdentifiers)
	v1.POST("/scans", s.postScans)
	v1.GET("/nearby", s.getNearby)
	v1.GET("/entries", s.getEntries)
	v1.POST("/flush", s.postFlush)
	v1.GET("/contacts/:rpi", s.getContacts)
}

func cleanedKeyID(key string) string {
	// Replaces / with another non-base64 character
	return strings.ReplaceAll(key, "/", "-")
}

func dirtyKeyID(key string) string {
	return strings.ReplaceAll(key, "-", "/")
}

func (s *Server) keyFromParam(c *gin.Context) (model.MainKey, bool) {
	key, ok := s.keyMap[dirtyKeyID(c.Param("keyId"))]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "key not found"})
	}
	return key, ok
}

func (s *Server) getKeys(c *gin.Context) {
	keys := maps.Keys(s.keyMap)
	keyAliases, err := s.archive.KeyAliases(c.Request.Context(), keys)
	if err != nil {
		logger.Errorf("unable to fetch key aliases: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to fetch key aliases"})
		return
	}

	var keyAliasesMap = make(map[string]models.KeyAlias)
	for _, k := range keyAliases {
		keyAliasesMap[k.KeyID] = k
	}

	now := s.now()
	res := make([]responses.Key, 0)
	for _, k := range keys {
		key := s.keyMap[k]
		r := responses.Key{
			ID:      cleanedKeyID(k),
			Alias:   keyAliasesMap[k].Alias,
			Type:    key.Type(),
			KeyInfo: key.KeyInfo(),
		}
		adv, err := proximity.AdvertiseKey(key, now)
		if err != nil {
			logger.Debugf("no advertisement for %s: %v", k, err)
		} else {
			r.Advertisement = &adv
		}
		res = append(res, r)
	}

	sort.Sort(responses.ByKeyID(res))

	c.JSON(http.StatusOK, res)
}

func parseUnix(value string, def time.Time) (time.Time, error) {
	if value == "" {
		return def, nil
	}
	v, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(v, 0), nil
}

func (s *Server) getAdvertisement(c *gin.Context) {
	key, ok := s.keyFromParam(c)
	if !ok {
		return
	}
	at, err := parseUnix(c.Query("t"), s.now())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "t must be a unix timestamp"})
		return
	}
	adv, err := proximity.AdvertiseKey(key, at)
	if err != nil {
		if errors.Is(err, proximity.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("unable to build advertisement: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to build advertisement"})
		return
	}
	logger.Debugf("advertisement for %s at %d: %s", key.ID(), at.Unix(), adv.Payload)
	c.JSON(http.StatusOK, adv)
}

func (s *Server) getIdentifiers(c *gin.Context) {
	key, ok := s.keyFromParam(c)
	if !ok {
		return
	}
	now := s.now()
	from, err := parseUnix(c.Query("from"), now.Add(-defaultScheduleWindow))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must be a unix timestamp"})
		return
	}
	to, err := parseUnix(c.Query("to"), now)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must be a unix timestamp"})
		return
	}
	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not be before from"})
		return
	}
	if to.Sub(from) > s.maxSpan {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("range must not exceed %s", s.maxSpan)})
		return
	}
	ids, err := key.GetIdentifiers(from, to)
	if err != nil {
		if errors.Is(err, proximity.ErrInvalidArgument) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.Errorf("unable to get identifiers: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to get identifiers"})
		return
	}
	if ids == nil {
		ids = []model.TimedIdentifier{}
	}
	c.JSON(http.StatusOK, ids)
}

func (s *Server) postScans(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	batch := make([]model.Sighting, 0, len(req.Sightings)+len(req.Raw))
	batch = append(batch, req.Sightings...)
	skipped := 0
	for _, r := range req.Raw {
		data, err := hex.DecodeString(r.Data)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "raw data must be hex encoded"})
			return
		}
		mean := r.MeanRSSI
		if mean == nil {
			v := float64(r.RSSI)
			mean = &v
		}
		sighting, protocol, err := proximity.DecodeAdvertisement(data, r.RSSI, *mean)
		if err != nil {
			logger.Debugf("skipping advertisement %s: %v", r.Data, err)
			skipped++
			continue
		}
		logger.Tracef("decoded %s sighting %s", protocol, sighting.Identifier)
		batch = append(batch, sighting)
	}

	strongest := s.store.Ingest(batch)
	if strongest != nil && req.Agent != nil {
		s.saveContact(c, req.Agent, strongest)
	}

	c.JSON(http.StatusOK, responses.Scan{
		Strongest: strongest,
		Ingested:  len(batch),
		Skipped:   skipped,
		Nearby:    s.store.NearbyDeviceCount(),
	})
}

func (s *Server) saveContact(c *gin.Context, agent *Agent, e *store.Entry) {
	contact := models.Contact{
		SeenAt:  e.LastSeen,
		RPI:     e.RPI,
		AEM:     e.AEM,
		RSSI:    e.MaxRSSI,
		AgentID: agent.ID,
	}
	if agent.Location != nil {
		p, err := models.NewGeomPoint(agent.Location.Latitude, agent.Location.Longitude)
		if err != nil {
			logger.Errorf("unable to create point: %v", err)
			return
		}
		contact.Geometry = p
	}
	if err := s.archive.SaveContact(c.Request.Context(), &contact); err != nil {
		logger.Errorf("unable to save contact: %v", err)
	}
}

func (s *Server) getNearby(c *gin.Context) {
	threshold := store.DefaultRecentAge
	if v := c.Query("threshold"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "threshold must be a non-negative integer"})
			return
		}
		threshold = time.Duration(secs) * time.Second
	}
	c.JSON(http.StatusOK, gin.H{"nearby": s.store.CountRecent(threshold)})
}

func (s *Server) getEntries(c *gin.Context) {
	entries := s.store.Entries()
	sort.Stable(byLastSeen(entries))
	c.JSON(http.StatusOK, entries)
}

func (s *Server) postFlush(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"flushed": s.store.Flush()})
}

func (s *Server) getContacts(c *gin.Context) {
	contacts, err := s.archive.Contacts(c.Request.Context(), c.Param("rpi"))
	if err != nil {
		logger.Errorf("unable to get contacts: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "unable to get contacts"})
		return
	}
	res := make([]models.ContactResult, 0, len(contacts))
	for _, contact := range contacts {
		res = append(res, contact.Result())
	}
	c.JSON(http.StatusOK, res)
}
