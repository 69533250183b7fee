package store

import (
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/proximity-go/model"
)

var logger = logrus.StandardLogger().WithField("pkg", "store")

const (
	DefaultPruneAge  = 10 * time.Minute
	DefaultRecentAge = 30 * time.Second
)

// Auditor receives every entry right before the store drops it. It is called
// with the store locked and must not call back into the store.
type Auditor interface {
	Audit(e Entry)
}

type AuditorFunc func(e Entry)

// EvictFunc receives the entries dropped by one call, after the store has
// been unlocked. It may block and may call back into the store.
type EvictFunc func(evicted []Entry)

func (f AuditorFunc) Audit(e Entry) {
	f(e)
}

// LogAuditor writes each entry as one JSON line at info level.
func LogAuditor(log *logrus.Entry) Auditor {
	return AuditorFunc(func(e Entry) {
		log.Info(e.String())
	})
}

// Store is the scanner's view of nearby identifiers. All methods are safe
// for concurrent use.
type Store struct {
	mu       sync.Mutex
	entries  map[string]*Entry
	now      func() time.Time
	pruneAge time.Duration
	auditors []Auditor
	onEvict  []EvictFunc
	log      *logrus.Entry
}

type Option func(*Store)

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithPruneAge(d time.Duration) Option {
	return func(s *Store) {
		s.pruneAge = d
	}
}

// WithAuditor adds an auditor next to the default log auditor.
func WithAuditor(a Auditor) Option {
	return func(s *Store) {
		s.auditors = append(s.auditors, a)
	}
}

func WithEvictHandler(f EvictFunc) Option {
	return func(s *Store) {
		s.onEvict = append(s.onEvict, f)
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(s *Store) {
		s.log = log
	}
}

func New(opts ...Option) *Store {
	s := &Store{
		entries:  make(map[string]*Entry),
		now:      time.Now,
		pruneAge: DefaultPruneAge,
		log:      logger,
	}
	for _, o := range opts {
		o(s)
	}
	s.auditors = append([]Auditor{LogAuditor(s.log)}, s.auditors...)
	return s
}

// Ingest merges a batch of sightings, prunes stale entries and returns a
// copy of the strongest entry touched by the batch. Earlier sightings win
// ties. It returns nil for an empty batch.
func (s *Store) Ingest(batch []model.Sighting) *Entry {
	strongest, evicted := s.ingest(batch)
	s.evicted(evicted)
	return strongest
}

func (s *Store) ingest(batch []model.Sighting) (*Entry, []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.log.Tracef("beacon batch size %d, map size %d", len(batch), len(s.entries))

	var strongest *Entry
	for _, sighting := range batch {
		entry := newEntry(sighting, now)
		prev, ok := s.entries[entry.RPI]
		if !ok {
			s.log.Debugf("new device %s", entry)
			s.entries[entry.RPI] = entry
			prev = entry
		} else {
			prev.merge(entry)
		}
		if strongest == nil || prev.MaxRSSI > strongest.MaxRSSI {
			strongest = prev
		}
	}

	evicted := s.prune(now)

	if strongest == nil {
		return nil, evicted
	}
	res := *strongest
	return &res, evicted
}

func (s *Store) prune(now time.Time) []Entry {
	var evicted []Entry
	for rpi, e := range s.entries {
		if e.Age(now) > s.pruneAge {
			s.audit(*e)
			evicted = append(evicted, *e)
			delete(s.entries, rpi)
		}
	}
	return evicted
}

func (s *Store) evicted(entries []Entry) {
	if len(entries) == 0 {
		return
	}
	for _, f := range s.onEvict {
		f(entries)
	}
}

func (s *Store) audit(e Entry) {
	for _, a := range s.auditors {
		a.Audit(e)
	}
}

// CountRecent returns how many identifiers were seen within threshold.
func (s *Store) CountRecent(threshold time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	count := 0
	for _, e := range s.entries {
		if e.Age(now) <= threshold {
			count++
		}
	}
	return count
}

func (s *Store) NearbyDeviceCount() int {
	return s.CountRecent(DefaultRecentAge)
}

// Flush audits and drops every entry.
func (s *Store) Flush() int {
	evicted := s.flush()
	s.evicted(evicted)
	return len(evicted)
}

func (s *Store) flush() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := make([]Entry, 0, len(s.entries))
	for rpi, e := range s.entries {
		s.audit(*e)
		evicted = append(evicted, *e)
		delete(s.entries, rpi)
	}
	return evicted
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Get(rpi string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[rpi]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns a copy of all entries sorted by identifier.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		res = append(res, *e)
	}
	sort.Sort(byRPI(res))
	return res
}

type byRPI []Entry

func (b byRPI) Len() int {
	return len(b)
}

func (b byRPI) Less(i, j int) bool {
	return b[i].RPI < b[j].RPI
}

func (b byRPI) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}

var _ sort.Interface = byRPI{}
