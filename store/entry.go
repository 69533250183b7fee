package store

import (
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/denysvitali/proximity-go/model"
)

// ISO8601 is the timestamp layout of audit lines: seconds precision and a
// numeric UTC offset.
const ISO8601 = "2006-01-02T15:04:05-0700"

// Entry aggregates every sighting of one identifier.
type Entry struct {
	RPI       string
	AEM       string
	MaxRSSI   int
	MeanRSSI  float64
	NScans    int
	FirstSeen time.Time
	LastSeen  time.Time
}

func newEntry(s model.Sighting, now time.Time) *Entry {
	return &Entry{
		RPI:       s.Identifier,
		AEM:       s.Metadata,
		MaxRSSI:   max(s.RSSI, roundHalfUp(s.MeanRSSI)),
		MeanRSSI:  s.MeanRSSI,
		NScans:    1,
		FirstSeen: now,
		LastSeen:  now,
	}
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// merge folds next into e. The mean is a count-weighted mix of running
// means, which drifts from the true mean over many merges.
func (e *Entry) merge(next *Entry) {
	e.MaxRSSI = max(e.MaxRSSI, next.MaxRSSI)
	e.MeanRSSI = (e.MeanRSSI*float64(e.NScans) + next.MeanRSSI*float64(next.NScans)) / float64(e.NScans+next.NScans)
	e.NScans += next.NScans
	e.LastSeen = next.LastSeen
}

func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.LastSeen)
}

// entryJSON fixes the key order of audit lines.
type entryJSON struct {
	AEM       string      `json:"aem"`
	FirstSeen string      `json:"firstSeen"`
	LastSeen  string      `json:"lastSeen"`
	MaxRSSI   int         `json:"maxRssi"`
	MeanRSSI  json.Number `json:"meanRssi"`
	NScans    int         `json:"nScans"`
	RPI       string      `json:"rpi"`
}

func (e Entry) MarshalJSON() ([]byte, error) {
	return json.Marshal(entryJSON{
		AEM:       e.AEM,
		FirstSeen: e.FirstSeen.Format(ISO8601),
		LastSeen:  e.LastSeen.Format(ISO8601),
		MaxRSSI:   e.MaxRSSI,
		MeanRSSI:  json.Number(fmt.Sprintf("%#.4g", e.MeanRSSI)),
		NScans:    e.NScans,
		RPI:       e.RPI,
	})
}

func (e Entry) String() string {
	b, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("{\"rpi\":%q}", e.RPI)
	}
	return string(b)
}
