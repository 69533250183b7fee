package server

import (
	"sort"

	"github.com/denysvitali/proximity-go/model"
	"github.com/denysvitali/proximity-go/store"
)

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Agent describes the scanner that reported a batch.
type Agent struct {
	ID       string    `json:"id"`
	Location *Location `json:"location,omitempty"`
}

// RawAdvertisement is an undecoded advertising report.
type RawAdvertisement struct {
	Data     string   `json:"data"`
	RSSI     int      `json:"rssi"`
	MeanRSSI *float64 `json:"meanRssi,omitempty"`
}

type ScanRequest struct {
	Agent     *Agent             `json:"agent,omitempty"`
	Sightings []model.Sighting   `json:"sightings"`
	Raw       []RawAdvertisement `json:"raw"`
}

type byLastSeen []store.Entry

func (b byLastSeen) Len() int {
	return len(b)
}

func (b byLastSeen) Less(i, j int) bool {
	return b[i].LastSeen.After(b[j].LastSeen)
}

func (b byLastSeen) Swap(i, j int) {
	b[i], b[j] = b[j], b[i]
}

var _ sort.Interface = byLastSeen{}
