package models

import (
	"time"

	"github.com/denysvitali/proximity-go/store"
)

// Observation is an entry evicted from the observation store.
type Observation struct {
	RPI       string    `gorm:"primaryKey;index:idx_observation_rpi"`
	FirstSeen time.Time `gorm:"primaryKey"`
	LastSeen  time.Time `gorm:"index:idx_last_seen"`
	AEM       string
	MaxRSSI   int
	MeanRSSI  float64
	NScans    int
}

func ObservationFromEntry(e store.Entry) Observation {
	return Observation{
		RPI:       e.RPI,
		FirstSeen: e.FirstSeen,
		LastSeen:  e.LastSeen,
		AEM:       e.AEM,
		MaxRSSI:   e.MaxRSSI,
		MeanRSSI:  e.MeanRSSI,
		NScans:    e.NScans,
	}
}

type KeyAlias struct {
	KeyID string `json:"key_id" gorm:"primaryKey"`
	Alias string `json:"alias"`
}
