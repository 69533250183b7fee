package model

import (
	"encoding/hex"
	"time"
)

const KeyLength = 16

type MainKey interface {
	ID() string
	GetIdentifiers(from time.Time, to time.Time) ([]TimedIdentifier, error)
	KeyInfo() KeyInfo
	Type() string
}

type KeyInfo struct {
	Protocol       Protocol      `json:"protocol"`
	ServiceTag     ServiceTag    `json:"serviceTag"`
	RotationPeriod time.Duration `json:"rotationPeriod"`
	WindowLength   time.Duration `json:"windowLength"`
}

// SecretKey is a root, rotation or daily key.
type SecretKey [KeyLength]byte

func (k SecretKey) String() string {
	return hex.EncodeToString(k[:])
}

type RollingIdentifier [KeyLength]byte

func (r RollingIdentifier) String() string {
	return hex.EncodeToString(r[:])
}

func (r RollingIdentifier) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// AEM is the associated encrypted metadata broadcast next to a GAEN identifier.
type AEM [4]byte

type BeaconPayload []byte

func (p BeaconPayload) String() string {
	return hex.EncodeToString(p)
}

func (p BeaconPayload) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

type TimedIdentifier struct {
	Window     int64             `json:"window"`
	ValidFrom  time.Time         `json:"validFrom"`
	Identifier RollingIdentifier `json:"identifier"`
}
