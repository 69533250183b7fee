package model

import "fmt"

type Protocol int

const (
	GAEN Protocol = iota
	DP3T
	EddystoneUID
	IBeacon
)

func (p Protocol) String() string {
	switch p {
	case GAEN:
		return "gaen"
	case DP3T:
		return "dp3t"
	case EddystoneUID:
		return "eddystone-uid"
	case IBeacon:
		return "ibeacon"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

func (p Protocol) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// ServiceTag is the 16-bit service UUID (or manufacturer id for iBeacon)
// an advertisement is published under.
type ServiceTag uint16

func (s ServiceTag) String() string {
	return fmt.Sprintf("0x%04X", uint16(s))
}

func (s ServiceTag) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Advertisement is what gets handed to the radio layer.
type Advertisement struct {
	Protocol   Protocol      `json:"protocol"`
	ServiceTag ServiceTag    `json:"serviceTag"`
	Payload    BeaconPayload `json:"payload"`
}

// Sighting is one decoded observation reported by the scanner.
type Sighting struct {
	Identifier string  `json:"rpi"`
	Metadata   string  `json:"aem"`
	RSSI       int     `json:"rssi"`
	MeanRSSI   float64 `json:"meanRssi"`
}
