package proximity

import (
	"github.com/google/uuid"

	"github.com/denysvitali/proximity-go/model"
)

// Reference framings used to check the radio path end to end. They carry
// static identifiers and no key schedule.

const (
	EddystoneServiceTag model.ServiceTag = 0xFEAA
	AppleCompanyID      model.ServiceTag = 0x004C

	eddystoneFrameUID   = 0x00
	eddystonePayloadLen = 20

	iBeaconType       = 0x02
	iBeaconLength     = 0x15
	iBeaconPayloadLen = 23
)

// EddystoneUID returns the 16-byte namespace (10 bytes) and instance
// (6 bytes) identifier. Namespace is written as a big-endian uint64 followed
// by two zero bytes, instance as a big-endian uint32 followed by two zero bytes.
func EddystoneUID(namespace uint64, instance uint32) model.RollingIdentifier {
	var id model.RollingIdentifier
	putUint64BE(id[0:8], namespace)
	putUint32BE(id[10:14], instance)
	return id
}

// BuildEddystoneUID frames a UID: frame type, tx power, id, two RFU bytes.
func BuildEddystoneUID(id model.RollingIdentifier, txPower int8) model.BeaconPayload {
	payload := make(model.BeaconPayload, eddystonePayloadLen)
	payload[0] = eddystoneFrameUID
	payload[1] = byte(txPower)
	copy(payload[2:], id[:])
	return payload
}

// BuildIBeacon returns the manufacturer data of an iBeacon advertisement,
// leaving the trailing measured-power byte zero.
func BuildIBeacon(proximityUUID uuid.UUID, major, minor uint16) model.BeaconPayload {
	payload := make(model.BeaconPayload, iBeaconPayloadLen)
	payload[0] = iBeaconType
	payload[1] = iBeaconLength
	copy(payload[2:18], proximityUUID[:])
	putUint16BE(payload[18:20], major)
	putUint16BE(payload[20:22], minor)
	return payload
}

func RandomIBeaconUUID() uuid.UUID {
	return uuid.New()
}
