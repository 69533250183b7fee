package proximity

import (
	"crypto/aes"
	"fmt"

	"github.com/denysvitali/proximity-go/model"
)

// Exposure Notification (GAEN) rolling proximity identifiers, per the
// Apple|Google Exposure Notification cryptography, v1.2.

const GAENServiceTag model.ServiceTag = 0xFD6F

const (
	rpiPrefix       = "EN-RPI"
	gaenPayloadSize = model.KeyLength + 4
)

func paddedData(enInterval int64) [aes.BlockSize]byte {
	var padded [aes.BlockSize]byte
	copy(padded[:], rpiPrefix)
	putUint32LE(padded[12:], uint32(enInterval))
	return padded
}

// ComputeIdentifier returns the rolling proximity identifier for the
// 10-minute interval containing unixSeconds.
func ComputeIdentifier(rotationKey model.SecretKey, unixSeconds int64) (model.RollingIdentifier, error) {
	out, err := aes128(rotationKey, paddedData(ENIntervalNumber(unixSeconds)))
	if err != nil {
		return model.RollingIdentifier{}, err
	}
	return model.RollingIdentifier(out), nil
}

// RollingIdentifier derives the rotation key from rootKey and computes the
// identifier at unixSeconds.
func RollingIdentifier(rootKey model.SecretKey, unixSeconds int64) (model.RollingIdentifier, error) {
	rpik, err := DeriveRotationKey(rootKey)
	if err != nil {
		return model.RollingIdentifier{}, err
	}
	return ComputeIdentifier(rpik, unixSeconds)
}

// RollingIdentifiers returns one identifier per interval in the closed range
// [ENIntervalNumber(from), ENIntervalNumber(to)], at most MaxScheduleWindows.
func RollingIdentifiers(rootKey model.SecretKey, from, to int64) ([]model.RollingIdentifier, error) {
	if to < from {
		return nil, fmt.Errorf("%w: time range ends before it starts", ErrInvalidArgument)
	}
	first, last := ENIntervalNumber(from), ENIntervalNumber(to)
	if last-first >= int64(MaxScheduleWindows) {
		return nil, fmt.Errorf("%w: %d intervals requested, at most %d allowed",
			ErrInvalidArgument, last-first+1, MaxScheduleWindows)
	}
	rpik, err := DeriveRotationKey(rootKey)
	if err != nil {
		return nil, err
	}
	ids := make([]model.RollingIdentifier, 0, last-first+1)
	for j := first; j <= last; j++ {
		id, err := ComputeIdentifier(rpik, j*ENIntervalSeconds)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func BuildPayload(id model.RollingIdentifier, aem model.AEM) model.BeaconPayload {
	payload := make(model.BeaconPayload, gaenPayloadSize)
	copy(payload, id[:])
	copy(payload[model.KeyLength:], aem[:])
	return payload
}
