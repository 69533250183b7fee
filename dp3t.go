package proximity

import (
	"fmt"

	"github.com/denysvitali/proximity-go/model"
)

// DP-3T ephemeral ids, following the dp3t-sdk BLE server.

const DP3TServiceTag model.ServiceTag = 0xFD68

func broadcastAESKey(dailyKey model.SecretKey) model.SecretKey {
	var key model.SecretKey
	bk := DeriveBroadcastKey(dailyKey)
	copy(key[:], bk[:model.KeyLength])
	return key
}

func validEpoch(epochIndex int) error {
	if epochIndex < 0 || epochIndex >= EpochsPerDay {
		return fmt.Errorf("%w: invalid epoch number %d", ErrInvalidArgument, epochIndex)
	}
	return nil
}

// ephemeralID pulls epochIndex+1 blocks from the keystream and returns the
// last one. The stream is consumed sequentially, not seeked to a counter,
// to stay bit-compatible with the reference SDK.
func ephemeralID(aesKey model.SecretKey, epochIndex int) (model.RollingIdentifier, error) {
	if err := validEpoch(epochIndex); err != nil {
		return model.RollingIdentifier{}, err
	}
	ks, err := newKeystream(aesKey)
	if err != nil {
		return model.RollingIdentifier{}, err
	}
	var id model.RollingIdentifier
	for i := 0; i <= epochIndex; i++ {
		id = ks.next()
	}
	return id, nil
}

func GenerateEphemeralID(dailyKey model.SecretKey, epochIndex int) (model.RollingIdentifier, error) {
	if err := validEpoch(epochIndex); err != nil {
		return model.RollingIdentifier{}, err
	}
	return ephemeralID(broadcastAESKey(dailyKey), epochIndex)
}

// EphemeralIDs returns the identifiers of all epochs of the day in order.
func EphemeralIDs(dailyKey model.SecretKey) ([]model.RollingIdentifier, error) {
	ks, err := newKeystream(broadcastAESKey(dailyKey))
	if err != nil {
		return nil, err
	}
	ids := make([]model.RollingIdentifier, EpochsPerDay)
	for i := range ids {
		ids[i] = ks.next()
	}
	return ids, nil
}

func BuildDP3T(dailyKey model.SecretKey, epochIndex int) (model.BeaconPayload, error) {
	id, err := GenerateEphemeralID(dailyKey, epochIndex)
	if err != nil {
		return nil, err
	}
	return model.BeaconPayload(id[:]), nil
}
