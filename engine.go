package proximity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/denysvitali/proximity-go/model"
)

// Engine is implemented by every supported beacon variant. DeriveKey turns
// long-lived secret material into the key used for one rotation period,
// Identifier computes the identifier broadcast at a point in time, Payload
// frames it for the radio.
type Engine interface {
	Protocol() model.Protocol
	ServiceTag() model.ServiceTag
	DeriveKey(secret model.SecretKey) (model.SecretKey, error)
	Identifier(key model.SecretKey, at time.Time) (model.RollingIdentifier, error)
	Payload(id model.RollingIdentifier) model.BeaconPayload
}

type GAEN struct{}

func (GAEN) Protocol() model.Protocol     { return model.GAEN }
func (GAEN) ServiceTag() model.ServiceTag { return GAENServiceTag }

func (GAEN) DeriveKey(secret model.SecretKey) (model.SecretKey, error) {
	return DeriveRotationKey(secret)
}

func (GAEN) Identifier(key model.SecretKey, at time.Time) (model.RollingIdentifier, error) {
	return ComputeIdentifier(key, at.Unix())
}

// Payload appends an all-zero AEM; metadata encryption needs key material
// this package does not have.
func (GAEN) Payload(id model.RollingIdentifier) model.BeaconPayload {
	return BuildPayload(id, model.AEM{})
}

type DP3T struct{}

func (DP3T) Protocol() model.Protocol     { return model.DP3T }
func (DP3T) ServiceTag() model.ServiceTag { return DP3TServiceTag }

// DeriveKey returns the AES key of the day, the first half of the broadcast key.
func (DP3T) DeriveKey(secret model.SecretKey) (model.SecretKey, error) {
	return broadcastAESKey(secret), nil
}

func (DP3T) Identifier(key model.SecretKey, at time.Time) (model.RollingIdentifier, error) {
	return ephemeralID(key, EpochOfDay(at))
}

func (DP3T) Payload(id model.RollingIdentifier) model.BeaconPayload {
	return model.BeaconPayload(id[:])
}

// EddystoneUIDEngine broadcasts the secret verbatim as namespace and instance.
type EddystoneUIDEngine struct {
	TxPower int8
}

func (EddystoneUIDEngine) Protocol() model.Protocol     { return model.EddystoneUID }
func (EddystoneUIDEngine) ServiceTag() model.ServiceTag { return EddystoneServiceTag }

func (EddystoneUIDEngine) DeriveKey(secret model.SecretKey) (model.SecretKey, error) {
	return secret, nil
}

func (EddystoneUIDEngine) Identifier(key model.SecretKey, _ time.Time) (model.RollingIdentifier, error) {
	return model.RollingIdentifier(key), nil
}

func (e EddystoneUIDEngine) Payload(id model.RollingIdentifier) model.BeaconPayload {
	return BuildEddystoneUID(id, e.TxPower)
}

// IBeaconEngine broadcasts the secret as proximity UUID.
type IBeaconEngine struct {
	Major uint16
	Minor uint16
}

func (IBeaconEngine) Protocol() model.Protocol     { return model.IBeacon }
func (IBeaconEngine) ServiceTag() model.ServiceTag { return AppleCompanyID }

func (IBeaconEngine) DeriveKey(secret model.SecretKey) (model.SecretKey, error) {
	return secret, nil
}

func (IBeaconEngine) Identifier(key model.SecretKey, _ time.Time) (model.RollingIdentifier, error) {
	return model.RollingIdentifier(key), nil
}

func (e IBeaconEngine) Payload(id model.RollingIdentifier) model.BeaconPayload {
	return BuildIBeacon(uuid.UUID(id), e.Major, e.Minor)
}

var (
	_ Engine = GAEN{}
	_ Engine = DP3T{}
	_ Engine = EddystoneUIDEngine{}
	_ Engine = IBeaconEngine{}
)

// EngineFor returns the engine of p with default reference-framing settings.
func EngineFor(p model.Protocol) (Engine, error) {
	switch p {
	case model.GAEN:
		return GAEN{}, nil
	case model.DP3T:
		return DP3T{}, nil
	case model.EddystoneUID:
		return EddystoneUIDEngine{}, nil
	case model.IBeacon:
		return IBeaconEngine{Major: 111, Minor: 222}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidArgument, p)
	}
}

func ParseProtocol(name string) (model.Protocol, error) {
	switch strings.ToLower(name) {
	case "gaen", "en", "apple-google":
		return model.GAEN, nil
	case "dp3t", "dp-3t":
		return model.DP3T, nil
	case "eddystone", "eddystone-uid":
		return model.EddystoneUID, nil
	case "ibeacon":
		return model.IBeacon, nil
	default:
		return 0, fmt.Errorf("%w: unknown protocol %q", ErrInvalidArgument, name)
	}
}

// Advertise runs the full chain for secret at the given time. Either the
// complete advertisement or an error is returned.
func Advertise(e Engine, secret model.SecretKey, at time.Time) (model.Advertisement, error) {
	key, err := e.DeriveKey(secret)
	if err != nil {
		return model.Advertisement{}, fmt.Errorf("unable to derive key: %w", err)
	}
	id, err := e.Identifier(key, at)
	if err != nil {
		return model.Advertisement{}, fmt.Errorf("unable to compute identifier: %w", err)
	}
	return model.Advertisement{
		Protocol:   e.Protocol(),
		ServiceTag: e.ServiceTag(),
		Payload:    e.Payload(id),
	}, nil
}
