package proximity

import (
	"fmt"
	"io"
	"time"

	"github.com/denysvitali/proximity-go/model"
)

const dayLayout = "2006-01-02"

// DP3TKey is the secret key of a single UTC day.
type DP3TKey struct {
	dailyKey model.SecretKey
	day      time.Time
}

func NewDP3TKey(dailyKey model.SecretKey, day time.Time) *DP3TKey {
	return &DP3TKey{dailyKey: dailyKey, day: DayStart(day)}
}

func (d *DP3TKey) ID() string {
	return keyID(model.DP3T, d.dailyKey)
}

func (d *DP3TKey) Type() string {
	return model.DP3T.String()
}

func (d *DP3TKey) KeyInfo() model.KeyInfo {
	return model.KeyInfo{
		Protocol:       model.DP3T,
		ServiceTag:     DP3TServiceTag,
		RotationPeriod: 24 * time.Hour,
		WindowLength:   EpochLength,
	}
}

func (d *DP3TKey) Secret() model.SecretKey {
	return d.dailyKey
}

func (d *DP3TKey) Day() time.Time {
	return d.day
}

var _ model.MainKey = &DP3TKey{}

// GetIdentifiers returns the ephemeral ids of the epochs in [from, to] that
// fall on the key's day.
func (d *DP3TKey) GetIdentifiers(from time.Time, to time.Time) ([]model.TimedIdentifier, error) {
	dayEnd := d.day.Add(24*time.Hour - time.Nanosecond)
	if to.After(dayEnd) {
		to = dayEnd
	}
	amount, offset := CalculateKeyRotation(from, to, d.day, EpochLength)
	if offset >= EpochsPerDay || amount == 0 {
		return nil, nil
	}
	logger.Debugf("DP-3T key %s: %d epochs from %d", d.ID(), amount, offset)

	ids, err := EphemeralIDs(d.dailyKey)
	if err != nil {
		return nil, err
	}
	res := make([]model.TimedIdentifier, 0, amount)
	for i := offset; i < offset+amount; i++ {
		res = append(res, model.TimedIdentifier{
			Window:     int64(i),
			ValidFrom:  d.day.Add(time.Duration(i) * EpochLength),
			Identifier: ids[i],
		})
	}
	return res, nil
}

func LoadDP3TKey(reader io.ReadCloser) (model.MainKey, error) {
	defer reader.Close()
	/*
		File format:
		Day: YYYY-MM-DD
		Key: HEX_ENCODED_DAILY_KEY
	*/
	day, hexKey := "", ""
	if _, err := fmt.Fscanf(reader, "Day: %s\nKey: %s\n", &day, &hexKey); err != nil {
		return nil, fmt.Errorf("unable to parse DP-3T key file: %w", err)
	}
	t, err := time.Parse(dayLayout, day)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	key, err := KeyFromHex(hexKey)
	if err != nil {
		return nil, err
	}
	return NewDP3TKey(key, t), nil
}
