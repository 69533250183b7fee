package proximity

import (
	"fmt"
	"io"
	"time"

	"github.com/denysvitali/proximity-go/model"
)

type GAENKey struct {
	rootKey model.SecretKey
}

func NewGAENKey(rootKey model.SecretKey) *GAENKey {
	return &GAENKey{rootKey: rootKey}
}

func (g *GAENKey) ID() string {
	return keyID(model.GAEN, g.rootKey)
}

func (g *GAENKey) Type() string {
	return model.GAEN.String()
}

func (g *GAENKey) KeyInfo() model.KeyInfo {
	return model.KeyInfo{
		Protocol:       model.GAEN,
		ServiceTag:     GAENServiceTag,
		RotationPeriod: ENIntervalLength,
		WindowLength:   ENIntervalLength,
	}
}

func (g *GAENKey) Secret() model.SecretKey {
	return g.rootKey
}

var _ model.MainKey = &GAENKey{}

// GetIdentifiers returns the identifiers of the intervals in [from, to],
// starting no earlier than the unix epoch.
func (g *GAENKey) GetIdentifiers(from time.Time, to time.Time) ([]model.TimedIdentifier, error) {
	first := max(ENIntervalNumber(from.Unix()), 0)
	last := ENIntervalNumber(to.Unix())
	if last < first {
		return nil, nil
	}
	logger.Debugf("GAEN key %s: %d intervals from %d", g.ID(), last-first+1, first)

	ids, err := RollingIdentifiers(g.rootKey, first*ENIntervalSeconds, last*ENIntervalSeconds)
	if err != nil {
		return nil, err
	}

	res := make([]model.TimedIdentifier, 0, len(ids))
	for i, id := range ids {
		window := first + int64(i)
		res = append(res, model.TimedIdentifier{
			Window:     window,
			ValidFrom:  time.Unix(window*ENIntervalSeconds, 0).UTC(),
			Identifier: id,
		})
	}
	return res, nil
}

func LoadGAENKey(reader io.ReadCloser) (model.MainKey, error) {
	defer reader.Close()
	/*
		File format:
		Key: HEX_ENCODED_ROOT_KEY
	*/
	hexKey := ""
	if _, err := fmt.Fscanf(reader, "Key: %s\n", &hexKey); err != nil {
		return nil, fmt.Errorf("unable to parse GAEN key file: %w", err)
	}
	key, err := KeyFromHex(hexKey)
	if err != nil {
		return nil, err
	}
	return NewGAENKey(key), nil
}
