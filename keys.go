package proximity

import (
	"encoding/base64"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/proximity-go/model"
)

var logger = logrus.StandardLogger().WithField("pkg", "proximity")

// LoadKeys loads every *.tek (GAEN root key) and *.dp3t (DP-3T daily key)
// file in dir.
func LoadKeys(dir string) ([]model.MainKey, error) {
	keys := make([]model.MainKey, 0)
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, v := range files {
		if v.IsDir() {
			continue
		}
		var toAddKey model.MainKey
		switch {
		case strings.HasSuffix(v.Name(), ".tek"):
			f, err := os.Open(path.Join(dir, v.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to open file %s: %w", v.Name(), err)
			}
			toAddKey, err = LoadGAENKey(f)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", v.Name(), err)
			}
		case strings.HasSuffix(v.Name(), ".dp3t"):
			f, err := os.Open(path.Join(dir, v.Name()))
			if err != nil {
				return nil, fmt.Errorf("failed to open file %s: %w", v.Name(), err)
			}
			toAddKey, err = LoadDP3TKey(f)
			if err != nil {
				return nil, fmt.Errorf("failed to load %s: %w", v.Name(), err)
			}
		default:
			continue
		}
		keys = append(keys, toAddKey)
	}
	return keys, nil
}

// keyID names a key by protocol and secret, so equal bytes loaded as
// different key types stay distinct.
func keyID(protocol model.Protocol, secret model.SecretKey) string {
	data := append([]byte(protocol.String()+":"), secret[:]...)
	return base64.StdEncoding.EncodeToString(sha256Hash(data)[:8])
}

// AdvertiseKey mints the advertisement of a loaded key at the given time.
func AdvertiseKey(k model.MainKey, at time.Time) (model.Advertisement, error) {
	switch key := k.(type) {
	case *GAENKey:
		return Advertise(GAEN{}, key.Secret(), at)
	case *DP3TKey:
		if !DayStart(at).Equal(key.Day()) {
			return model.Advertisement{}, fmt.Errorf("%w: key %s is valid on %s only",
				ErrInvalidArgument, key.ID(), key.Day().Format(dayLayout))
		}
		return Advertise(DP3T{}, key.Secret(), at)
	default:
		return model.Advertisement{}, fmt.Errorf("%w: key type %s", ErrUnsupported, k.Type())
	}
}
