package proximity

import (
	"crypto/hmac"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/denysvitali/proximity-go/model"
)

const (
	rpikInfo        = "EN-RPIK"
	broadcastKeyMsg = "broadcast key"
)

func hkdfSHA256(secret []byte, info string, length int) ([]byte, error) {
	out := make([]byte, length)
	r := hkdf.New(sha256.New, secret, nil, []byte(info))
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, fmt.Errorf("%w: hkdf: %v", ErrUnsupported, err)
	}
	return out, nil
}

func hmacSHA256(key []byte, msg string) [sha256.Size]byte {
	var out [sha256.Size]byte
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(msg))
	copy(out[:], mac.Sum(nil))
	return out
}

func sha256Hash(data []byte) []byte {
	h := sha256.New()
	h.Write(data)
	return h.Sum(nil)
}

// DeriveRotationKey derives the rolling proximity identifier key from a root
// (temporary exposure) key.
func DeriveRotationKey(rootKey model.SecretKey) (model.SecretKey, error) {
	var key model.SecretKey
	out, err := hkdfSHA256(rootKey[:], rpikInfo, model.KeyLength)
	if err != nil {
		return key, err
	}
	copy(key[:], out)
	return key, nil
}

// DeriveBroadcastKey returns HMAC-SHA256(dailyKey, "broadcast key").
func DeriveBroadcastKey(dailyKey model.SecretKey) [sha256.Size]byte {
	return hmacSHA256(dailyKey[:], broadcastKeyMsg)
}
