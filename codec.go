package proximity

import (
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/denysvitali/proximity-go/model"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnsupported means a cipher or digest primitive could not be set up.
	// It is not transient and should not be retried.
	ErrUnsupported   = errors.New("unsupported")
	ErrUnknownFormat = errors.New("unknown advertisement format")
)

// KeyFromString returns the bytes of str zero-padded to the key length.
func KeyFromString(str string) (model.SecretKey, error) {
	return KeyFromBytes([]byte(str))
}

func KeyFromBytes(b []byte) (model.SecretKey, error) {
	var key model.SecretKey
	if len(b) > len(key) {
		return key, fmt.Errorf("%w: %d bytes is too long to be used as a key", ErrInvalidArgument, len(b))
	}
	copy(key[:], b)
	return key, nil
}

// KeyFromHex parses a hex encoded key, padding short material like KeyFromBytes.
func KeyFromHex(s string) (model.SecretKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return model.SecretKey{}, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	return KeyFromBytes(b)
}

func putUint32LE(dst []byte, v uint32) {
	binary.LittleEndian.PutUint32(dst, v)
}

func putUint16BE(dst []byte, v uint16) {
	binary.BigEndian.PutUint16(dst, v)
}

func putUint32BE(dst []byte, v uint32) {
	binary.BigEndian.PutUint32(dst, v)
}

func putUint64BE(dst []byte, v uint64) {
	binary.BigEndian.PutUint64(dst, v)
}

func hexField(b []byte) string {
	return hex.EncodeToString(b)
}
