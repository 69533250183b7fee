package proximity

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"github.com/denysvitali/proximity-go/model"
)

// aes128 encrypts exactly one block with AES-128-CBC, a zero IV and no padding.
func aes128(key model.SecretKey, data [aes.BlockSize]byte) ([aes.BlockSize]byte, error) {
	var out [aes.BlockSize]byte
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return out, fmt.Errorf("%w: aes: %v", ErrUnsupported, err)
	}
	var zeroIV [aes.BlockSize]byte
	cipher.NewCBCEncrypter(block, zeroIV[:]).CryptBlocks(out[:], data[:])
	return out, nil
}

// keystream yields successive AES-CTR blocks of an all-zero plaintext,
// starting from an all-zero counter.
type keystream struct {
	stream cipher.Stream
	zeros  [aes.BlockSize]byte
}

func newKeystream(key model.SecretKey) (*keystream, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("%w: aes: %v", ErrUnsupported, err)
	}
	var zeroIV [aes.BlockSize]byte
	return &keystream{stream: cipher.NewCTR(block, zeroIV[:])}, nil
}

func (k *keystream) next() [aes.BlockSize]byte {
	var out [aes.BlockSize]byte
	k.stream.XORKeyStream(out[:], k.zeros[:])
	return out
}
