package fakesmtp

import (
	"crypto/aes"
	"crypto/cipher"
	cryptorand "crypto/rand"
	"encoding/base64"
	"encoding/binary"
)

var idCipher cipher.Block
var idRand []byte

func init() {
	// Init for tests. Overwritten with random material in serve.
	if err := SessionIDInit([]byte("0123456701234567"), []byte("01234567")); err != nil {
		panic(err)
	}
}

// SessionIDInit sets the AES key (16 bytes) and random buffer (8 bytes) used
// by SessionID.
func SessionIDInit(key, rand []byte) error {
	var err error
	idCipher, err = aes.NewCipher(key)
	idRand = rand
	return err
}

// SessionIDInitRandom initializes SessionID with fresh random material.
func SessionIDInitRandom() error {
	key := make([]byte, 16)
	if _, err := cryptorand.Read(key); err != nil {
		return err
	}
	rnd := make([]byte, 8)
	if _, err := cryptorand.Read(rnd); err != nil {
		return err
	}
	return SessionIDInit(key, rnd)
}

// SessionID returns the opaque session id for a session index. The index is
// a counter and would leak the number of connections if used directly;
// encrypting it with a per-process key gives a unique opaque string while
// keeping the index recoverable by the operator.
func SessionID(cid int64) string {
	buf := make([]byte, 16)
	copy(buf, idRand)
	binary.BigEndian.PutUint64(buf[8:], uint64(cid))
	idCipher.Encrypt(buf, buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}
