package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
)

// sealedPrefix marks the sealed format so a future key or cipher change can
// be told apart from this one.
const sealedPrefix = "v1."

var ErrNotSealed = errors.New("session blob is not sealed")

// SealSession encrypts a session blob with AES-256-GCM. The phone number is
// bound as associated data: a sealed blob copied onto another account's row
// does not open.
func SealSession(hexKey, phone, blob string) (string, error) {
	gcm, err := sessionCipher(hexKey)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(blob), []byte(phone))
	return sealedPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// OpenSession reverses SealSession for the same phone.
func OpenSession(hexKey, phone, sealed string) (string, error) {
	encoded, ok := strings.CutPrefix(sealed, sealedPrefix)
	if !ok {
		return "", ErrNotSealed
	}
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("decode sealed session: %w", err)
	}

	gcm, err := sessionCipher(hexKey)
	if err != nil {
		return "", err
	}
	if len(raw) < gcm.NonceSize()+gcm.Overhead() {
		return "", fmt.Errorf("sealed session too short")
	}

	nonce, ciphertext := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	blob, err := gcm.Open(nil, nonce, ciphertext, []byte(phone))
	if err != nil {
		return "", fmt.Errorf("open sealed session: %w", err)
	}
	return string(blob), nil
}

func sessionCipher(hexKey string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode encryption key: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("encryption key must be 32 bytes (64 hex chars)")
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
