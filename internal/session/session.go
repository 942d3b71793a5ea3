package session

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// Ошибки сессии.
var (
	// ErrMissingSecret — ключ шифрования не задан.
	ErrMissingSecret = errors.New("session secret key is not set")

	// ErrInvalidToken — токен не расшифровывается этим ключом.
	ErrInvalidToken = errors.New("invalid session token")

	// ErrEmptyToken — токен отсутствует.
	ErrEmptyToken = errors.New("session token is empty")
)

// Credentials — учётные данные каталогизатора.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Codec шифрует и расшифровывает токены сессии.
//
// Формат токена: base64url(nonce[24] || secretbox(JSON(Credentials))).
// Ключ — SHA-256 от секрета, поэтому секрет может быть любой длины.
type Codec struct {
	key [32]byte
}

// NewCodec создаёт Codec с секретом.
func NewCodec(secret string) (*Codec, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}
	return &Codec{key: sha256.Sum256([]byte(secret))}, nil
}

// Seal создаёт токен для учётных данных.
func (c *Codec) Seal(creds Credentials) (string, error) {
	plain, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("marshal credentials: %w", err)
	}

	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	box := secretbox.Seal(nonce[:], plain, &nonce, &c.key)
	return base64.RawURLEncoding.EncodeToString(box), nil
}

// Read расшифровывает токен.
func (c *Codec) Read(token string) (Credentials, error) {
	if token == "" {
		return Credentials{}, ErrEmptyToken
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) < nonceSize+secretbox.Overhead {
		return Credentials{}, ErrInvalidToken
	}

	var nonce [nonceSize]byte
	copy(nonce[:], raw[:nonceSize])

	plain, ok := secretbox.Open(nil, raw[nonceSize:], &nonce, &c.key)
	if !ok {
		return Credentials{}, ErrInvalidToken
	}

	var creds Credentials
	if err := json.Unmarshal(plain, &creds); err != nil {
		return Credentials{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return creds, nil
}
