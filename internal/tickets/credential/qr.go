package credential

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"time"

	"ms-booking/internal/apperror"
)

// QRPayload is what a ticket's QR code carries, encrypted.
type QRPayload struct {
	TicketID string    `json:"ticket_id"`
	EventID  string    `json:"event_id"`
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"`
}

type QRCodec struct {
	secret []byte
}

func NewQRCodec(secret string) *QRCodec {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &QRCodec{secret: hashed[:]}
}

func (c *QRCodec) Encrypt(payload QRPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.secret)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. Anything that does not decode to a payload
// naming a ticket is reported as ErrInvalidQRCode.
func (c *QRCodec) Decrypt(encoded string) (*QRPayload, error) {
	ciphertext, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, apperror.ErrInvalidQRCode.WithCause(err)
	}
	if len(ciphertext) <= aes.BlockSize {
		return nil, apperror.ErrInvalidQRCode.WithCause(errors.New("ciphertext too short"))
	}

	block, err := aes.NewCipher(c.secret)
	if err != nil {
		return nil, err
	}

	iv := ciphertext[:aes.BlockSize]
	data := make([]byte, len(ciphertext)-aes.BlockSize)
	cipher.NewCFBDecrypter(block, iv).XORKeyStream(data, ciphertext[aes.BlockSize:])

	var payload QRPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, apperror.ErrInvalidQRCode.WithCause(err)
	}
	if payload.TicketID == "" {
		return nil, apperror.ErrInvalidQRCode.WithCause(errors.New("payload has no ticket id"))
	}
	return &payload, nil
}
