package keyring

import (
	"crypto/rand"
	"encoding/base64"
	"math/big"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"mybucks/internal/domain/entity"
)

// Wallet links carry a full credential set in a URL so a wallet can be opened
// on another device without retyping. The token is control-byte-joined,
// base64-encoded and wrapped in random padding so it has no recognizable
// prefix in logs or browser history.
const (
	// linkSeparator joins the fields; U+0002 never appears in valid
	// credentials or network names.
	linkSeparator = "\x02"

	linkPadLen = 6
)

const padAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// EncodeLink serializes (password, passcode, networkName) into an opaque
// token. The padding is random per call; only the inner payload matters for
// the round trip.
func EncodeLink(password, passcode, networkName string) (string, error) {
	if strings.ContainsAny(password+passcode+networkName, linkSeparator) {
		return "", entity.ErrLinkMalformed
	}
	payload := password + linkSeparator + passcode + linkSeparator + networkName
	encoded := base64.StdEncoding.EncodeToString([]byte(payload))

	prefix, err := randomPad(linkPadLen)
	if err != nil {
		return "", err
	}
	suffix, err := randomPad(linkPadLen)
	if err != nil {
		return "", err
	}
	return prefix + encoded + suffix, nil
}

// DecodeLink inverts EncodeLink. Any malformation yields ErrLinkMalformed;
// callers treat that as "ignore the link", never as a fatal condition.
func DecodeLink(token string) (password, passcode, networkName string, err error) {
	if len(token) <= 2*linkPadLen {
		return "", "", "", entity.ErrLinkMalformed
	}
	inner := token[linkPadLen : len(token)-linkPadLen]
	decoded, decodeErr := base64.StdEncoding.DecodeString(inner)
	if decodeErr != nil {
		return "", "", "", entity.ErrLinkMalformed
	}
	parts := strings.Split(string(decoded), linkSeparator)
	if len(parts) != 3 {
		return "", "", "", entity.ErrLinkMalformed
	}
	return parts[0], parts[1], parts[2], nil
}

// LinkQRCode renders a wallet-link URL as a PNG QR code for cross-device
// scanning.
func LinkQRCode(linkURL string, size int) ([]byte, error) {
	qr, err := qrcode.New(linkURL, qrcode.Medium)
	if err != nil {
		return nil, err
	}
	return qr.PNG(size)
}

func randomPad(n int) (string, error) {
	max := big.NewInt(int64(len(padAlphabet)))
	var sb strings.Builder
	sb.Grow(n)
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		sb.WriteByte(padAlphabet[idx.Int64()])
	}
	return sb.String(), nil
}
