package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/hotp"
)

// OTPGenerator issues one-time login codes. Each code comes from a fresh
// random HOTP secret and counter, so codes are independent of each other.
// Only the sha256 of a code is ever stored.
type OTPGenerator struct {
	digits otp.Digits
}

func NewOTPGenerator() *OTPGenerator {
	return &OTPGenerator{digits: otp.DigitsSix}
}

// Generate returns a new code and its hash.
func (g *OTPGenerator) Generate() (code, hash string, err error) {
	secret := make([]byte, 20)
	if _, err := rand.Read(secret); err != nil {
		return "", "", fmt.Errorf("failed to read random secret: %w", err)
	}
	var counter [8]byte
	if _, err := rand.Read(counter[:]); err != nil {
		return "", "", fmt.Errorf("failed to read random counter: %w", err)
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(secret)
	code, err = hotp.GenerateCodeCustom(encoded, binary.BigEndian.Uint64(counter[:]), hotp.ValidateOpts{
		Digits:    g.digits,
		Algorithm: otp.AlgorithmSHA1,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to generate otp: %w", err)
	}

	return code, HashCode(code), nil
}

// HashCode returns the hex sha256 of code.
func HashCode(code string) string {
	sum := sha256.Sum256([]byte(code))
	return hex.EncodeToString(sum[:])
}

// VerifyCode compares code against a stored hash in constant time.
func VerifyCode(code, hash string) bool {
	return subtle.ConstantTimeCompare([]byte(HashCode(code)), []byte(hash)) == 1
}
