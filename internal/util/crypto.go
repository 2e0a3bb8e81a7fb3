package util

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

func ConstantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// MaskPhone keeps the country prefix and the last two digits so log lines
// stay correlatable without carrying the full number.
func MaskPhone(phone string) string {
	if len(phone) <= 6 {
		return "****"
	}
	return phone[:3] + "****" + phone[len(phone)-2:]
}
