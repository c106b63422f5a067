package pkg

import (
	"crypto/rand"
	"encoding/base64"
	"math"
	"unsafe"
)

// BytesToString converts bytes slice to a string without extra allocation
func BytesToString(buf []byte) string {
	return *(*string)(unsafe.Pointer(&buf))
}

// GenerateRandomBytes returns securely generated random bytes.
// It will return an error if the system's secure random
// number generator fails to function correctly, in which
// case the caller should not continue
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	// Note that err == nil only if we read len(b) bytes.
	if err != nil {
		return nil, err
	}

	return b, nil
}

// GenerateRandomString returns a URL-safe, base64 encoded
// securely generated random string.
func GenerateRandomString(s int) (string, error) {
	b, err := GenerateRandomBytes(s)
	return base64.URLEncoding.EncodeToString(b), err
}

// RoundToHalfKilo rounds a weight to realistic gym plate increments,
// i.e. to the nearest 0.5 kg. Examples: 12.23 -> 12.0, 12.37 -> 12.5.
func RoundToHalfKilo(weight float64) float64 {
	if math.IsNaN(weight) || math.IsInf(weight, 0) {
		return 0
	}
	return math.Round(weight*2) / 2
}

// RoundToTwoDecimals keeps two decimal places, used for progressive
// overload targets to avoid float accumulation drift across sessions.
func RoundToTwoDecimals(val float64) float64 {
	return math.Round(val*100) / 100
}
