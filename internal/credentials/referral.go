// Package credentials generates shareable family referral codes
package credentials

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// ReferralCodeLength is the number of characters in a referral code
const ReferralCodeLength = 8

// referralAlphabet leaves out characters that are easy to confuse when read
// aloud or copied by hand (0/O, 1/I/L)
const referralAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateReferralCode returns a random code drawn from referralAlphabet
func GenerateReferralCode() (string, error) {
	code := make([]byte, ReferralCodeLength)
	max := big.NewInt(int64(len(referralAlphabet)))

	for i := range code {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = referralAlphabet[num.Int64()]
	}

	return string(code), nil
}

// NormalizeReferralCode trims and upper-cases user input before lookup
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
