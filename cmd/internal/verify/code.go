package verify

import (
	"crypto/rand"
	"fmt"
)

// CodePrefix is the fixed, human-recognizable prefix of every
// verification code. Members paste the full code into their Roblox
// profile description.
const CodePrefix = "USAFFE-"

// codeAlphabet excludes lowercase to survive profile-text normalization
// done by some Roblox clients.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

const codeRandomLen = 8

// NewCode generates a fresh verification code of the form
// "USAFFE-XXXXXXXX". Codes are not required to be globally unique;
// the challenge row is keyed by the Roblox user id.
func NewCode() (string, error) {
	b := make([]byte, codeRandomLen)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("verify: generate code: %w", err)
	}
	for i := range b {
		b[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return CodePrefix + string(b), nil
}
