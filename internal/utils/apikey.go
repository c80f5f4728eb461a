package utils

import "golang.org/x/crypto/bcrypt"

// HashAPIKey hashes a channel API key with bcrypt at the given cost.
// Only the hash is stored on the channel mapping; the plaintext key is
// shown once at registration time.
func HashAPIKey(key string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// CheckAPIKey reports whether the presented key matches the stored hash.
func CheckAPIKey(hash, key string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}
