package gotrue

import "golang.org/x/crypto/bcrypt"

// hashPassword hashes a plaintext password using bcrypt with DefaultCost.
func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

// checkPassword compares a bcrypt hash with a candidate plaintext password.
func checkPassword(hash, pw string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw))
}
