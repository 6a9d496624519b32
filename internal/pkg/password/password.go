package password

import "golang.org/x/crypto/bcrypt"

// Hash produces a salted, irreversible bcrypt digest of plain.
func Hash(plain string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Check reports whether plain matches digest. bcrypt's comparison is
// constant-time with respect to the hash, which matters because this
// guards authentication.
func Check(plain, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
