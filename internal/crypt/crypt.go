package crypt

import (
	"strings"

	"github.com/GehirnInc/crypt/sha512_crypt"

	"github.com/osbuild/preseed-composer/internal/common"
)

// LockedPassword is the password field value of an account that no
// password can unlock.
const LockedPassword = "!"

const (
	SHA512SaltLength = 16
	sha512Prefix     = "$6$"
)

// CryptSHA512 returns the SHA-512 crypt(3) hash of phrase in the
// `$6$<salt>$<hash>` form, using a fresh random salt on every call.
func CryptSHA512(phrase string) (string, error) {
	salt, err := genSalt(SHA512SaltLength)
	if err != nil {
		return "", err
	}

	return sha512_crypt.New().Generate([]byte(phrase), []byte(sha512Prefix+salt))
}

// HashPassword returns LockedPassword for an empty password and the
// SHA-512 crypt hash otherwise.
func HashPassword(password string) (string, error) {
	if password == "" {
		return LockedPassword, nil
	}
	return CryptSHA512(password)
}

// VerifyPassword reports whether password matches a hash produced by
// CryptSHA512. The locked marker never matches.
func VerifyPassword(hashed, password string) bool {
	if hashed == LockedPassword || !strings.HasPrefix(hashed, sha512Prefix) {
		return false
	}
	return sha512_crypt.New().Verify(hashed, []byte(password)) == nil
}

func genSalt(length int) (string, error) {
	return common.RandomString(length, common.AlphanumericChars)
}
