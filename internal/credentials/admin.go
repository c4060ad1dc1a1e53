// Package credentials checks the static administrator credential
package credentials

import (
	"crypto/subtle"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Admin is the single administrator credential. If PasswordHash is set it is
// used; otherwise Password is compared in constant time.
type Admin struct {
	Username     string
	Password     string
	PasswordHash string
}

// Validate checks that the credential can be used to log in
func (a Admin) Validate() error {
	if a.Username == "" {
		return errors.New("admin username must not be empty")
	}
	if a.PasswordHash != "" {
		if _, _, _, err := parseArgon2id(a.PasswordHash); err != nil {
			return errors.Wrap(err, "invalid admin password_hash")
		}
		return nil
	}
	if a.Password == "" {
		return errors.New("admin password or password_hash must be set")
	}
	return nil
}

// Authenticate reports whether username and password match the credential
func (a Admin) Authenticate(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(a.Username)) == 1
	var passOK bool
	if a.PasswordHash != "" {
		ok, err := VerifyPassword(a.PasswordHash, password)
		if err != nil {
			log.WithError(err).Error("could not verify admin password")
		}
		passOK = ok
	} else {
		passOK = a.Password != "" && subtle.ConstantTimeCompare([]byte(password), []byte(a.Password)) == 1
	}
	return userOK && passOK
}
