// Package verify checks the integrity of the bundled runtime binary before it is launched.
package verify

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/gopenpgp/v3/crypto"
)

// Checksum returns the hex-encoded SHA-256 digest of the file at path.
func Checksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file %s for sha256 checksum calculation: %v", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to compute sha256 of %s: %v", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// VerifyChecksum returns an error unless the SHA-256 digest of the file at path equals want.
func VerifyChecksum(path, want string) error {
	got, err := Checksum(path)
	if err != nil {
		return err
	}
	if !strings.EqualFold(got, strings.TrimSpace(want)) {
		return fmt.Errorf("%s has sha256 %s, but %s was expected", path, got, want)
	}
	return nil
}

// VerifySignature checks the armored detached OpenPGP signature at sigPath for the file at path against the given armored key.
func VerifySignature(path, sigPath, armoredKey string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %v", path, err)
	}
	signature, err := os.ReadFile(sigPath)
	if err != nil {
		return fmt.Errorf("could not read signature %s: %v", sigPath, err)
	}

	key, err := crypto.NewKeyFromArmored(armoredKey)
	if err != nil {
		return fmt.Errorf("could not parse verification key: %v", err)
	}

	pgp := crypto.PGP()
	verifier, err := pgp.Verify().
		VerificationKey(key).
		New()
	if err != nil {
		return fmt.Errorf("could not create verifier: %v", err)
	}

	result, err := verifier.VerifyDetached(data, signature, crypto.Armor)
	if err != nil {
		return fmt.Errorf("could not verify signature of %s: %v", path, err)
	}
	if sigErr := result.SignatureError(); sigErr != nil {
		return fmt.Errorf("invalid signature for %s: %v", path, sigErr)
	}
	return nil
}
