// Package verifytest creates OpenPGP keys and signatures for tests.
package verifytest

import (
	"github.com/ProtonMail/gopenpgp/v3/crypto"
)

// GenerateTestKey returns a new armored private key.
func GenerateTestKey(name, email string) (string, error) {
	pgp := crypto.PGP()
	handle := pgp.KeyGeneration().
		AddUserId(name, email).
		New()
	key, err := handle.GenerateKey()
	if err != nil {
		return "", err
	}
	return key.Armor()
}

// PublicKey returns the armored public part of an armored private key.
func PublicKey(armoredKey string) (string, error) {
	key, err := crypto.NewKeyFromArmored(armoredKey)
	if err != nil {
		return "", err
	}
	return key.GetArmoredPublicKey()
}

// SignMessage returns an armored detached signature of message.
func SignMessage(message []byte, armoredKey string) (string, error) {
	pgp := crypto.PGP()
	key, err := crypto.NewKeyFromArmored(armoredKey)
	if err != nil {
		return "", err
	}
	keyring, err := crypto.NewKeyRing(key)
	if err != nil {
		return "", err
	}
	signer, err := pgp.Sign().
		SigningKeys(keyring).
		Detached().
		New()
	if err != nil {
		return "", err
	}
	signature, err := signer.Sign(message, crypto.Armor)
	if err != nil {
		return "", err
	}
	return string(signature), nil
}
