// Package encryption seals values with an AEAD cipher before they are
// written to storage, so persisted error logs are unreadable without the key.
//
// Keys are passphrases; SHA-256 derives the 256-bit cipher key.
//
//	c, err := encryption.New("passphrase", encryption.WithAlgorithm(encryption.AlgorithmChaCha20))
//	sealed, err := c.Seal(plaintext)
//	plaintext, err := c.Open(sealed)
package encryption
