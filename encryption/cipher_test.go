package encryption

import (
	"bytes"
	"errors"
	"testing"
)

func TestCipher_RoundTrip(t *testing.T) {
	for _, alg := range []Algorithm{AlgorithmAESGCM, AlgorithmChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			c, err := New("passphrase", WithAlgorithm(alg))
			if err != nil {
				t.Fatalf("New: %v", err)
			}
			tests := [][]byte{
				nil,
				[]byte("hello"),
				[]byte(`[{"id":"err_1","message":"Failed to fetch"}]`),
				bytes.Repeat([]byte{0xff}, 4096),
			}
			for _, plaintext := range tests {
				sealed, err := c.Seal(plaintext)
				if err != nil {
					t.Fatalf("Seal: %v", err)
				}
				if len(plaintext) > 0 && bytes.Contains(sealed, plaintext) {
					t.Error("sealed output contains the plaintext")
				}
				got, err := c.Open(sealed)
				if err != nil {
					t.Fatalf("Open: %v", err)
				}
				if !bytes.Equal(got, plaintext) {
					t.Errorf("Open = %q, want %q", got, plaintext)
				}
			}
		})
	}
}

func TestCipher_NonceIsRandom(t *testing.T) {
	c, _ := New("passphrase")
	a, _ := c.Seal([]byte("same"))
	b, _ := c.Seal([]byte("same"))
	if bytes.Equal(a, b) {
		t.Error("two seals of the same plaintext are identical")
	}
}

func TestCipher_OpenRejects(t *testing.T) {
	c, _ := New("key-one")
	other, _ := New("key-two")
	sealed, _ := c.Seal([]byte("secret"))

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 0x01

	tests := []struct {
		name  string
		input []byte
		c     Cipher
	}{
		{"wrong key", sealed, other},
		{"tampered", tampered, c},
		{"short", []byte{1, 2, 3}, c},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.c.Open(tt.input); err == nil {
				t.Error("expected error")
			}
		})
	}
	if _, err := c.Open(nil); !errors.Is(err, ErrShortCiphertext) {
		t.Errorf("Open(nil) = %v, want ErrShortCiphertext", err)
	}
}

func TestParseAlgorithm(t *testing.T) {
	tests := []struct {
		in      string
		want    Algorithm
		wantErr bool
	}{
		{"", AlgorithmAESGCM, false},
		{"aes-256-gcm", AlgorithmAESGCM, false},
		{"chacha20-poly1305", AlgorithmChaCha20, false},
		{"des", "", true},
	}
	for _, tt := range tests {
		got, err := ParseAlgorithm(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseAlgorithm(%q) = %q, %v", tt.in, got, err)
		}
	}
	if _, err := New(""); err == nil {
		t.Error("New with empty key should fail")
	}
}
