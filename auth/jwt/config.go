package jwt

import (
	"crypto"
	"errors"
	"fmt"
	"os"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// SigningMethod names a JWS algorithm.
type SigningMethod string

const (
	HS256 SigningMethod = "HS256"
	HS384 SigningMethod = "HS384"
	HS512 SigningMethod = "HS512"
	RS256 SigningMethod = "RS256"
	RS384 SigningMethod = "RS384"
	RS512 SigningMethod = "RS512"
	ES256 SigningMethod = "ES256"
	ES384 SigningMethod = "ES384"
	ES512 SigningMethod = "ES512"
)

type keyFamily int

const (
	familyHMAC keyFamily = iota
	familyRSA
	familyEC
)

var algorithms = map[SigningMethod]struct {
	method gojwt.SigningMethod
	family keyFamily
}{
	HS256: {gojwt.SigningMethodHS256, familyHMAC},
	HS384: {gojwt.SigningMethodHS384, familyHMAC},
	HS512: {gojwt.SigningMethodHS512, familyHMAC},
	RS256: {gojwt.SigningMethodRS256, familyRSA},
	RS384: {gojwt.SigningMethodRS384, familyRSA},
	RS512: {gojwt.SigningMethodRS512, familyRSA},
	ES256: {gojwt.SigningMethodES256, familyEC},
	ES384: {gojwt.SigningMethodES384, familyEC},
	ES512: {gojwt.SigningMethodES512, familyEC},
}

// Config selects the algorithm and key material for a Service.
type Config struct {
	Method SigningMethod `yaml:"method" mapstructure:"method"`

	// Secret is the HMAC key for HS* methods.
	Secret string `yaml:"secret" mapstructure:"secret"`

	// PEM files for RS* and ES* methods. A verify-only deployment sets
	// just PublicKeyFile.
	PrivateKeyFile string `yaml:"private_key_file" mapstructure:"private_key_file"`
	PublicKeyFile  string `yaml:"public_key_file" mapstructure:"public_key_file"`

	Issuer   string   `yaml:"issuer" mapstructure:"issuer"`
	Audience []string `yaml:"audience" mapstructure:"audience"`

	AccessTokenTTL time.Duration `yaml:"access_token_ttl" mapstructure:"access_token_ttl"`
}

func (c *Config) ApplyDefaults() {
	if c.Method == "" {
		c.Method = HS256
	}
	if c.AccessTokenTTL == 0 {
		c.AccessTokenTTL = 24 * time.Hour
	}
}

// IsConfigured reports whether any key material is set.
func (c *Config) IsConfigured() bool {
	return c.Secret != "" || c.PrivateKeyFile != "" || c.PublicKeyFile != ""
}

func (c *Config) Validate() error {
	alg, ok := algorithms[c.Method]
	switch {
	case !ok:
		return fmt.Errorf("jwt: unsupported signing method %q", c.Method)
	case alg.family == familyHMAC && c.Secret == "":
		return fmt.Errorf("jwt: %s needs a secret", c.Method)
	case alg.family != familyHMAC && c.PrivateKeyFile == "" && c.PublicKeyFile == "":
		return fmt.Errorf("jwt: %s needs private_key_file or public_key_file", c.Method)
	case c.AccessTokenTTL < 0:
		return errors.New("jwt: access_token_ttl must not be negative")
	}
	return nil
}

func (c *Config) signingMethod() gojwt.SigningMethod {
	if alg, ok := algorithms[c.Method]; ok {
		return alg.method
	}
	return gojwt.SigningMethodHS256
}

// keys holds parsed material. With only a private key, verify is its
// public half.
type keys struct {
	sign   any
	verify any
}

func (c *Config) loadKeys() (keys, error) {
	family := algorithms[c.Method].family
	if family == familyHMAC {
		secret := []byte(c.Secret)
		return keys{sign: secret, verify: secret}, nil
	}

	var k keys
	if c.PrivateKeyFile != "" {
		priv, err := readPEM(c.PrivateKeyFile, "private", func(b []byte) (any, error) {
			if family == familyRSA {
				return gojwt.ParseRSAPrivateKeyFromPEM(b)
			}
			return gojwt.ParseECPrivateKeyFromPEM(b)
		})
		if err != nil {
			return keys{}, err
		}
		k.sign = priv
		k.verify = priv.(crypto.Signer).Public()
	}
	if c.PublicKeyFile != "" {
		pub, err := readPEM(c.PublicKeyFile, "public", func(b []byte) (any, error) {
			if family == familyRSA {
				return gojwt.ParseRSAPublicKeyFromPEM(b)
			}
			return gojwt.ParseECPublicKeyFromPEM(b)
		})
		if err != nil {
			return keys{}, err
		}
		k.verify = pub
	}
	return k, nil
}

func readPEM(path, kind string, parse func([]byte) (any, error)) (any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("jwt: read %s key: %w", kind, err)
	}
	key, err := parse(data)
	if err != nil {
		return nil, fmt.Errorf("jwt: parse %s key: %w", kind, err)
	}
	return key, nil
}
