package s3

import (
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const DefaultRegion = "us-east-1"

// Config selects the bucket error logs are written to. Credentials fall
// back to the default AWS chain (environment, shared profile, instance
// role) when AccessKey is empty.
type Config struct {
	Bucket string `yaml:"bucket" mapstructure:"bucket" json:"bucket"`
	Region string `yaml:"region" mapstructure:"region" json:"region"`
	// KeyPrefix is prepended to every object key, e.g. "faultline/".
	KeyPrefix string `yaml:"key_prefix" mapstructure:"key_prefix" json:"key_prefix"`

	// Endpoint targets an S3-compatible service such as MinIO and implies
	// path-style addressing.
	Endpoint       string `yaml:"endpoint" mapstructure:"endpoint" json:"endpoint"`
	ForcePathStyle bool   `yaml:"force_path_style" mapstructure:"force_path_style" json:"force_path_style"`

	Profile      string `yaml:"profile" mapstructure:"profile" json:"profile"`
	AccessKey    string `yaml:"access_key" mapstructure:"access_key" json:"access_key"`
	SecretKey    string `yaml:"secret_key" mapstructure:"secret_key" json:"-"`
	SessionToken string `yaml:"session_token" mapstructure:"session_token" json:"-"`

	// ServerSideEncryption is AES256 or aws:kms; empty keeps the bucket
	// default. KMSKeyID only applies to aws:kms.
	ServerSideEncryption string `yaml:"server_side_encryption" mapstructure:"server_side_encryption" json:"server_side_encryption"`
	KMSKeyID             string `yaml:"kms_key_id" mapstructure:"kms_key_id" json:"kms_key_id"`
}

func (c *Config) ApplyDefaults() {
	if c.Region == "" {
		c.Region = DefaultRegion
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var problems []error
	add := func(format string, args ...any) { problems = append(problems, fmt.Errorf(format, args...)) }

	if c.Bucket == "" {
		add("bucket is required")
	}
	if c.Region == "" {
		add("region is required")
	}
	if strings.HasPrefix(c.KeyPrefix, "/") {
		add("key_prefix %q must not start with /", c.KeyPrefix)
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		add("access_key and secret_key must be set together")
	}
	switch types.ServerSideEncryption(c.ServerSideEncryption) {
	case types.ServerSideEncryptionAwsKms:
	case "", types.ServerSideEncryptionAes256:
		if c.KMSKeyID != "" {
			add("kms_key_id requires server_side_encryption %s", types.ServerSideEncryptionAwsKms)
		}
	default:
		add("unsupported server_side_encryption %q", c.ServerSideEncryption)
	}
	if len(problems) > 0 {
		return fmt.Errorf("s3: invalid config: %w", errors.Join(problems...))
	}
	return nil
}

// GetBucket feeds the storage component's startup line.
func (c *Config) GetBucket() string { return c.Bucket }
