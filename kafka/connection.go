package kafka

import (
	"crypto/tls"
	"fmt"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl"
	"github.com/segmentio/kafka-go/sasl/plain"
	"github.com/segmentio/kafka-go/sasl/scram"
)

var compressionCodecs = map[string]kafkago.Compression{
	"none":   0,
	"gzip":   kafkago.Gzip,
	"snappy": kafkago.Snappy,
	"lz4":    kafkago.Lz4,
	"zstd":   kafkago.Zstd,
}

// codec falls back to snappy for unknown names; Validate rejects those.
func codec(name string) kafkago.Compression {
	if c, ok := compressionCodecs[name]; ok {
		return c
	}
	return kafkago.Snappy
}

// wire is the TLS and SASL setup shared by the writer and the health dialer.
type wire struct {
	tls  *tls.Config
	sasl sasl.Mechanism
}

func (c *Config) wire() (wire, error) {
	var w wire
	if c.EnableTLS {
		tc, err := c.TLS.Build()
		if err != nil {
			return w, fmt.Errorf("kafka: tls: %w", err)
		}
		if tc == nil {
			tc = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		w.tls = tc
	}
	if c.SASL.Enabled {
		m, err := c.SASL.mechanism()
		if err != nil {
			return w, fmt.Errorf("kafka: sasl: %w", err)
		}
		w.sasl = m
	}
	return w, nil
}

func (s SASLConfig) mechanism() (sasl.Mechanism, error) {
	switch s.Mechanism {
	case MechanismPlain:
		return plain.Mechanism{Username: s.Username, Password: s.Password}, nil
	case MechanismSCRAMSHA256:
		return scram.Mechanism(scram.SHA256, s.Username, s.Password)
	case MechanismSCRAMSHA512:
		return scram.Mechanism(scram.SHA512, s.Username, s.Password)
	}
	return nil, fmt.Errorf("unsupported mechanism %q", s.Mechanism)
}

// transport is what the async writer publishes through.
func (c *Config) transport() (*kafkago.Transport, error) {
	w, err := c.wire()
	if err != nil {
		return nil, err
	}
	return &kafkago.Transport{
		DialTimeout: c.DialTimeout,
		IdleTimeout: c.IdleTimeout,
		MetadataTTL: c.MetadataTTL,
		TLS:         w.tls,
		SASL:        w.sasl,
	}, nil
}

// dialer opens the one-off connections health probes use.
func (c *Config) dialer() (*kafkago.Dialer, error) {
	w, err := c.wire()
	if err != nil {
		return nil, err
	}
	return &kafkago.Dialer{
		Timeout:       c.DialTimeout,
		DualStack:     true,
		TLS:           w.tls,
		SASLMechanism: w.sasl,
	}, nil
}
