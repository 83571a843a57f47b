// Package kafka streams error log entries to a Kafka topic.
//
// Every entry the log store appends is wrapped in an Event envelope and
// written with the entry's component as the message key, so one
// component's entries stay ordered within a partition. Writes are batched
// and asynchronous; delivery failures are logged and counted but never
// block the caller.
//
// # Configuration
//
//	events:
//	  enabled: true
//	  brokers: ["kafka-1:9092", "kafka-2:9092"]
//	  topic: "faultline.errors"
//	  min_level: "warning"
//	  compression: "snappy"
//	  enable_tls: true
//	  enable_sasl: true
//	  sasl_mechanism: "SCRAM-SHA-512"
//	  username: "faultline"
//	  password: "${KAFKA_PASSWORD}"
package kafka
