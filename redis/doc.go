// Package redis provides a Redis client component and a storage.Store
// backend built on go-redis.
//
// Importing the package registers the "redis" storage provider, so the
// error log snapshot and the report dedupe cache can live in Redis:
//
//	storage:
//	  provider: "redis"
//	redis:
//	  enabled: true
//	  addr: "localhost:6379"
//
// Store honours storage.Expirer, so TTL writes map onto native key expiry.
package redis
