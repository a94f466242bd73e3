package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "spacebook"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort     = "8080"
	DefaultLogLevel = "info"

	DefaultRateLimitRequests = 60
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultPaginationLimit = 100
	MinPaginationLimit     = 10

	DefaultLockBackend     = LockBackendMongo
	DefaultLockTTL         = 10 * time.Second
	DefaultLockWaitTimeout = 3 * time.Second

	DefaultTransactionTimeout = 5 * time.Second

	DefaultRedisAddr = ""
	DefaultRedisDB   = 0

	DefaultOpenTime    = "08:00"
	DefaultCloseTime   = "18:00"
	DefaultSlotMinutes = 60
	DefaultTimeZone    = "UTC"

	DefaultEventsEnabled = false
	DefaultEventsTopic   = "reservation-events"
)

const (
	LockBackendMongo = "mongo"
	LockBackendRedis = "redis"
)
