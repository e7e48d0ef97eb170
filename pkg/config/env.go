package config

const EnvPrefix = "BGGCOLLECTIONS"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv             = "BGGCOLLECTIONS_APP_ENV"
	EnvPort               = "BGGCOLLECTIONS_APP_PORT"
	EnvLogLevel           = "BGGCOLLECTIONS_LOG_LEVEL"
	EnvBGGBaseURL         = "BGGCOLLECTIONS_BGG_BASE_URL"
	EnvBGGToken           = "BGGCOLLECTIONS_BGG_TOKEN"
	EnvBGGMaxAttempts     = "BGGCOLLECTIONS_BGG_MAX_ATTEMPTS"
	EnvBGGBatchSize       = "BGGCOLLECTIONS_BGG_BATCH_SIZE"
	EnvRedisURL           = "BGGCOLLECTIONS_REDIS_URL"
	EnvCacheMetadataTTL   = "BGGCOLLECTIONS_CACHE_METADATA_TTL"
	EnvAggregationWorkers = "BGGCOLLECTIONS_AGGREGATION_WORKERS"
	EnvDefaultUsernames   = "BGGCOLLECTIONS_USERNAMES"
	EnvCORSOrigins        = "BGGCOLLECTIONS_CORS_ORIGINS"
	EnvWarmerInterval     = "BGGCOLLECTIONS_WARMER_INTERVAL"
)
