package config

import "time"

type Config struct {
	AppName                       string   `env:"APP_NAME" env-default:"briar-api"`
	Port                          int      `env:"PORT" env-default:"3004"`
	LogLevel                      string   `env:"LOG_LEVEL" env-default:"info"`
	PrettyLogs                    bool     `env:"PRETTY_LOGS" env-default:"false"`
	HttpServerWriteTimeoutSeconds int      `env:"HTTP_SERVER_WRITE_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerReadTimeoutSeconds  int      `env:"HTTP_SERVER_READ_TIMEOUT_SECONDS" env-default:"10"`
	HttpServerIdleTimeoutSeconds  int      `env:"HTTP_SERVER_IDLE_TIMEOUT_SECONDS" env-default:"10"`
	MaxHeaderBytes                int      `env:"HTTP_SERVER_MAX_HEADER_BYTES" env-default:"64000"` // 64KB
	ReadHeaderTimeoutSeconds      int      `env:"HTTP_SERVER_READ_HEADER_TIMEOUT_SECONDS" env-default:"10"`
	AllowOrigins                  []string `env:"HTTP_SERVER_ALLOW_ORIGINS" env-default:"*"`
	AllowMethods                  []string `env:"HTTP_SERVER_ALLOW_METHODS" env-default:"GET,POST,PUT,DELETE"`
	StartupMaxAttempts            int      `env:"STARTUP_MAX_ATTEMPTS" env-default:"5"`

	// PostgreSQL
	DatabaseDriver                string        `env:"DB_DRIVER" env-default:"postgres"`
	DatabaseHost                  string        `env:"DB_HOST" env-default:""`
	DatabasePort                  string        `env:"DB_PORT" env-default:"5432"`
	DatabaseUserName              string        `env:"DB_USER_NAME" env-default:""`
	DatabasePassword              string        `env:"DB_PASSWORD" env-default:""`
	DatabaseName                  string        `env:"DB_NAME" env-default:"briar"`
	DatabaseSSLMode               string        `env:"DB_SQL_MODE" env-default:"disable"`
	DatabaseMaxOpenConns          int           `env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	DatabaseMaxIdleConns          int           `env:"DB_MAX_IDLE_CONNS" env-default:"10"`
	DatabaseConnMaxLifetime       time.Duration `env:"DB_CONN_MAX_LIFETIME" env-default:"10s"`
	DatabaseMigrationFolderPath   string        `env:"DB_MIGRATION_FOLDER_PATH" env-default:"db/pg"`
	DatabaseMigrationVersion      int           `env:"DB_MIGRATION_VERSION" env-default:"0"`
	DatabaseMigrationForce        int           `env:"DB_MIGRATION_FORCE" env-default:"0"`
	DatabaseMigrationAutoRollback bool          `env:"DB_MIGRATION_AUTO_ROLLBACK" env-default:"true"`

	// Redis (matching run locks)
	RedisHost     string `env:"REDIS_HOST" env-default:"localhost"`
	RedisPort     int    `env:"REDIS_PORT" env-default:"6379"`
	RedisPassword string `env:"REDIS_PASSWORD" env-default:""`
	RedisDB       int    `env:"REDIS_DB" env-default:"0"`
	RedisEnabled  bool   `env:"REDIS_ENABLED" env-default:"true"`

	// Kafka producer (notification events)
	KafkaBrokers            []string `env:"KAFKA_BROKERS" env-default:"localhost:9092"`
	KafkaNotificationsTopic string   `env:"KAFKA_NOTIFICATIONS_TOPIC" env-default:"match-notifications"`
	KafkaBatchSize          int      `env:"KAFKA_BATCH_SIZE" env-default:"100"`
	KafkaBatchTimeout       int      `env:"KAFKA_BATCH_TIMEOUT_MS" env-default:"100"`
	KafkaRequiredAcks       int      `env:"KAFKA_REQUIRED_ACKS" env-default:"1"`
	KafkaCompression        string   `env:"KAFKA_COMPRESSION" env-default:"snappy"`
	KafkaEnabled            bool     `env:"KAFKA_ENABLED" env-default:"true"`

	// Attribute catalog
	AttributeAliasFile  string        `env:"ATTRIBUTE_ALIAS_FILE" env-default:""`
	CatalogCacheTTL     time.Duration `env:"CATALOG_CACHE_TTL" env-default:"5m"`
	CatalogCacheMaxSize int           `env:"CATALOG_CACHE_MAX_SIZE" env-default:"100"`

	// Matching
	MatchScoreThreshold  float64       `env:"MATCH_SCORE_THRESHOLD" env-default:"0.8"`
	MatchLockTTL         time.Duration `env:"MATCH_LOCK_TTL" env-default:"30s"`
	MatchLockWaitTimeout time.Duration `env:"MATCH_LOCK_WAIT_TIMEOUT" env-default:"5s"`
}
