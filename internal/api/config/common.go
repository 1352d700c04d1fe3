package config

// Config 配置主体
type Config struct {
	Server                Server             `mapstructure:"server"`
	DB                    DBConfig           `mapstructure:"database"`
	Redis                 RedisConfig        `mapstructure:"redis"`
	Mongo                 MongoConfig        `mapstructure:"mongo"`
	Auth                  AuthConfig         `mapstructure:"auth"`
	Logstash              LogstashConfig     `mapstructure:"logstash"`
	Kafka                 KafkaConfig        `mapstructure:"kafka"`
	KafkaReactionConsumer KafkaTopicConsumer `mapstructure:"kafka_reaction_consumer"`
	Reaction              ReactionConfig     `mapstructure:"reaction"`
}

// Server Server配置
type Server struct {
	Port int `mapstructure:"port" validate:"gte=0,lte=65535"`
	// AllowOrigins 为空时放行任意来源
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// AuthConfig JWT 配置，签发方由账号服务负责，这里只做校验
type AuthConfig struct {
	Secret          string `mapstructure:"secret"`
	Issuer          string `mapstructure:"issuer"`
	ExpirationHours int    `mapstructure:"expiration_hours" validate:"gte=0"`
}

// DBConfig 数据库配置
type DBConfig struct {
	DSN         string `mapstructure:"dsn" validate:"required"`
	MaxIdle     int    `mapstructure:"max_idle"`
	MaxOpen     int    `mapstructure:"max_open"`
	MaxLifetime int    `mapstructure:"max_lifetime"`
	AutoMigrate bool   `mapstructure:"auto_migrate"`
}

type RedisConfig struct {
	Addr         string `mapstructure:"addr" validate:"required"`
	Password     string `mapstructure:"password"`
	DB           int    `mapstructure:"db"`
	PoolSize     int    `mapstructure:"pool_size"`
	MinIdleConns int    `mapstructure:"min_idle_conns"`
	// 单位毫秒，0 表示使用客户端默认值
	DialTimeout  int `mapstructure:"dial_timeout"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
}

type MongoConfig struct {
	URL            string `mapstructure:"url" validate:"required"`
	Database       string `mapstructure:"database" validate:"required"`
	MaxPoolSize    uint64 `mapstructure:"max_pool_size"`
	ConnectTimeout int    `mapstructure:"connect_timeout" validate:"gte=0"` // 秒
}

type LogstashConfig struct {
	Address string `mapstructure:"address"`
	Index   string `mapstructure:"index"`
	Token   string `mapstructure:"token"`
}

type KafkaConfig struct {
	Brokers  []string       `mapstructure:"brokers" validate:"required,min=1"`
	Sasl     SaslConfig     `mapstructure:"sasl"`
	Consumer ConsumerConfig `mapstructure:"consumer"`
	Producer ProducerConfig `mapstructure:"producer"`
}

type SaslConfig struct {
	Enable   bool   `mapstructure:"enable"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type ConsumerConfig struct {
	SessionTimeout    int `mapstructure:"session_timeout"`
	HeartbeatInterval int `mapstructure:"heartbeat_interval"`
	RebalanceTimeout  int `mapstructure:"rebalance_timeout"`
	MaxProcessingTime int `mapstructure:"max_processing_time"`
}

type ProducerConfig struct {
	Topic    string `mapstructure:"topic" validate:"required"`
	RetryMax int    `mapstructure:"retry_max"`
	Timeout  int    `mapstructure:"timeout"`
}

type KafkaTopicConsumer struct {
	Topic   string `mapstructure:"topic" validate:"required"`
	GroupID string `mapstructure:"group_id" validate:"required"`
}

// ReactionConfig 反应功能开关与限额，summary_cache_ttl 单位为分钟，count_cache_ttl 单位为秒
type ReactionConfig struct {
	Enabled             bool     `mapstructure:"enabled"`
	Kind                string   `mapstructure:"kind" validate:"required"`
	MinTrustLevel       int      `mapstructure:"min_trust_level" validate:"gte=0"`
	MaxPerDay           int      `mapstructure:"max_per_day" validate:"gte=1"`
	ShowWhoActioned     bool     `mapstructure:"show_who_actioned"`
	WhoListLimit        int      `mapstructure:"who_list_limit" validate:"gte=1,lte=200"`
	DailyRetentionDays  int      `mapstructure:"daily_retention_days" validate:"gte=1"`
	SummaryLocales      []string `mapstructure:"summary_locales"`
	DefaultLocale       string   `mapstructure:"default_locale"`
	SummaryCacheTTL     int      `mapstructure:"summary_cache_ttl" validate:"gte=1"`
	CountCacheTTL       int      `mapstructure:"count_cache_ttl" validate:"gte=1"`
	MaxSummaryResults   int      `mapstructure:"max_summary_results" validate:"gte=1"`
	InvalidationRetries int      `mapstructure:"invalidation_retries" validate:"gte=1"`
}
