package config

import (
	"math"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Security SecurityConfig `mapstructure:"security"`
	Guild    GuildConfig    `mapstructure:"guild"`
	War      WarConfig      `mapstructure:"war"`
	Task     TaskConfig     `mapstructure:"task"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

type ServerConfig struct {
	Port     int    `mapstructure:"port"`
	Debug    bool   `mapstructure:"debug"`
	AdminKey string `mapstructure:"admin_key"`
}

type DatabaseConfig struct {
	Mode         string        `mapstructure:"mode"` // sqlite | mysql
	SQLitePath   string        `mapstructure:"sqlite_path"`
	MySQLDSN     string        `mapstructure:"mysql_dsn"`
	MySQLMaxOpen int           `mapstructure:"mysql_max_open"`
	MySQLMaxIdle int           `mapstructure:"mysql_max_idle"`
	MySQLMaxLife time.Duration `mapstructure:"mysql_max_life"`
	PingTimeout  time.Duration `mapstructure:"ping_timeout"`
}

type CacheConfig struct {
	RedisAddr      string        `mapstructure:"redis_addr"`
	RedisPassword  string        `mapstructure:"redis_password"`
	RedisDB        int           `mapstructure:"redis_db"`
	LocalGC        time.Duration `mapstructure:"local_gc_interval"`
	LocalPubSubBuf int           `mapstructure:"local_pubsub_buf"`
}

type SecurityConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	JWTTTL         time.Duration `mapstructure:"jwt_ttl"`
	RateLimitRPS   float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst int           `mapstructure:"rate_limit_burst"`
}

type GuildConfig struct {
	LevelExpBase     int64   `mapstructure:"level_exp_base"`
	LevelExpGrowth   float64 `mapstructure:"level_exp_growth"`
	BankCapacityBase int64   `mapstructure:"bank_capacity_base"`
	BankCapacityStep int64   `mapstructure:"bank_capacity_step"`
	ClaimLimitBase   int     `mapstructure:"claim_limit_base"`
	ClaimLimitStep   int     `mapstructure:"claim_limit_step"`
	NameMaxLen       int     `mapstructure:"name_max_len"`
	TagMaxLen        int     `mapstructure:"tag_max_len"`
}

type WarConfig struct {
	PreparationWindow time.Duration `mapstructure:"preparation_window"`
	OngoingWindow     time.Duration `mapstructure:"ongoing_window"`
	AdvanceInterval   time.Duration `mapstructure:"advance_interval"`
}

type TaskConfig struct {
	Lifetime         time.Duration `mapstructure:"lifetime"`
	GenerateInterval time.Duration `mapstructure:"generate_interval"`
	ExpireInterval   time.Duration `mapstructure:"expire_interval"`
}

type NotifyConfig struct {
	Channel    string        `mapstructure:"channel"`
	FlushDelay time.Duration `mapstructure:"flush_delay"`
}

// Load reads config from the given YAML file path.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.debug", false)
	v.SetDefault("database.mode", "sqlite")
	v.SetDefault("database.sqlite_path", "./data/guilds.db")
	v.SetDefault("database.mysql_max_open", 50)
	v.SetDefault("database.mysql_max_idle", 10)
	v.SetDefault("database.mysql_max_life", "1h")
	v.SetDefault("database.ping_timeout", "3s")
	v.SetDefault("cache.local_gc_interval", "30s")
	v.SetDefault("cache.local_pubsub_buf", 256)
	v.SetDefault("security.jwt_ttl", "72h")
	v.SetDefault("security.rate_limit_rps", 100)
	v.SetDefault("security.rate_limit_burst", 200)
	v.SetDefault("guild.level_exp_base", 1000)
	v.SetDefault("guild.level_exp_growth", 1.5)
	v.SetDefault("guild.bank_capacity_base", 10000)
	v.SetDefault("guild.bank_capacity_step", 5000)
	v.SetDefault("guild.claim_limit_base", 9)
	v.SetDefault("guild.claim_limit_step", 3)
	v.SetDefault("guild.name_max_len", 32)
	v.SetDefault("guild.tag_max_len", 6)
	v.SetDefault("war.preparation_window", "10m")
	v.SetDefault("war.ongoing_window", "1h")
	v.SetDefault("war.advance_interval", "10s")
	v.SetDefault("task.lifetime", "24h")
	v.SetDefault("task.generate_interval", "6h")
	v.SetDefault("task.expire_interval", "1m")
	v.SetDefault("notify.channel", "guild.events")
	v.SetDefault("notify.flush_delay", "500ms")

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ThresholdFunc returns the experience required to advance from the given
// level to the next one. Monotonic in level as long as growth >= 1.
func (g GuildConfig) ThresholdFunc() func(level int) int64 {
	base := g.LevelExpBase
	if base <= 0 {
		base = 1000
	}
	growth := g.LevelExpGrowth
	if growth < 1 {
		growth = 1.5
	}
	return func(level int) int64 {
		need := float64(base)
		for i := 1; i < level; i++ {
			need *= growth
		}
		// High levels overflow int64; an unclamped conversion is
		// implementation-defined and can come out negative.
		if need >= math.MaxInt64 {
			return math.MaxInt64
		}
		return int64(need)
	}
}

// BankCapacity returns the bank ceiling for a guild of the given level.
func (g GuildConfig) BankCapacity(level int) int64 {
	return g.BankCapacityBase + g.BankCapacityStep*int64(level-1)
}

// ClaimLimit returns the number of chunks a guild of the given level may hold.
func (g GuildConfig) ClaimLimit(level int) int {
	return g.ClaimLimitBase + g.ClaimLimitStep*(level-1)
}
