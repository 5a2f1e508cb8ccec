package config

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/zerodice0/readzone/pkg/auth"
	"github.com/zerodice0/readzone/pkg/kafka"
	"github.com/zerodice0/readzone/pkg/logger"
	"github.com/zerodice0/readzone/pkg/postgres"
	"github.com/zerodice0/readzone/pkg/redisdb"
)

type HTTPServer struct {
	Host         string        `yaml:"host" envconfig:"READZONE_HTTP_HOST" default:"0.0.0.0"`
	Port         string        `yaml:"port" envconfig:"READZONE_HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `yaml:"readTimeout" envconfig:"HTTP_READ" default:"15s"`
	WriteTimeout time.Duration
	// BaseRPS and APIRPS feed the inbound echo rate limiters.
	BaseRPS float64 `envconfig:"HTTP_BASE_RPS" default:"10"`
	APIRPS  float64 `envconfig:"HTTP_API_RPS" default:"100"`
}

type Kakao struct {
	BaseURL string        `envconfig:"KAKAO_BASE_URL" default:"https://dapi.kakao.com"`
	APIKey  string        `envconfig:"KAKAO_API_KEY" json:"-"`
	RPS     float64       `envconfig:"KAKAO_RPS" default:"10"`
	Timeout time.Duration `envconfig:"KAKAO_TIMEOUT" default:"5s"`
}

type Search struct {
	MinLocalResults int `envconfig:"SEARCH_MIN_LOCAL_RESULTS" default:"5"`
	BatchWorkers    int `envconfig:"SEARCH_BATCH_WORKERS" default:"4"`
}

type Quota struct {
	// Store selects the counter backend: postgres or redis.
	Store        string  `envconfig:"QUOTA_STORE" default:"postgres"`
	DailyLimit   int     `envconfig:"QUOTA_DAILY_LIMIT" default:"300000"`
	WarningRatio float64 `envconfig:"QUOTA_WARNING_RATIO" default:"0.8"`
	Timezone     string  `envconfig:"QUOTA_TIMEZONE" default:"Asia/Seoul"`
	// WarningSchedule is the cron spec of the quota warning job.
	WarningSchedule string `envconfig:"QUOTA_WARNING_SCHEDULE" default:"@every 5m"`
}

type Cache struct {
	// Store selects the cache backend: memory or redis.
	Store         string        `envconfig:"CACHE_STORE" default:"memory"`
	SearchTTL     time.Duration `envconfig:"CACHE_SEARCH_TTL" default:"3h"`
	ISBNTTL       time.Duration `envconfig:"CACHE_ISBN_TTL" default:"24h"`
	ISBNMissTTL   time.Duration `envconfig:"CACHE_ISBN_MISS_TTL" default:"10m"`
	SweepSchedule string        `envconfig:"CACHE_SWEEP_SCHEDULE" default:"@every 10m"`
}

type Feed struct {
	WeightLike     int    `envconfig:"FEED_WEIGHT_LIKE" default:"3"`
	WeightComment  int    `envconfig:"FEED_WEIGHT_COMMENT" default:"2"`
	WeightBookmark int    `envconfig:"FEED_WEIGHT_BOOKMARK" default:"1"`
	CursorSalt     string `envconfig:"FEED_CURSOR_SALT" default:"readzone-feed" json:"-"`
}

type Config struct {
	// NodeID seeds the snowflake ID generator; it must differ between replicas.
	NodeID   int64      `envconfig:"READZONE_NODE_ID" default:"1"`
	Server   HTTPServer `yaml:"server"`
	Database postgres.DB
	Redis    redisdb.Config
	Kafka    kafka.Config
	Auth     auth.Config
	Kakao    Kakao
	Search   Search
	Quota    Quota
	Cache    Cache
	Feed     Feed
	Log      logger.Log `yaml:"log"`
}

var (
	once sync.Once
	cfg  *Config
)

// NewConfig reads config from environment.
func NewConfig(ops ...Option) *Config {
	once.Do(func() {
		var config Config
		for _, op := range ops {
			op(&config)
		}
		err := envconfig.Process("", &config)
		if err != nil {
			log.Fatal("NewConfig ", err)
		}
		cfg = &config
		printConfig(cfg)
	})

	return cfg
}

func printConfig(cfg *Config) {
	jscfg, _ := json.MarshalIndent(cfg, "", "	") //nolint:errcheck
	fmt.Println(string(jscfg))
}
