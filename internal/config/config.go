package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/core/ports"
	"github.com/rafa-protocol/rafad/internal/infrastructure/db"
	insecurerandomness "github.com/rafa-protocol/rafad/internal/infrastructure/randomness/insecure"
	vrfrandomness "github.com/rafa-protocol/rafad/internal/infrastructure/randomness/vrf"
	timescheduler "github.com/rafa-protocol/rafad/internal/infrastructure/scheduler/gocron"
	simulatedyield "github.com/rafa-protocol/rafad/internal/infrastructure/yield/simulated"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

var (
	supportedDbs = supportedType{
		"badger": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
	}
	supportedRandomnessSources = supportedType{
		"insecure": {},
		"vrf":      {},
	}
	supportedYieldSources = supportedType{
		"simulated": {},
	}
)

type Config struct {
	Datadir  string
	Port     uint32
	LogLevel int

	DbType        string
	DbDir         string
	SchedulerType string

	TicketPrice    uint64
	EpochDuration  time.Duration
	CrankInterval  time.Duration
	CrankBatchSize int

	AdminIdentity       string
	YieldSourceIdentity string

	RandomnessType string
	VRFSecret      string

	YieldType     string
	YieldRateBps  uint64
	YieldCooldown time.Duration

	AllowedOrigins string
	EnableMetrics  bool

	repo       ports.RepoManager
	svc        application.Service
	adminSvc   application.AdminService
	randSource ports.RandomnessSource
	yield      ports.YieldSource
	scheduler  ports.SchedulerService
}

func (c *Config) String() string {
	json, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	Datadir             = "DATADIR"
	Port                = "PORT"
	DbType              = "DB_TYPE"
	SchedulerType       = "SCHEDULER_TYPE"
	LogLevel            = "LOG_LEVEL"
	TicketPrice         = "TICKET_PRICE"
	EpochDuration       = "EPOCH_DURATION"
	CrankInterval       = "CRANK_INTERVAL"
	CrankBatchSize      = "CRANK_BATCH_SIZE"
	AdminIdentity       = "ADMIN_IDENTITY"
	YieldSourceIdentity = "YIELD_SOURCE_IDENTITY"
	RandomnessType      = "RANDOMNESS_TYPE"
	VRFSecret           = "VRF_SECRET"
	YieldType           = "YIELD_TYPE"
	YieldRateBps        = "YIELD_RATE_BPS"
	YieldCooldown       = "YIELD_COOLDOWN"
	AllowedOrigins      = "ALLOWED_ORIGINS"
	EnableMetrics       = "ENABLE_METRICS"

	defaultDatadir        = appDataDir("rafad")
	DefaultPort           = 7070
	defaultDbType         = "badger"
	defaultSchedulerType  = "gocron"
	defaultLogLevel       = 4
	defaultTicketPrice    = uint64(10_000_000)
	defaultEpochDuration  = 120 * time.Second
	defaultCrankInterval  = 5 * time.Second
	defaultCrankBatchSize = 128
	defaultRandomnessType = "insecure"
	defaultYieldType      = "simulated"
	defaultYieldRateBps   = uint64(500)
	defaultYieldCooldown  = 30 * time.Second
	defaultAllowedOrigins = "*"
)

func LoadConfig() (*Config, error) {
	viper.SetEnvPrefix("RAFA")
	viper.AutomaticEnv()

	viper.SetDefault(Datadir, defaultDatadir)
	viper.SetDefault(Port, DefaultPort)
	viper.SetDefault(DbType, defaultDbType)
	viper.SetDefault(SchedulerType, defaultSchedulerType)
	viper.SetDefault(LogLevel, defaultLogLevel)
	viper.SetDefault(TicketPrice, defaultTicketPrice)
	viper.SetDefault(EpochDuration, defaultEpochDuration)
	viper.SetDefault(CrankInterval, defaultCrankInterval)
	viper.SetDefault(CrankBatchSize, defaultCrankBatchSize)
	viper.SetDefault(RandomnessType, defaultRandomnessType)
	viper.SetDefault(YieldType, defaultYieldType)
	viper.SetDefault(YieldRateBps, defaultYieldRateBps)
	viper.SetDefault(YieldCooldown, defaultYieldCooldown)
	viper.SetDefault(AllowedOrigins, defaultAllowedOrigins)
	viper.SetDefault(EnableMetrics, false)

	if err := initDatadir(); err != nil {
		return nil, fmt.Errorf("error while creating datadir: %s", err)
	}

	dbPath := filepath.Join(viper.GetString(Datadir), "db")

	return &Config{
		Datadir:             viper.GetString(Datadir),
		Port:                viper.GetUint32(Port),
		DbType:              viper.GetString(DbType),
		DbDir:               dbPath,
		SchedulerType:       viper.GetString(SchedulerType),
		LogLevel:            viper.GetInt(LogLevel),
		TicketPrice:         viper.GetUint64(TicketPrice),
		EpochDuration:       viper.GetDuration(EpochDuration),
		CrankInterval:       viper.GetDuration(CrankInterval),
		CrankBatchSize:      viper.GetInt(CrankBatchSize),
		AdminIdentity:       viper.GetString(AdminIdentity),
		YieldSourceIdentity: viper.GetString(YieldSourceIdentity),
		RandomnessType:      viper.GetString(RandomnessType),
		VRFSecret:           viper.GetString(VRFSecret),
		YieldType:           viper.GetString(YieldType),
		YieldRateBps:        viper.GetUint64(YieldRateBps),
		YieldCooldown:       viper.GetDuration(YieldCooldown),
		AllowedOrigins:      viper.GetString(AllowedOrigins),
		EnableMetrics:       viper.GetBool(EnableMetrics),
	}, nil
}

func initDatadir() error {
	datadir := viper.GetString(Datadir)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0755)
	}
	return nil
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}

func (c *Config) Validate() error {
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf("scheduler type not supported, please select one of: %s", supportedSchedulers)
	}
	if !supportedRandomnessSources.supports(c.RandomnessType) {
		return fmt.Errorf(
			"randomness type not supported, please select one of: %s", supportedRandomnessSources,
		)
	}
	if !supportedYieldSources.supports(c.YieldType) {
		return fmt.Errorf("yield type not supported, please select one of: %s", supportedYieldSources)
	}
	if c.TicketPrice == 0 {
		return fmt.Errorf("ticket price must be greater than 0")
	}
	if c.EpochDuration < 2*time.Second {
		return fmt.Errorf("invalid epoch duration, must be at least 2 seconds")
	}
	if c.CrankInterval < time.Second {
		return fmt.Errorf("invalid crank interval, must be at least 1 second")
	}
	if c.CrankBatchSize <= 0 {
		return fmt.Errorf("invalid crank batch size, must be positive")
	}
	if c.AdminIdentity == "" {
		return fmt.Errorf("admin identity not set")
	}
	if c.RandomnessType == "vrf" && c.VRFSecret == "" {
		return fmt.Errorf("vrf randomness requires a secret key")
	}

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.randomnessService(); err != nil {
		return err
	}
	if err := c.yieldService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.adminService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() application.AdminService {
	return c.adminSvc
}

func (c *Config) SchedulerService() ports.SchedulerService {
	return c.scheduler
}

func (c *Config) repoManager() error {
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err := db.NewService(db.ServiceConfig{
		DataStoreType:   c.DbType,
		DataStoreConfig: dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) randomnessService() error {
	var svc ports.RandomnessSource
	var err error
	switch c.RandomnessType {
	case "insecure":
		svc = insecurerandomness.NewService()
	case "vrf":
		svc, err = vrfrandomness.NewService(c.VRFSecret)
	default:
		err = fmt.Errorf("unknown randomness type")
	}
	if err != nil {
		return err
	}

	c.randSource = svc
	return nil
}

func (c *Config) yieldService() error {
	switch c.YieldType {
	case "simulated":
		c.yield = simulatedyield.NewService(c.YieldRateBps, c.YieldCooldown)
	default:
		return fmt.Errorf("unknown yield type")
	}
	return nil
}

func (c *Config) schedulerService() error {
	switch c.SchedulerType {
	case "gocron":
		c.scheduler = timescheduler.NewScheduler()
	default:
		return fmt.Errorf("unknown scheduler type")
	}
	return nil
}

func (c *Config) appService() error {
	svc, err := application.NewService(
		c.TicketPrice, c.EpochDuration, c.CrankBatchSize,
		c.AdminIdentity, c.YieldSourceIdentity,
		c.repo, c.randSource, c.yield,
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	c.adminSvc = application.NewAdminService(c.CrankBatchSize, c.repo, c.yield)
	return nil
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}
