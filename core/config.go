package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server    ServerConfig
		Database  DatabaseConfig
		Twilio    TwilioConfig
		Receipts  ReceiptsConfig
		Reminders RemindersConfig
		Reports   ReportsConfig
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	TwilioConfig struct {
		AccountSID string
		AuthToken  string
		From       string
	}

	ReceiptsConfig struct {
		Renderer string // html | chromedp
		Store    string // local | s3
		Dir      string
		BaseURL  string
		S3       S3Config
	}

	S3Config struct {
		Endpoint     string
		Region       string
		Bucket       string
		AccessKey    string
		SecretKey    string
		UsePathStyle bool
	}

	RemindersConfig struct {
		Enabled       bool
		Hour          int
		Minute        int
		CheckInterval time.Duration
		DaysBefore    []int
	}

	ReportsConfig struct {
		DefaultOverdueDays int
	}
)

func (s ServerConfig) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

func (db DatabaseConfig) Address() string {
	return net.JoinHostPort(db.Host, strconv.Itoa(db.Port))
}

// NewConfig loads the configuration of the current ENV (DEV (default), TEST, QA, PROD).
// Values come from defaults, an optional `config/.env.<env>` file and ENV-prefixed environment variables.
func NewConfig() *Config {
	conf := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	workDir := os.Getenv("WORKDIR")
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("config.os.Getwd(): %v", err)
		}
		workDir = wd
	}

	// defaults
	conf.SetTypeByDefaultValue(true)
	conf.SetDefault("debug", env == "DEV" || env == "TEST")
	conf.SetDefault("testMode", env == "TEST")
	conf.SetDefault("build", "develop")
	conf.SetDefault("appName", "Ada")
	conf.SetDefault("secretKey", "k1x!ad4-fe3s#9w_2v@q$j8rzt0p7m6n5b4c3x2z1l0k9j8h7g")
	conf.SetDefault("frontendBaseURL", "http://localhost:3000")
	conf.SetDefault("defaultFromEmail", "noreply@localhost")
	conf.SetDefault("sendgridApiKey", "")
	conf.SetDefault("rollbarToken", "")

	conf.SetDefault("server.host", "0.0.0.0")
	conf.SetDefault("server.port", 8000)
	conf.SetDefault("server.debugHost", "0.0.0.0:4000")
	conf.SetDefault("server.shutdownTimeout", 5*time.Second)
	conf.SetDefault("server.jwtExpirationDelta", 4*time.Hour)
	conf.SetDefault("server.jwtRefreshExpirationDelta", 7*24*time.Hour)

	conf.SetDefault("database.engine", "postgres")
	conf.SetDefault("database.host", "localhost")
	conf.SetDefault("database.port", 5432)
	conf.SetDefault("database.name", "ada")
	conf.SetDefault("database.user", "ada")
	conf.SetDefault("database.password", "")
	conf.SetDefault("database.adminUser", "postgres")
	conf.SetDefault("database.adminPassword", "")
	conf.SetDefault("database.disableTLS", env == "DEV" || env == "TEST")

	conf.SetDefault("twilio.accountSID", "")
	conf.SetDefault("twilio.authToken", "")
	conf.SetDefault("twilio.from", "")

	conf.SetDefault("receipts.renderer", "html")
	conf.SetDefault("receipts.store", "local")
	conf.SetDefault("receipts.dir", filepath.Join(workDir, "media"))
	conf.SetDefault("receipts.baseURL", "http://localhost:8000/media")
	conf.SetDefault("receipts.s3.endpoint", "")
	conf.SetDefault("receipts.s3.region", "us-east-1")
	conf.SetDefault("receipts.s3.bucket", "ada-receipts")
	conf.SetDefault("receipts.s3.accessKey", "")
	conf.SetDefault("receipts.s3.secretKey", "")
	conf.SetDefault("receipts.s3.usePathStyle", true)

	conf.SetDefault("reminders.enabled", true)
	conf.SetDefault("reminders.hour", 9)
	conf.SetDefault("reminders.minute", 0)
	conf.SetDefault("reminders.checkInterval", time.Minute)
	conf.SetDefault("reminders.daysBefore", "7,0")

	conf.SetDefault("reports.defaultOverdueDays", 30)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	// DEV_SERVER_PORT overrides server.port
	conf.SetEnvPrefix(env)
	conf.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	conf.AutomaticEnv()

	from, err := mail.ParseAddress(conf.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}

	return &Config{
		Env:              env,
		Build:            conf.GetString("build"),
		Debug:            conf.GetBool("debug"),
		TestMode:         conf.GetBool("testMode"),
		AppName:          conf.GetString("appName"),
		SecretKey:        conf.GetString("secretKey"),
		WorkDir:          workDir,
		FrontendBaseURL:  conf.GetString("frontendBaseURL"),
		DefaultFromEmail: *from,
		SendgridApiKey:   conf.GetString("sendgridApiKey"),
		RollbarToken:     conf.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      conf.GetString("server.host"),
			Port:                      conf.GetInt("server.port"),
			DebugHost:                 conf.GetString("server.debugHost"),
			ShutdownTimeout:           conf.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        conf.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: conf.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        conf.GetString("database.engine"),
			Host:          conf.GetString("database.host"),
			Port:          conf.GetInt("database.port"),
			Name:          conf.GetString("database.name"),
			User:          conf.GetString("database.user"),
			Password:      conf.GetString("database.password"),
			AdminUser:     conf.GetString("database.adminUser"),
			AdminPassword: conf.GetString("database.adminPassword"),
			DisableTLS:    conf.GetBool("database.disableTLS"),
		},
		Twilio: TwilioConfig{
			AccountSID: conf.GetString("twilio.accountSID"),
			AuthToken:  conf.GetString("twilio.authToken"),
			From:       conf.GetString("twilio.from"),
		},
		Receipts: ReceiptsConfig{
			Renderer: conf.GetString("receipts.renderer"),
			Store:    conf.GetString("receipts.store"),
			Dir:      conf.GetString("receipts.dir"),
			BaseURL:  strings.TrimSuffix(conf.GetString("receipts.baseURL"), "/"),
			S3: S3Config{
				Endpoint:     conf.GetString("receipts.s3.endpoint"),
				Region:       conf.GetString("receipts.s3.region"),
				Bucket:       conf.GetString("receipts.s3.bucket"),
				AccessKey:    conf.GetString("receipts.s3.accessKey"),
				SecretKey:    conf.GetString("receipts.s3.secretKey"),
				UsePathStyle: conf.GetBool("receipts.s3.usePathStyle"),
			},
		},
		Reminders: RemindersConfig{
			Enabled:       conf.GetBool("reminders.enabled"),
			Hour:          conf.GetInt("reminders.hour"),
			Minute:        conf.GetInt("reminders.minute"),
			CheckInterval: conf.GetDuration("reminders.checkInterval"),
			DaysBefore:    parseIntList(conf.GetString("reminders.daysBefore")),
		},
		Reports: ReportsConfig{
			DefaultOverdueDays: conf.GetInt("reports.defaultOverdueDays"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: debug mode, no external services.
func NewTestConfig() *Config {
	return &Config{
		Env:              "TEST",
		Build:            "test",
		Debug:            true,
		TestMode:         true,
		AppName:          "Ada",
		SecretKey:        "test-secret-key",
		FrontendBaseURL:  "http://localhost:3000",
		DefaultFromEmail: mail.Address{Address: "noreply@localhost"},
		Server: ServerConfig{
			ShutdownTimeout:           time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Receipts: ReceiptsConfig{
			Renderer: "html",
			Store:    "local",
			BaseURL:  "http://localhost:8000/media",
		},
		Reminders: RemindersConfig{
			Hour:          9,
			CheckInterval: time.Minute,
			DaysBefore:    []int{7, 0},
		},
		Reports: ReportsConfig{DefaultOverdueDays: 30},
	}
}

func parseIntList(s string) []int {
	var ints []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			log.Fatalf("config.parseIntList(%q): %v", s, err)
		}
		ints = append(ints, n)
	}
	return ints
}
