package core

import (
	"fmt"
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

// defaultHolidays is the non-serving calendar of the 2025-2026 academic year.
// Districts override it with `calendar.holidays`.
var defaultHolidays = []string{
	"2025-09-01", // Labor Day
	"2025-10-13",
	"2025-11-11",
	"2025-11-26", "2025-11-27", "2025-11-28", // Thanksgiving
	"2025-12-22", "2025-12-23", "2025-12-24", "2025-12-25", "2025-12-26",
	"2025-12-29", "2025-12-30", "2025-12-31", "2026-01-01", "2026-01-02", // winter break
	"2026-01-19",
	"2026-02-16",
	"2026-03-30", "2026-03-31", "2026-04-01", "2026-04-02", "2026-04-03", // spring break
	"2026-05-25",
	"2026-06-19",
}

type (
	ServerConfig struct {
		Address         string
		DebugAddress    string
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | memory
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MigrationsDir string
	}

	CalendarConfig struct {
		Holidays  []string // YYYY-MM-DD
		EpochYear int      // first academic year covered by `all-years`
		Timezone  string
	}

	DashboardConfig struct {
		FetchTimeout time.Duration
		SessionTTL   time.Duration
	}

	EmailConfig struct {
		DefaultFrom    string
		SendgridAPIKey string
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string
		WorkDir      string

		Server    ServerConfig
		Database  DatabaseConfig
		Calendar  CalendarConfig
		Dashboard DashboardConfig
		Email     EmailConfig
	}
)

func (dbConf DatabaseConfig) Address() string {
	return net.JoinHostPort(dbConf.Host, strconv.Itoa(dbConf.Port))
}

// Location returns the calendar's time zone, falling back to time.Local.
func (calConf CalendarConfig) Location() *time.Location {
	if calConf.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(calConf.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.Email.DefaultFrom)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.Email.DefaultFrom}
	}
	return *addr
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("appName", "NutriDash")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "nutridash")
	v.SetDefault("database.user", "nutridash")
	v.SetDefault("database.password", "nutridash")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("database.migrationsDir", "migrations")

	v.SetDefault("calendar.holidays", defaultHolidays)
	v.SetDefault("calendar.epochYear", 2020)
	v.SetDefault("calendar.timezone", "")

	v.SetDefault("dashboard.fetchTimeout", 30*time.Second)
	v.SetDefault("dashboard.sessionTTL", 2*time.Hour)

	v.SetDefault("email.defaultFrom", "NutriDash <noreply@localhost>")
	v.SetDefault("email.sendgridAPIKey", "")
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// ENV selects the environment (DEV by default; TEST, QA, PROD) and is used as the env var prefix,
// eg. DEV_DATABASE_HOST overrides `database.host`.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MigrationsDir: filepath.Join(wd, v.GetString("database.migrationsDir")),
		},
		Calendar: CalendarConfig{
			Holidays:  v.GetStringSlice("calendar.holidays"),
			EpochYear: v.GetInt("calendar.epochYear"),
			Timezone:  v.GetString("calendar.timezone"),
		},
		Dashboard: DashboardConfig{
			FetchTimeout: v.GetDuration("dashboard.fetchTimeout"),
			SessionTTL:   v.GetDuration("dashboard.sessionTTL"),
		},
		Email: EmailConfig{
			DefaultFrom:    v.GetString("email.defaultFrom"),
			SendgridAPIKey: v.GetString("email.sendgridAPIKey"),
		},
	}
}

// NewTestConfig returns the configuration used by tests: no env lookups, in-memory storage.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	return &Config{
		AppName:  v.GetString("appName"),
		Env:      "TEST",
		Build:    "test",
		TestMode: true,
		Server: ServerConfig{
			Address:         "",
			ShutdownTimeout: time.Second,
			DisableReqLogs:  true,
		},
		Database: DatabaseConfig{Engine: "memory"},
		Calendar: CalendarConfig{
			Holidays:  v.GetStringSlice("calendar.holidays"),
			EpochYear: v.GetInt("calendar.epochYear"),
			Timezone:  "UTC",
		},
		Dashboard: DashboardConfig{
			FetchTimeout: time.Second,
			SessionTTL:   time.Hour,
		},
		Email: EmailConfig{DefaultFrom: fmt.Sprintf("%s <noreply@test.local>", v.GetString("appName"))},
	}
}
