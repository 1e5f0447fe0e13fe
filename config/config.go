// Package config loads the application configuration from a yaml file with
// environment-variable overrides (CATALOGD_ prefix).
package config

import (
	"os"

	"github.com/spf13/cast"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

type SystemConfig struct {
	Location string `yaml:"location" json:"location"`
	Workdir  string `yaml:"workdir" json:"workdir"`
	Debug    bool   `yaml:"debug" json:"debug"`
}

type WebConfig struct {
	Host string `yaml:"host" json:"host"`
	Port int    `yaml:"port" json:"port"`
	// Secret is the shared admin password; either plaintext or a bcrypt
	// hash ($2a$...). Compared on login, never logged.
	Secret string `yaml:"secret" json:"secret"`
	// JwtSecret signs the admin tokens issued after login.
	JwtSecret string `yaml:"jwt_secret" json:"jwt_secret"`
}

// StorageConfig selects the blob store backend. Type is one of
// fs | bbolt | github.
type StorageConfig struct {
	Type   string       `yaml:"type" json:"type"`
	Dir    string       `yaml:"dir" json:"dir"`
	Bolt   string       `yaml:"bolt" json:"bolt"`
	Github GithubConfig `yaml:"github" json:"github"`
}

type GithubConfig struct {
	APIBase string `yaml:"api_base" json:"api_base"`
	Repo    string `yaml:"repo" json:"repo"`
	Branch  string `yaml:"branch" json:"branch"`
	Token   string `yaml:"token" json:"token"`
}

type CatalogConfig struct {
	// PreferEmbedded decides whether an embedded item snapshot wins over a
	// same-code shared-database record when both exist.
	PreferEmbedded bool `yaml:"prefer_embedded" json:"prefer_embedded"`
	// RetryJobSpec is the cron spec for the pending-upload retry job.
	RetryJobSpec string `yaml:"retry_job_spec" json:"retry_job_spec"`
}

type LoggerConfig struct {
	Mode       string `yaml:"mode" json:"mode"`
	FileEnable bool   `yaml:"file_enable" json:"file_enable"`
	Filename   string `yaml:"filename" json:"filename"`
}

type AppConfig struct {
	System  SystemConfig  `yaml:"system" json:"system"`
	Web     WebConfig     `yaml:"web" json:"web"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Catalog CatalogConfig `yaml:"catalog" json:"catalog"`
	Logger  LoggerConfig  `yaml:"logger" json:"logger"`
}

var DefaultAppConfig = &AppConfig{
	System: SystemConfig{
		Location: "America/Sao_Paulo",
		Workdir:  "/var/catalogd",
		Debug:    true,
	},
	Web: WebConfig{
		Host:      "0.0.0.0",
		Port:      1870,
		Secret:    "SV2024",
		JwtSecret: "9b6bcacb9647164efa2064dbefd6dc3e",
	},
	Storage: StorageConfig{
		Type: "fs",
		Dir:  "/var/catalogd/data",
		Bolt: "/var/catalogd/catalogd.db",
	},
	Catalog: CatalogConfig{
		PreferEmbedded: false,
		RetryJobSpec:   "@every 5m",
	},
	Logger: LoggerConfig{
		Mode:       "development",
		FileEnable: true,
		Filename:   "/var/catalogd/catalogd.log",
	},
}

func setEnvValue(name string, val *string) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = evalue
	}
}

func setEnvBoolValue(name string, val *bool) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = cast.ToBool(evalue)
	}
}

func setEnvIntValue(name string, val *int) {
	if evalue, ok := os.LookupEnv(name); ok {
		*val = cast.ToInt(evalue)
	}
}

// LoadConfig reads cfile when it exists, otherwise starts from defaults,
// then applies environment overrides.
func LoadConfig(cfile string) *AppConfig {
	cfg := *DefaultAppConfig
	if cfile != "" {
		if _, err := os.Stat(cfile); err == nil {
			data, err := os.ReadFile(cfile)
			if err == nil {
				if err := yaml.Unmarshal(data, &cfg); err != nil {
					zap.S().Errorf("config: parse %s: %v", cfile, err)
				}
			}
		}
	}

	setEnvValue("CATALOGD_SYSTEM_WORKDIR", &cfg.System.Workdir)
	setEnvValue("CATALOGD_SYSTEM_LOCATION", &cfg.System.Location)
	setEnvBoolValue("CATALOGD_SYSTEM_DEBUG", &cfg.System.Debug)

	setEnvValue("CATALOGD_WEB_HOST", &cfg.Web.Host)
	setEnvIntValue("CATALOGD_WEB_PORT", &cfg.Web.Port)
	setEnvValue("CATALOGD_WEB_SECRET", &cfg.Web.Secret)
	setEnvValue("CATALOGD_WEB_JWT_SECRET", &cfg.Web.JwtSecret)

	setEnvValue("CATALOGD_STORAGE_TYPE", &cfg.Storage.Type)
	setEnvValue("CATALOGD_STORAGE_DIR", &cfg.Storage.Dir)
	setEnvValue("CATALOGD_STORAGE_BOLT", &cfg.Storage.Bolt)
	setEnvValue("CATALOGD_GITHUB_REPO", &cfg.Storage.Github.Repo)
	setEnvValue("CATALOGD_GITHUB_BRANCH", &cfg.Storage.Github.Branch)
	setEnvValue("CATALOGD_GITHUB_TOKEN", &cfg.Storage.Github.Token)
	setEnvValue("CATALOGD_GITHUB_API_BASE", &cfg.Storage.Github.APIBase)

	setEnvBoolValue("CATALOGD_CATALOG_PREFER_EMBEDDED", &cfg.Catalog.PreferEmbedded)
	setEnvValue("CATALOGD_CATALOG_RETRY_JOB_SPEC", &cfg.Catalog.RetryJobSpec)

	setEnvValue("CATALOGD_LOGGER_MODE", &cfg.Logger.Mode)
	setEnvBoolValue("CATALOGD_LOGGER_FILE_ENABLE", &cfg.Logger.FileEnable)
	setEnvValue("CATALOGD_LOGGER_FILENAME", &cfg.Logger.Filename)

	return &cfg
}
