package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App struct {
		DataDir    string `yaml:"data_dir" json:"data_dir"`
		Port       int    `yaml:"port" json:"port"`
		LogLevel   string `yaml:"log_level" json:"log_level"`
		PrettyLogs bool   `yaml:"pretty_logs" json:"pretty_logs"`
	} `yaml:"app" json:"app"`

	Source struct {
		ItemBaseURL       string  `yaml:"item_base_url" json:"item_base_url"`
		ThreadIDs         []int64 `yaml:"thread_ids" json:"thread_ids"`
		RequestsPerSecond float64 `yaml:"requests_per_second" json:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds" json:"timeout_seconds"`
		UserAgent         string  `yaml:"user_agent" json:"user_agent"`
	} `yaml:"source" json:"source"`

	Geocoder struct {
		BaseURL        string `yaml:"base_url" json:"base_url"`
		UserAgent      string `yaml:"user_agent" json:"user_agent"`
		MinIntervalMS  int    `yaml:"min_interval_ms" json:"min_interval_ms"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
		KeyringAccount string `yaml:"keyring_account" json:"keyring_account"`
	} `yaml:"geocoder" json:"geocoder"`

	Extract struct {
		GazetteerPath string   `yaml:"gazetteer_path" json:"gazetteer_path"`
		Skills        []string `yaml:"skills" json:"skills"`
	} `yaml:"extract" json:"extract"`

	Polling struct {
		IntervalMinutes int `yaml:"interval_minutes" json:"interval_minutes"`
	} `yaml:"polling" json:"polling"`
}

// DefaultSkills is the skill vocabulary used when extract.skills is empty.
var DefaultSkills = []string{
	"python", "java", "javascript", "typescript", "golang", "rust", "ruby",
	"php", "scala", "kotlin", "swift", "c++", "c#", "elixir", "haskell",
	"sql", "postgres", "mysql", "mongodb", "redis", "kafka", "spark",
	"react", "angular", "vue", "node", "django", "rails", "flask",
	"aws", "gcp", "azure", "docker", "kubernetes", "terraform",
}

// DefaultThreadIDs are the monthly "Who is hiring?" roots from Feb 2019 to Feb 2020.
var DefaultThreadIDs = []int64{
	19055166, 19281834, 19543940, 19797594, 20083795, 20325925, 20584311,
	20867123, 21126014, 21419536, 21683554, 21936440, 22225314,
}

func Default() Config {
	var cfg Config
	cfg.App.DataDir = "."
	cfg.App.Port = 38471
	cfg.App.LogLevel = "info"

	cfg.Source.ItemBaseURL = "https://hacker-news.firebaseio.com/v0/item/"
	cfg.Source.ThreadIDs = append([]int64(nil), DefaultThreadIDs...)
	cfg.Source.RequestsPerSecond = 10
	cfg.Source.TimeoutSeconds = 20
	cfg.Source.UserAgent = "whoshiring/1.0 (+local)"

	cfg.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	cfg.Geocoder.UserAgent = "whoshiring/1.0 (+local)"
	cfg.Geocoder.MinIntervalMS = 1000
	cfg.Geocoder.TimeoutSeconds = 10

	cfg.Extract.GazetteerPath = "cities.txt"
	cfg.Extract.Skills = append([]string(nil), DefaultSkills...)

	cfg.Polling.IntervalMinutes = 60
	return cfg
}

// Load reads a YAML file on top of Default.
func Load(path string) (Config, error) {
	cfg := Default()
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config %s", path)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config %s", path)
	}
	return cfg, nil
}

func (c Config) SourceTimeout() time.Duration {
	return time.Duration(c.Source.TimeoutSeconds) * time.Second
}

func (c Config) GeocoderTimeout() time.Duration {
	return time.Duration(c.Geocoder.TimeoutSeconds) * time.Second
}

func (c Config) GeocodeInterval() time.Duration {
	return time.Duration(c.Geocoder.MinIntervalMS) * time.Millisecond
}

func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalMinutes) * time.Minute
}
