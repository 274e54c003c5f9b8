package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Geocoding providers.
const (
	GeocoderNominatim = "nominatim"
	GeocoderMapbox    = "mapbox"
	GeocoderNone      = "none"
)

// YearPlaceholder is substituted with the dataset year in DataURLTemplate.
const YearPlaceholder = "{year}"

const defaultDataURLTemplate = "https://raw.githubusercontent.com/Berliner-Feuerwehr/BF-Open-Data/refs/heads/main/Datasets/Regional_Data/{year}/BFw_district_area_data_{year}.csv"

// Config holds all settings, populated from environment variables.
type Config struct {
	// Source datasets.
	DataURLTemplate string
	BaseYear        int
	MaxYears        int
	FetchTimeout    time.Duration

	// Persisted table.
	TablePath string

	// Geocoding.
	Geocoder           string
	GeocodeQualifier   string
	GeocodeTimeout     time.Duration
	NominatimURL       string
	NominatimUserAgent string
	NominatimInterval  time.Duration
	MapboxToken        string

	// Optional sink topic for built tables. Empty brokers disable publishing.
	KafkaBrokers []string
	KafkaTopic   string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	baseYear, err := parsePositiveInt("BF_BASE_YEAR", "2018")
	if err != nil {
		return nil, err
	}
	maxYears, err := parsePositiveInt("BF_MAX_YEARS", "50")
	if err != nil {
		return nil, err
	}

	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := parsePositiveDuration("GEOCODE_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	nominatimInterval, err := parsePositiveDuration("NOMINATIM_INTERVAL", "1s")
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		DataURLTemplate: sharedcfg.EnvOrDefault("BF_DATA_URL_TEMPLATE", defaultDataURLTemplate),
		BaseYear:        baseYear,
		MaxYears:        maxYears,
		FetchTimeout:    fetchTimeout,

		TablePath: sharedcfg.EnvOrDefault("TABLE_PATH", "merged_mission_count_years.csv"),

		Geocoder:           strings.ToLower(sharedcfg.EnvOrDefault("GEOCODER", GeocoderNominatim)),
		GeocodeQualifier:   sharedcfg.EnvOrDefault("GEOCODE_QUALIFIER", "Berlin, Germany"),
		GeocodeTimeout:     geocodeTimeout,
		NominatimURL:       sharedcfg.EnvOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		NominatimUserAgent: sharedcfg.EnvOrDefault("NOMINATIM_USER_AGENT", "bf-mission-map"),
		NominatimInterval:  nominatimInterval,
		MapboxToken:        os.Getenv("MAPBOX_TOKEN"),

		KafkaBrokers: brokers,
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "berlin-fire-missions"),

		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if !strings.Contains(cfg.DataURLTemplate, YearPlaceholder) {
		return nil, errors.New("BF_DATA_URL_TEMPLATE must contain " + YearPlaceholder)
	}
	if cfg.TablePath == "" {
		return nil, errors.New("TABLE_PATH is required")
	}
	switch cfg.Geocoder {
	case GeocoderNominatim:
		if cfg.NominatimUserAgent == "" {
			return nil, errors.New("NOMINATIM_USER_AGENT is required by the Nominatim usage policy")
		}
	case GeocoderMapbox:
		if cfg.MapboxToken == "" {
			return nil, errors.New("GEOCODER is mapbox but MAPBOX_TOKEN is not set")
		}
	case GeocoderNone:
	default:
		return nil, fmt.Errorf("invalid GEOCODER %q (want nominatim, mapbox or none)", cfg.Geocoder)
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// PublishEnabled reports whether built tables are written to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// DatasetURL returns the source URL for a year.
func (c *Config) DatasetURL(year int) string {
	return strings.ReplaceAll(c.DataURLTemplate, YearPlaceholder, strconv.Itoa(year))
}

func parsePositiveInt(key, fallback string) (int, error) {
	n, err := strconv.Atoi(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
