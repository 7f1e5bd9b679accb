package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/precip-trend/internal/domain"
	"github.com/joho/godotenv"
	"gonum.org/v1/plot/vg"
)

// Dataset formats understood by the loader.
const (
	FormatClassic = "classic"
	FormatNetCDF4 = "netcdf4"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	DatasetPath   string
	DatasetFormat string
	LonVar        string
	LatVar        string
	TimeVar       string
	PrecipVar     string

	Params domain.Params

	OutputPath    string
	FigureWidth   vg.Length
	FigureHeight  vg.Length
	CoastlinePath string
	StatesPath    string

	Serve           bool
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Summary publication; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory is loaded first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	p := domain.DefaultParams()
	var err error

	if p.Box.LonMin, err = parseFloat("BBOX_LON_MIN", p.Box.LonMin); err != nil {
		return nil, err
	}
	if p.Box.LonMax, err = parseFloat("BBOX_LON_MAX", p.Box.LonMax); err != nil {
		return nil, err
	}
	if p.Box.LatMin, err = parseFloat("BBOX_LAT_MIN", p.Box.LatMin); err != nil {
		return nil, err
	}
	if p.Box.LatMax, err = parseFloat("BBOX_LAT_MAX", p.Box.LatMax); err != nil {
		return nil, err
	}
	if p.Dates.Start, err = parseDate("START_DATE", p.Dates.Start); err != nil {
		return nil, err
	}
	if p.Dates.End, err = parseDate("END_DATE", p.Dates.End); err != nil {
		return nil, err
	}
	if p.OutlierThreshold, err = parseFloat("OUTLIER_THRESHOLD", p.OutlierThreshold); err != nil {
		return nil, err
	}
	if p.DisplayMin, err = parseFloat("DISPLAY_MIN", p.DisplayMin); err != nil {
		return nil, err
	}
	if p.DisplayMax, err = parseFloat("DISPLAY_MAX", p.DisplayMax); err != nil {
		return nil, err
	}
	p.Colormap = envOrDefault("COLORMAP", p.Colormap)
	p.Title = envOrDefault("MAP_TITLE", p.Title)
	p.ColorbarLabel = envOrDefault("COLORBAR_LABEL", p.ColorbarLabel)

	width, err := parseLength("FIGURE_WIDTH", 10*vg.Inch)
	if err != nil {
		return nil, err
	}
	height, err := parseLength("FIGURE_HEIGHT", 8*vg.Inch)
	if err != nil {
		return nil, err
	}

	shutdownTimeout, err := time.ParseDuration(envOrDefault("SHUTDOWN_TIMEOUT", "10s"))
	if err != nil || shutdownTimeout <= 0 {
		return nil, errors.New("invalid SHUTDOWN_TIMEOUT")
	}

	cfg := &Config{
		DatasetPath:   envOrDefault("DATASET_PATH", "cru_ts4.07.1901.2022.pre.dat.nc"),
		DatasetFormat: strings.ToLower(envOrDefault("DATASET_FORMAT", FormatClassic)),
		LonVar:        envOrDefault("LON_VAR", "lon"),
		LatVar:        envOrDefault("LAT_VAR", "lat"),
		TimeVar:       envOrDefault("TIME_VAR", "time"),
		PrecipVar:     envOrDefault("PRECIP_VAR", "pre"),

		Params: p,

		OutputPath:    envOrDefault("OUTPUT_PATH", "precip_trend.png"),
		FigureWidth:   width,
		FigureHeight:  height,
		CoastlinePath: os.Getenv("COASTLINE_PATH"),
		StatesPath:    os.Getenv("STATES_PATH"),

		Serve:           envOrDefault("SERVE", "false") == "true",
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_TOPIC", "precipitation-trends"),
	}

	if cfg.DatasetPath == "" {
		return nil, errors.New("DATASET_PATH is required")
	}
	if cfg.DatasetFormat != FormatClassic && cfg.DatasetFormat != FormatNetCDF4 {
		return nil, fmt.Errorf("invalid DATASET_FORMAT %q", cfg.DatasetFormat)
	}
	if cfg.OutputPath == "" {
		return nil, errors.New("OUTPUT_PATH is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid analysis parameters: %w", err)
	}

	return cfg, nil
}

// PublishEnabled reports whether summaries are sent to Kafka.
func (c *Config) PublishEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseFloat(key string, fallback float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseDate(key string, fallback time.Time) (time.Time, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func parseLength(key string, fallback vg.Length) (vg.Length, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := vg.ParseLength(strings.TrimSpace(s))
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return v, nil
}

func parseBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
