package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/specmint/specmint-cli/internal/log"
	"github.com/specmint/specmint-cli/internal/utils"
)

var (
	k = koanf.New(".")

	cachedConfig    *Config
	cachedConfigErr error
	loadMutex       sync.Mutex
	hasLoaded       bool
)

type Config struct {
	Teams     TeamsConfig     `koanf:"teams"`
	Cache     CacheConfig     `koanf:"cache"`
	Mining    MiningConfig    `koanf:"mining"`
	Validator ValidatorConfig `koanf:"validator"`
}

type TeamsConfig struct {
	Dir string `koanf:"dir"`
}

type CacheConfig struct {
	Size int `koanf:"size"`
}

type MiningConfig struct {
	CheckoutTimeout string `koanf:"checkout_timeout"`
	MaxHints        int    `koanf:"max_hints"`
	Branch          string `koanf:"branch"`
}

type ValidatorConfig struct {
	BaseURL      string `koanf:"base_url"`
	RequestDelay string `koanf:"request_delay"`
	Timeout      string `koanf:"timeout"`
}

// Load loads the config file and applies environment overrides.
// This function is idempotent - calling it multiple times will only load once.
func Load(configFile string) error {
	loadMutex.Lock()
	defer loadMutex.Unlock()

	if hasLoaded {
		log.Debug("Config already loaded, skipping reload")
		return nil
	}

	if configFile == "" {
		configFile = findConfigFile()
	}

	if configFile != "" {
		if err := k.Load(file.Provider(configFile), yaml.Parser()); err != nil {
			return fmt.Errorf("error loading config file: %w", err)
		}
		log.Debug("Config file loaded", "file", configFile)

		for _, key := range CheckUnknownKeys() {
			if suggestion := SuggestCorrectKey(key); suggestion != "" {
				log.Warn(fmt.Sprintf("Unknown key '%s' - did you mean '%s'?", key, suggestion), "file", configFile)
			} else {
				log.Warn(fmt.Sprintf("Unknown key '%s' will be ignored", key), "file", configFile)
			}
		}
	} else {
		log.Debug("No config file found, using defaults and environment variables")
	}

	// Support environment variable overrides for specific config keys
	envOverrides := map[string]string{
		"SPECMINT_TEAMS_DIR":          "teams.dir",
		"SPECMINT_CHECKOUT_TIMEOUT":   "mining.checkout_timeout",
		"SPECMINT_VALIDATOR_BASE_URL": "validator.base_url",
	}

	for envKey, configKey := range envOverrides {
		if val := os.Getenv(envKey); val != "" {
			if err := k.Set(configKey, val); err != nil {
				return fmt.Errorf("error setting %s from env: %w", envKey, err)
			}
		}
	}

	hasLoaded = true
	log.Debug("All loaded config", "config", k.All())
	return nil
}

// Get returns the cached config. If not loaded yet, loads from default location.
func Get() (*Config, error) {
	if err := Load(""); err != nil {
		return nil, err
	}

	loadMutex.Lock()
	defer loadMutex.Unlock()

	if cachedConfig != nil {
		return cachedConfig, cachedConfigErr
	}

	cachedConfig, cachedConfigErr = parseAndValidate()
	return cachedConfig, cachedConfigErr
}

// parseAndValidate parses the loaded koanf data into a Config struct and validates it
func parseAndValidate() (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if cfg.Teams.Dir == "" {
		cfg.Teams.Dir = utils.GetTeamsDir()
	}
	if cfg.Cache.Size == 0 {
		cfg.Cache.Size = 32
	}
	if cfg.Mining.CheckoutTimeout == "" {
		cfg.Mining.CheckoutTimeout = "120s"
	}
	if cfg.Mining.MaxHints == 0 {
		cfg.Mining.MaxHints = 10
	}
	if cfg.Validator.RequestDelay == "" {
		cfg.Validator.RequestDelay = "500ms"
	}
	if cfg.Validator.Timeout == "" {
		cfg.Validator.Timeout = "10s"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) Validate() error {
	var errs []error

	if cfg.Cache.Size < 1 {
		errs = append(errs, fmt.Errorf("cache.size must be positive, got %d", cfg.Cache.Size))
	}

	for key, val := range map[string]string{
		"mining.checkout_timeout": cfg.Mining.CheckoutTimeout,
		"validator.request_delay": cfg.Validator.RequestDelay,
		"validator.timeout":       cfg.Validator.Timeout,
	} {
		if val == "" {
			continue
		}
		if _, err := time.ParseDuration(val); err != nil {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", key, val))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// CheckoutTimeout returns the mining checkout timeout as a duration.
func (cfg *Config) CheckoutTimeout() time.Duration {
	d, err := time.ParseDuration(cfg.Mining.CheckoutTimeout)
	if err != nil {
		return 120 * time.Second
	}
	return d
}

// ValidatorRequestDelay returns the validator inter-request delay as a duration.
func (cfg *Config) ValidatorRequestDelay() time.Duration {
	d, err := time.ParseDuration(cfg.Validator.RequestDelay)
	if err != nil {
		return 500 * time.Millisecond
	}
	return d
}

// ValidatorTimeout returns the validator per-request timeout as a duration.
func (cfg *Config) ValidatorTimeout() time.Duration {
	d, err := time.ParseDuration(cfg.Validator.Timeout)
	if err != nil {
		return 10 * time.Second
	}
	return d
}

// CheckUnknownKeys compares loaded config keys against the valid schema.
// Returns a list of keys that don't match any known config field.
func CheckUnknownKeys() []string {
	validKeys := getValidKeys(reflect.TypeOf(Config{}), "")
	loadedKeys := k.Keys()

	validSet := make(map[string]bool)
	for _, key := range validKeys {
		validSet[key] = true
		// Also add parent paths as valid (e.g., "mining" is valid if "mining.branch" is valid)
		parts := strings.Split(key, ".")
		for i := 1; i < len(parts); i++ {
			validSet[strings.Join(parts[:i], ".")] = true
		}
	}

	var unknown []string
	for _, key := range loadedKeys {
		if !validSet[key] {
			unknown = append(unknown, key)
		}
	}

	return unknown
}

// getValidKeys extracts all valid config key paths from struct tags recursively.
func getValidKeys(t reflect.Type, prefix string) []string {
	var keys []string

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	if t.Kind() != reflect.Struct {
		return keys
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}

		fullKey := tag
		if prefix != "" {
			fullKey = prefix + "." + tag
		}

		keys = append(keys, fullKey)

		fieldType := field.Type
		if fieldType.Kind() == reflect.Ptr {
			fieldType = fieldType.Elem()
		}
		if fieldType.Kind() == reflect.Struct {
			keys = append(keys, getValidKeys(fieldType, fullKey)...)
		}
	}

	return keys
}

// SuggestCorrectKey suggests the closest valid key name for a mistyped one.
// Returns "" when nothing is within a reasonable edit distance.
func SuggestCorrectKey(unknownKey string) string {
	validKeys := getValidKeys(reflect.TypeOf(Config{}), "")

	best := ""
	bestDist := 4 // only suggest within 3 edits
	for _, key := range validKeys {
		d := levenshtein.ComputeDistance(unknownKey, key)
		if d < bestDist {
			best = key
			bestDist = d
		}
	}
	return best
}

func findConfigFile() string {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}

	possiblePaths := []string{
		".specmint/config.yaml",
		".specmint/config.yml",
		"specmint.yaml",
		"specmint.yml",
	}

	// Traverse upwards, starting from current directory
	currentDir := wd
	for {
		for _, relPath := range possiblePaths {
			fullPath := filepath.Join(currentDir, relPath)
			if _, err := os.Stat(fullPath); err == nil {
				return fullPath
			}
		}

		parent := filepath.Dir(currentDir)
		if parent == currentDir {
			return ""
		}
		currentDir = parent
	}
}

// Invalidate clears the cached config so the next Get reloads it.
func Invalidate() {
	loadMutex.Lock()
	defer loadMutex.Unlock()

	k = koanf.New(".")
	cachedConfig = nil
	cachedConfigErr = nil
	hasLoaded = false
}

// ResetForTesting resets all package state. Only for use in tests.
func ResetForTesting() {
	Invalidate()
}
