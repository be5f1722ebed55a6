package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"
)

const (
	defaultPath               = "."
	defaultMaxRequestBodySize = "2MB"
)

type Config struct {
	Env struct {
		Env         string `json:"env" yaml:"env"`
		ServiceName string `json:"serviceName" yaml:"serviceName"`
		Debug       bool   `json:"debug" yaml:"debug"`
		Log         Log    `json:"log" yaml:"log"`
	} `json:"env" yaml:"env"`

	HTTP struct {
		Port               int    `json:"port" yaml:"port"`
		MaxRequestBodySize string `json:"maxRequestBodySize" yaml:"maxRequestBodySize"`
		Timeouts           struct {
			ReadTimeout       time.Duration `json:"readTimeout" yaml:"readTimeout"`
			ReadHeaderTimeout time.Duration `json:"readHeaderTimeout" yaml:"readHeaderTimeout"`
			WriteTimeout      time.Duration `json:"writeTimeout" yaml:"writeTimeout"`
			IdleTimeout       time.Duration `json:"idleTimeout" yaml:"idleTimeout"`
		} `json:"timeouts" yaml:"timeouts"`
	} `json:"http" yaml:"http"`

	// Blob configuration for the catalog artifact store
	Blob BlobConfig `json:"blob" yaml:"blob"`

	// Publish configuration for the staging-and-publish pipeline
	Publish PublishConfig `json:"publish" yaml:"publish"`

	// Revalidate configuration for the page-cache invalidation endpoint
	Revalidate RevalidateConfig `json:"revalidate" yaml:"revalidate"`

	// ReadPath configuration for convergence polling of the public catalog
	ReadPath ReadPathConfig `json:"readPath" yaml:"readPath"`
}

type Log struct {
	Pretty bool   `json:"pretty" yaml:"pretty"`
	Level  string `json:"level" yaml:"level"`
}

// BlobConfig defines the catalog artifact's home in the object store.
type BlobConfig struct {
	// Bucket URL understood by gocloud.dev, e.g. "file:///var/data/catalog",
	// "gs://roastery-catalog" or "s3://roastery-catalog?region=us-east-1"
	BucketURL string `json:"bucketUrl" yaml:"bucketUrl"`

	// Key of the published catalog artifact inside the bucket
	CatalogKey string `json:"catalogKey" yaml:"catalogKey"`

	// Public base URL objects are served from
	PublicBaseURL string `json:"publicBaseUrl" yaml:"publicBaseUrl"`

	// Read-after-write verification: attempt count and first backoff delay
	VerifyAttempts int           `json:"verifyAttempts" yaml:"verifyAttempts"`
	VerifyBaseWait time.Duration `json:"verifyBaseWait" yaml:"verifyBaseWait"`
}

// PublishConfig bounds the publish pipeline's retries and timeouts.
type PublishConfig struct {
	// Aggregate budget for the cache invalidation fan-out
	InvalidationTimeout time.Duration `json:"invalidationTimeout" yaml:"invalidationTimeout"`

	// Convergence poll interval and total ceiling
	PollInterval time.Duration `json:"pollInterval" yaml:"pollInterval"`
	PollCeiling  time.Duration `json:"pollCeiling" yaml:"pollCeiling"`

	// How long a completed publish stays visible before resetting to idle
	ResetGrace time.Duration `json:"resetGrace" yaml:"resetGrace"`
}

// RevalidateConfig points at the rendering layer's cache invalidation API.
type RevalidateConfig struct {
	Endpoint       string        `json:"endpoint" yaml:"endpoint"`
	Secret         string        `json:"secret" yaml:"secret"`
	Tags           []string      `json:"tags" yaml:"tags"`
	Paths          []string      `json:"paths" yaml:"paths"`
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
}

// ReadPathConfig points at the public catalog endpoint used for
// convergence polling.
type ReadPathConfig struct {
	URL            string        `json:"url" yaml:"url"`
	RequestTimeout time.Duration `json:"requestTimeout" yaml:"requestTimeout"`
}

// LoadWithEnv loads .yaml files through koanf.
func LoadWithEnv[T any](currEnv string, configPath ...string) (*T, error) {
	cfg := new(T)
	koanfInstance := koanf.New(".")

	// Build list of paths to search for config file
	searchPaths := []string{defaultPath}
	if len(configPath) != 0 {
		pwd, err := os.Getwd()
		if err != nil {
			return nil, errors.Wrap(err, "os.Getwd")
		}
		for _, path := range configPath {
			abs := filepath.Join(pwd, path)
			searchPaths = append(searchPaths, abs)
		}
	}

	// Try to find and load the config file
	var configFile string
	var found bool
	for _, path := range searchPaths {
		candidate := filepath.Join(path, currEnv+".yaml")
		if _, err := os.Stat(candidate); err == nil {
			configFile = candidate
			found = true

			break
		}
	}

	if !found {
		return nil, errors.Errorf("config file %s.yaml not found in any search path", currEnv)
	}

	// Load YAML config file
	if err := koanfInstance.Load(file.Provider(configFile), yaml.Parser()); err != nil {
		return nil, errors.Wrapf(err, "read %s config failed", currEnv)
	}

	existingConfigMap := koanfInstance.Raw()

	// Load environment variables
	if err := koanfInstance.Load(env.Provider(".", env.Opt{
		TransformFunc: func(k, v string) (string, any) {
			// Convert ENV_VAR_NAME to path and align each segment with existing YAML keys.
			// Example: BLOB_CATALOGKEY -> blob.catalogKey (not blob.catalogkey)
			key := canonicalizeEnvKey(k, existingConfigMap)

			return key, v
		},
	}), nil); err != nil {
		return nil, errors.Wrap(err, "load env variables failed")
	}

	// Unmarshal into the config struct (case-insensitive to match env vars)
	if err := koanfInstance.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           cfg,
			WeaklyTypedInput: true,
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
			),
			MatchName: func(mapKey, fieldName string) bool {
				// Case-insensitive matching for env var overrides
				return strings.EqualFold(mapKey, fieldName)
			},
		},
	}); err != nil {
		return nil, errors.Wrapf(err, "unmarshal %s config failed", currEnv)
	}

	return cfg, nil
}

func New() (*Config, error) {
	cfg, err := LoadWithEnv[Config]("config", "config", "../config", "../../config")
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.HTTP.MaxRequestBodySize) == "" {
		cfg.HTTP.MaxRequestBodySize = defaultMaxRequestBodySize
	}
	if strings.TrimSpace(cfg.Blob.CatalogKey) == "" {
		cfg.Blob.CatalogKey = "catalog/products.csv"
	}

	return cfg, nil
}

func canonicalizeEnvKey(rawKey string, existing map[string]any) string {
	segments := strings.Split(strings.ToLower(rawKey), "_")
	canonical := make([]string, 0, len(segments))
	current := existing

	for _, segment := range segments {
		if segment == "" {
			continue
		}

		if matched, next, ok := findExistingSegment(current, segment); ok {
			canonical = append(canonical, matched)
			current = next
		} else {
			canonical = append(canonical, segment)
			current = nil
		}
	}

	return strings.Join(canonical, ".")
}

func findExistingSegment(current map[string]any, segment string) (matched string, next map[string]any, ok bool) {
	if len(current) == 0 {
		return "", nil, false
	}

	needle := normalizeToken(segment)
	for key, value := range current {
		if normalizeToken(key) != needle {
			continue
		}

		child, _ := value.(map[string]any)

		return key, child, true
	}

	return "", nil, false
}

func normalizeToken(s string) string {
	var normalized strings.Builder
	normalized.Grow(len(s))

	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		normalized.WriteRune(unicode.ToLower(r))
	}

	return normalized.String()
}
