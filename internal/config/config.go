// Package config loads the operational tunables spec.md fixes as
// documented-default constants but which a real deployment wants
// overridable: KDF cost parameters, the dedup pool root, the package-
// mapping cache path, the fuzzy-match threshold, and the online-discovery
// rate limit. Values are loaded with viper from an optional YAML/TOML/env
// layer; every field has the spec's documented default, so a deployment
// with no config file present behaves exactly as spec.md describes.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds every tunable a caller may override. Zero-value Config is
// never handed to callers directly — use Load or Defaults.
type Config struct {
	// Crypto. KDFTimeCost and KDFMemoryKiB are threaded into the archive
	// writer and travel with the container (stored in the header's
	// EncryptionDescriptor, spec §4.C), so varying them per deployment is
	// safe. KDFThreads is NOT stored on disk — the header has no field for
	// it — so internal/archive deliberately ignores this value and always
	// uses crypto.KDFThreads, to avoid producing containers only the
	// writer's own process configuration can decrypt.
	KDFTimeCost  uint32
	KDFMemoryKiB uint32
	KDFThreads   uint8

	// Storage
	DedupPoolRoot        string
	DiskHeadroomFraction float64 // e.g. 0.10 for 10%
	MinFreeSpaceBytes    int64

	// Package resolver
	PackageMappingCachePath string
	FuzzyMatchThreshold     float64
	OnlineDiscoveryEnabled  bool
	ProbeMinGap             time.Duration
	ProbeDelay              time.Duration

	// Archive
	EncryptionFileCountLimit int
	EncryptionByteLimit      int64
}

// Defaults returns the spec-documented values, used whenever no config
// file or environment override is present.
func Defaults() Config {
	return Config{
		KDFTimeCost:  3,
		KDFMemoryKiB: 64 * 1024,
		KDFThreads:   4,

		DedupPoolRoot:        "",
		DiskHeadroomFraction: 0.10,
		MinFreeSpaceBytes:    16 << 20,

		PackageMappingCachePath: "",
		FuzzyMatchThreshold:     0.7,
		OnlineDiscoveryEnabled:  false,
		ProbeMinGap:             2 * time.Second,
		ProbeDelay:              500 * time.Millisecond,

		EncryptionFileCountLimit: 5000,
		EncryptionByteLimit:      1 << 30,
	}
}

// Load reads configPath (YAML/TOML/JSON, detected by extension) if it
// exists, and env vars prefixed KHRONO_ (e.g. KHRONO_KDF_TIME_COST),
// layered over Defaults(). A missing configPath is not an error.
func Load(configPath string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetEnvPrefix("khrono")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindDefaults(v, cfg)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok && !os.IsNotExist(err) {
				return cfg, err
			}
		}
	}

	cfg.KDFTimeCost = uint32(v.GetUint32("kdf_time_cost"))
	cfg.KDFMemoryKiB = uint32(v.GetUint32("kdf_memory_kib"))
	cfg.KDFThreads = uint8(v.GetUint32("kdf_threads"))

	cfg.DedupPoolRoot = v.GetString("dedup_pool_root")
	cfg.DiskHeadroomFraction = v.GetFloat64("disk_headroom_fraction")
	cfg.MinFreeSpaceBytes = v.GetInt64("min_free_space_bytes")

	cfg.PackageMappingCachePath = v.GetString("package_mapping_cache_path")
	cfg.FuzzyMatchThreshold = v.GetFloat64("fuzzy_match_threshold")
	cfg.OnlineDiscoveryEnabled = v.GetBool("online_discovery_enabled")
	cfg.ProbeMinGap = v.GetDuration("probe_min_gap")
	cfg.ProbeDelay = v.GetDuration("probe_delay")

	cfg.EncryptionFileCountLimit = v.GetInt("encryption_file_count_limit")
	cfg.EncryptionByteLimit = v.GetInt64("encryption_byte_limit")

	return cfg, nil
}

func bindDefaults(v *viper.Viper, cfg Config) {
	v.SetDefault("kdf_time_cost", cfg.KDFTimeCost)
	v.SetDefault("kdf_memory_kib", cfg.KDFMemoryKiB)
	v.SetDefault("kdf_threads", cfg.KDFThreads)

	v.SetDefault("dedup_pool_root", cfg.DedupPoolRoot)
	v.SetDefault("disk_headroom_fraction", cfg.DiskHeadroomFraction)
	v.SetDefault("min_free_space_bytes", cfg.MinFreeSpaceBytes)

	v.SetDefault("package_mapping_cache_path", cfg.PackageMappingCachePath)
	v.SetDefault("fuzzy_match_threshold", cfg.FuzzyMatchThreshold)
	v.SetDefault("online_discovery_enabled", cfg.OnlineDiscoveryEnabled)
	v.SetDefault("probe_min_gap", cfg.ProbeMinGap)
	v.SetDefault("probe_delay", cfg.ProbeDelay)

	v.SetDefault("encryption_file_count_limit", cfg.EncryptionFileCountLimit)
	v.SetDefault("encryption_byte_limit", cfg.EncryptionByteLimit)
}
