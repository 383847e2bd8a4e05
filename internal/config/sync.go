package config

import (
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// SyncConfig tunes the synchronizer. It can change at runtime.
type SyncConfig struct {
	HorizonDays        int
	StartupHorizonDays int
	StartupSync        bool
	Workers            int
	ExternalTimeout    time.Duration
	LockTTL            time.Duration
	LockWait           time.Duration
	RunInterval        time.Duration
	JobTimeout         time.Duration
	ActiveStatuses     []string
}

func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		HorizonDays:        90,
		StartupHorizonDays: 120,
		StartupSync:        true,
		Workers:            4,
		ExternalTimeout:    15 * time.Second,
		LockTTL:            2 * time.Minute,
		LockWait:           30 * time.Second,
		RunInterval:        time.Hour,
		JobTimeout:         20 * time.Minute,
		ActiveStatuses:     []string{"active", "trialing"},
	}
}

// env names accepted without the BOOKINGSYNC_ prefix.
var syncEnvAliases = map[string]string{
	"sync.horizonDays":        "SYNC_HORIZON_DAYS",
	"sync.startupHorizonDays": "SYNC_STARTUP_HORIZON_DAYS",
	"sync.startupSync":        "SYNC_STARTUP",
	"sync.workers":            "SYNC_WORKERS",
	"sync.externalTimeout":    "SYNC_EXTERNAL_TIMEOUT",
	"sync.lockTTL":            "SYNC_LOCK_TTL",
	"sync.lockWait":           "SYNC_LOCK_WAIT",
	"sync.runInterval":        "SYNC_RUN_INTERVAL",
	"sync.jobTimeout":         "SYNC_JOB_TIMEOUT",
	"sync.activeStatuses":     "SYNC_ACTIVE_STATUSES",
}

type SyncConfigHolder struct {
	current atomic.Value // holds SyncConfig
}

// NewStaticSyncConfigHolder wraps a fixed config.
func NewStaticSyncConfigHolder(cfg SyncConfig) *SyncConfigHolder {
	h := &SyncConfigHolder{}
	h.current.Store(cfg)
	return h
}

// NewSyncConfigHolder reads sync.yml from the usual locations and watches it.
func NewSyncConfigHolder(log *zap.Logger) (*SyncConfigHolder, error) {
	return loadSyncConfigHolder(log, "/var/lib/bookingsync/config", "/etc/bookingsync", ".")
}

func loadSyncConfigHolder(log *zap.Logger, paths ...string) (*SyncConfigHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.sync")

	v := viper.New()
	v.SetConfigName("sync")
	v.SetConfigType("yml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix("BOOKINGSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSyncConfig()
	v.SetDefault("sync.horizonDays", defaults.HorizonDays)
	v.SetDefault("sync.startupHorizonDays", defaults.StartupHorizonDays)
	v.SetDefault("sync.startupSync", defaults.StartupSync)
	v.SetDefault("sync.workers", defaults.Workers)
	v.SetDefault("sync.externalTimeout", defaults.ExternalTimeout)
	v.SetDefault("sync.lockTTL", defaults.LockTTL)
	v.SetDefault("sync.lockWait", defaults.LockWait)
	v.SetDefault("sync.runInterval", defaults.RunInterval)
	v.SetDefault("sync.jobTimeout", defaults.JobTimeout)
	v.SetDefault("sync.activeStatuses", defaults.ActiveStatuses)
	for key, env := range syncEnvAliases {
		_ = v.BindEnv(key, "BOOKINGSYNC_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		log.Info("config.sync.defaults")
	}

	cfg, err := decodeSyncConfig(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticSyncConfigHolder(cfg)

	if file := v.ConfigFileUsed(); file != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			updated, err := decodeSyncConfig(v)
			if err != nil {
				log.Warn("config.sync.reload_rejected", zap.String("file", e.Name), zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("config.sync.reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func decodeSyncConfig(v *viper.Viper) (SyncConfig, error) {
	// Per-key getters so defaults and env aliases apply to keys the file omits.
	cfg := SyncConfig{
		HorizonDays:        v.GetInt("sync.horizonDays"),
		StartupHorizonDays: v.GetInt("sync.startupHorizonDays"),
		StartupSync:        v.GetBool("sync.startupSync"),
		Workers:            v.GetInt("sync.workers"),
		ExternalTimeout:    v.GetDuration("sync.externalTimeout"),
		LockTTL:            v.GetDuration("sync.lockTTL"),
		LockWait:           v.GetDuration("sync.lockWait"),
		RunInterval:        v.GetDuration("sync.runInterval"),
		JobTimeout:         v.GetDuration("sync.jobTimeout"),
		ActiveStatuses:     normalizeStatuses(v.GetStringSlice("sync.activeStatuses")),
	}
	if err := validateSyncConfig(cfg); err != nil {
		return SyncConfig{}, err
	}
	return cfg, nil
}

func (h *SyncConfigHolder) Get() SyncConfig {
	return h.current.Load().(SyncConfig)
}

// normalizeStatuses accepts a list or a single comma separated entry.
func normalizeStatuses(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]struct{}{}
	for _, raw := range in {
		for _, part := range strings.Split(raw, ",") {
			s := strings.ToLower(strings.TrimSpace(part))
			if s == "" {
				continue
			}
			if _, ok := seen[s]; ok {
				continue
			}
			seen[s] = struct{}{}
			out = append(out, s)
		}
	}
	return out
}

func validateSyncConfig(cfg SyncConfig) error {
	var errs []error
	if cfg.HorizonDays < 0 {
		errs = append(errs, fmt.Errorf("sync.horizonDays must be >= 0, got %d", cfg.HorizonDays))
	}
	if cfg.StartupHorizonDays < 0 {
		errs = append(errs, fmt.Errorf("sync.startupHorizonDays must be >= 0, got %d", cfg.StartupHorizonDays))
	}
	if cfg.Workers < 1 {
		errs = append(errs, fmt.Errorf("sync.workers must be >= 1, got %d", cfg.Workers))
	}
	if cfg.ExternalTimeout <= 0 {
		errs = append(errs, errors.New("sync.externalTimeout must be positive"))
	}
	if cfg.LockTTL <= 0 {
		errs = append(errs, errors.New("sync.lockTTL must be positive"))
	}
	if cfg.RunInterval <= 0 {
		errs = append(errs, errors.New("sync.runInterval must be positive"))
	}
	if len(cfg.ActiveStatuses) == 0 {
		errs = append(errs, errors.New("sync.activeStatuses cannot be empty"))
	}
	return errors.Join(errs...)
}
