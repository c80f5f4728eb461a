package config

import "time"

// ChannelSyncConfig tunes the outbox dispatcher that pushes availability
// and rate deltas to external sales channels.
type ChannelSyncConfig struct {
    PollInterval time.Duration // how often the outbox is drained
    BatchSize    int           // max messages delivered per drain
    MaxRetries   int           // delivery attempts before a message is retired
    BaseDelay    time.Duration // first retry delay
    MaxDelay     time.Duration // backoff ceiling
}

// LoadChannelSyncConfig reads dispatcher tuning from the environment,
// falling back to defaults suitable for a single instance.
func LoadChannelSyncConfig() ChannelSyncConfig {
    cfg := ChannelSyncConfig{
        PollInterval: envDur("CHANNEL_SYNC_POLL_INTERVAL", 2*time.Second),
        BatchSize:    envInt("CHANNEL_SYNC_BATCH_SIZE", 100),
        MaxRetries:   envInt("CHANNEL_SYNC_MAX_RETRIES", 5),
        BaseDelay:    envDur("CHANNEL_SYNC_BASE_DELAY", time.Second),
        MaxDelay:     envDur("CHANNEL_SYNC_MAX_DELAY", time.Minute),
    }
    if cfg.PollInterval <= 0 { cfg.PollInterval = 2 * time.Second }
    if cfg.BatchSize < 1 { cfg.BatchSize = 1 }
    if cfg.MaxRetries < 1 { cfg.MaxRetries = 1 }
    if cfg.BaseDelay <= 0 { cfg.BaseDelay = time.Second }
    if cfg.MaxDelay < cfg.BaseDelay { cfg.MaxDelay = cfg.BaseDelay }
    return cfg
}

// LoadBlockSweepInterval reads how often expired room blocks are swept.
func LoadBlockSweepInterval() time.Duration {
    d := envDur("BLOCK_SWEEP_INTERVAL", time.Minute)
    if d <= 0 { d = time.Minute }
    return d
}
