package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DefaultPath is the optional JSON configuration file read from the working
// directory. Environment variables override anything it contains.
const DefaultPath = "courier.json"

// Config holds every tunable of the bridge. It maps directly to the optional
// courier.json file; each field can also be set through a COURIER_* env var,
// which wins over the file. Anything left unset or non-numeric falls back to
// the defaults from DefaultConfig.
type Config struct {
	// TelegramToken is the secret BOT API string provided by @BotFather.
	TelegramToken string `json:"telegram_token"`
	// ChatID is the single private conversation the bridge is bound to.
	// Questions go to it and only its messages are considered as replies.
	ChatID int64 `json:"chat_id"`
	// UrgentTimeoutSec is how long an urgent question waits for a reply
	// before the wait fails hard.
	UrgentTimeoutSec int `json:"urgent_timeout_sec"`
	// RelaxedTimeoutSec is how long a non-urgent question waits before the
	// caller gets the fallback text instead of an error.
	RelaxedTimeoutSec int `json:"relaxed_timeout_sec"`
	// LongPollSec is the server-side wait passed to each getUpdates call.
	LongPollSec int `json:"long_poll_sec"`
	// PollIntervalMs is the base backoff unit applied after a failed fetch.
	PollIntervalMs int `json:"poll_interval_ms"`
	// LivenessSec is the cadence of the "still waiting" progress signal
	// sent to the calling client during a wait.
	LivenessSec int `json:"liveness_sec"`
	// ClockSkewSec widens the loose-correlation freshness window to absorb
	// drift between the transport clock and message timestamps.
	ClockSkewSec int `json:"clock_skew_sec"`
	// DownloadTimeoutMs bounds each media download from Telegram.
	DownloadTimeoutMs int `json:"download_timeout_ms"`
	// TelegramMessageLimit is the maximum character count for a single
	// Telegram message. Longer questions are split into multiple chunks.
	TelegramMessageLimit int `json:"telegram_message_limit"`
	// ForceReply controls whether plain questions carry a force-reply
	// marker so the user's answer carries an explicit reply link. Turning
	// it off drops correlation to the loose timestamp/sequence heuristic.
	ForceReply *bool `json:"force_reply"`
	// FallbackReply is returned to the caller when a non-urgent question
	// times out with no answer.
	FallbackReply string `json:"fallback_reply"`
	// LogLevel sets the minimum severity for log output.
	// Accepted values: "debug", "info", "warn", "error". Default: "info".
	LogLevel string `json:"log_level"`
}

// DefaultConfig returns a Config initialized with safe default values for
// everything except the two mandatory identity fields (token and chat id).
func DefaultConfig() *Config {
	forceReply := true
	return &Config{
		UrgentTimeoutSec:     600,
		RelaxedTimeoutSec:    180,
		LongPollSec:          25,
		PollIntervalMs:       1000,
		LivenessSec:          20,
		ClockSkewSec:         120,
		DownloadTimeoutMs:    10000,
		TelegramMessageLimit: 4000,
		ForceReply:           &forceReply,
		FallbackReply:        "The user has not replied yet. Call fetch_last_reply later to resume waiting for this question.",
		LogLevel:             "info",
	}
}

// Validate ensures the configuration contains the mandatory identity fields.
// It acts as a primary guard before the system proceeds to initialization.
func (c *Config) Validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("mandatory telegram_token is missing (set COURIER_TELEGRAM_TOKEN)")
	}
	if c.ChatID == 0 {
		return fmt.Errorf("mandatory chat_id is missing (set COURIER_CHAT_ID)")
	}
	return nil
}

// Load builds the effective configuration: defaults, overlaid by the
// optional JSON file at path, overlaid by environment variables. A missing
// file is not an error; a malformed one is, so a typo doesn't silently run
// the bridge on defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.clampToDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides fields from COURIER_* environment variables. Values
// that fail to parse are ignored, leaving the file value or default intact.
func (c *Config) applyEnv() {
	envString("COURIER_TELEGRAM_TOKEN", &c.TelegramToken)
	envInt64("COURIER_CHAT_ID", &c.ChatID)
	envInt("COURIER_URGENT_TIMEOUT_SEC", &c.UrgentTimeoutSec)
	envInt("COURIER_RELAXED_TIMEOUT_SEC", &c.RelaxedTimeoutSec)
	envInt("COURIER_LONG_POLL_SEC", &c.LongPollSec)
	envInt("COURIER_POLL_INTERVAL_MS", &c.PollIntervalMs)
	envInt("COURIER_LIVENESS_SEC", &c.LivenessSec)
	envInt("COURIER_CLOCK_SKEW_SEC", &c.ClockSkewSec)
	envInt("COURIER_DOWNLOAD_TIMEOUT_MS", &c.DownloadTimeoutMs)
	envInt("COURIER_TELEGRAM_MESSAGE_LIMIT", &c.TelegramMessageLimit)
	envBool("COURIER_FORCE_REPLY", &c.ForceReply)
	envString("COURIER_FALLBACK_REPLY", &c.FallbackReply)
	envString("COURIER_LOG_LEVEL", &c.LogLevel)
}

// clampToDefaults resets non-positive numeric fields to their defaults so a
// zero or negative setting can never stall the bridge.
func (c *Config) clampToDefaults() {
	def := DefaultConfig()
	clampInt(&c.UrgentTimeoutSec, def.UrgentTimeoutSec)
	clampInt(&c.RelaxedTimeoutSec, def.RelaxedTimeoutSec)
	clampInt(&c.LongPollSec, def.LongPollSec)
	clampInt(&c.PollIntervalMs, def.PollIntervalMs)
	clampInt(&c.LivenessSec, def.LivenessSec)
	clampInt(&c.DownloadTimeoutMs, def.DownloadTimeoutMs)
	clampInt(&c.TelegramMessageLimit, def.TelegramMessageLimit)
	if c.ClockSkewSec < 0 {
		c.ClockSkewSec = def.ClockSkewSec
	}
	if c.ForceReply == nil {
		c.ForceReply = def.ForceReply
	}
	if c.FallbackReply == "" {
		c.FallbackReply = def.FallbackReply
	}
}

// Duration accessors, so wiring sites don't repeat unit conversions.

func (c *Config) UrgentTimeout() time.Duration   { return time.Duration(c.UrgentTimeoutSec) * time.Second }
func (c *Config) RelaxedTimeout() time.Duration  { return time.Duration(c.RelaxedTimeoutSec) * time.Second }
func (c *Config) LongPollWait() time.Duration    { return time.Duration(c.LongPollSec) * time.Second }
func (c *Config) PollInterval() time.Duration    { return time.Duration(c.PollIntervalMs) * time.Millisecond }
func (c *Config) LivenessEvery() time.Duration   { return time.Duration(c.LivenessSec) * time.Second }
func (c *Config) ClockSkew() time.Duration       { return time.Duration(c.ClockSkewSec) * time.Second }
func (c *Config) DownloadTimeout() time.Duration { return time.Duration(c.DownloadTimeoutMs) * time.Millisecond }

// ForceReplyEnabled reports whether plain questions should carry the
// force-reply marker (strict correlation).
func (c *Config) ForceReplyEnabled() bool {
	return c.ForceReply == nil || *c.ForceReply
}

func envString(key string, dst *string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

func envInt(key string, dst *int) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envInt64(key string, dst *int64) {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func envBool(key string, dst **bool) {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = &b
		}
	}
}

func clampInt(v *int, def int) {
	if *v <= 0 {
		*v = def
	}
}
