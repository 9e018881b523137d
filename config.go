package digivahan

import (
	"errors"
	"time"
)

// Config defines the full engine configuration. Instances are intended to be
// configured during initialization and then treated as immutable.
type Config struct {
	JWT      JWTConfig
	AdminJWT JWTConfig
	OTP      OTPConfig
	Password PasswordConfig
	Deletion DeletionConfig
	Vault    VaultConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
	// RedisPrefix namespaces every ephemeral key written by this engine.
	RedisPrefix string
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures one token authority. The user and admin authorities
// take separate instances and must use distinct secrets and issuers so their
// tokens never cross-validate.
type JWTConfig struct {
	TokenTTL      time.Duration
	SigningMethod string // "hs256" (default) or "ed25519"
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig governs one-time code issuance across all five flows.
type OTPConfig struct {
	Digits          int
	CodeTTL         time.Duration
	ResendCooldown  time.Duration
	DailyMaxSends   int
	DeliveryTimeout time.Duration
	// Location fixes the calendar-day boundary for the daily send counter.
	// Defaults to time.Local.
	Location *time.Location
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig carries the Argon2id parameters and the rolling history
// depth.
type PasswordConfig struct {
	Memory       uint32 // in KB
	Time         uint32
	Parallelism  uint8
	SaltLength   uint32
	KeyLength    uint32
	HistoryDepth int
}

// DeletionConfig governs the scheduled-removal grace window.
type DeletionConfig struct {
	// GracePeriod separates a deletion request from the sweep that finalizes
	// it; a successful login inside the window cancels the deletion.
	GracePeriod time.Duration
}

// VaultConfig governs the per-vehicle security code gate.
type VaultConfig struct {
	CodeDigits int
	CodeTTL    time.Duration
}

// AuditConfig controls the buffered audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics system.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			TokenTTL:      7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "digivahan",
		},
		AdminJWT: JWTConfig{
			TokenTTL:      7 * 24 * time.Hour,
			SigningMethod: "hs256",
			Issuer:        "digivahan-admin",
		},
		OTP: OTPConfig{
			Digits:          6,
			CodeTTL:         600 * time.Second,
			ResendCooldown:  30 * time.Second,
			DailyMaxSends:   3,
			DeliveryTimeout: 10 * time.Second,
		},
		Password: PasswordConfig{
			Memory:       64 * 1024,
			Time:         3,
			Parallelism:  2,
			SaltLength:   16,
			KeyLength:    32,
			HistoryDepth: 3,
		},
		Deletion: DeletionConfig{
			GracePeriod: 30 * 24 * time.Hour,
		},
		Vault: VaultConfig{
			CodeDigits: 6,
			CodeTTL:    10 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
		RedisPrefix: "dv",
	}
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = cloneBytes(cfg.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(cfg.JWT.PublicKey)
	out.AdminJWT.PrivateKey = cloneBytes(cfg.AdminJWT.PrivateKey)
	out.AdminJWT.PublicKey = cloneBytes(cfg.AdminJWT.PublicKey)
	return out
}

func validateConfig(cfg Config) error {
	if cfg.OTP.Digits < 4 || cfg.OTP.Digits > 10 {
		return errors.New("otp digits must be between 4 and 10")
	}
	if cfg.OTP.CodeTTL <= 0 {
		return errors.New("otp code ttl must be positive")
	}
	if cfg.OTP.ResendCooldown <= 0 {
		return errors.New("otp resend cooldown must be positive")
	}
	if cfg.OTP.DailyMaxSends <= 0 {
		return errors.New("otp daily max sends must be positive")
	}
	if cfg.JWT.TokenTTL <= 0 || cfg.AdminJWT.TokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if cfg.Password.HistoryDepth < 0 {
		return errors.New("password history depth must not be negative")
	}
	if cfg.Deletion.GracePeriod <= 0 {
		return errors.New("deletion grace period must be positive")
	}
	if cfg.Vault.CodeDigits < 4 || cfg.Vault.CodeDigits > 10 {
		return errors.New("vault code digits must be between 4 and 10")
	}
	if cfg.Vault.CodeTTL <= 0 {
		return errors.New("vault code ttl must be positive")
	}
	if cfg.RedisPrefix == "" {
		return errors.New("redis prefix must not be empty")
	}
	return nil
}
