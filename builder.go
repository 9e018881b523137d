package digivahan

import (
	"errors"

	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/limiters"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/internal/stores"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/jwt"
	"github.com/Preet-Sharma-7061/Digivahan-backend-sub000/password"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an Engine. Builders are single-use: Build succeeds at
// most once per Builder.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	accounts   AccountStore
	admins     AdminStore
	deletions  DeletionRecordStore
	qr         QRAssignmentStore
	garage     GarageStore
	otpChannel OTPChannel
	auditSink  AuditSink

	built bool
}

// New returns a Builder seeded with the default configuration.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing OTP codes, registration
// payloads, rate limiters and the token denylist.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithAccounts sets the durable account store.
func (b *Builder) WithAccounts(store AccountStore) *Builder {
	b.accounts = store
	return b
}

// WithAdmins sets the admin principal store. Optional; when absent the
// admin authority is disabled.
func (b *Builder) WithAdmins(store AdminStore) *Builder {
	b.admins = store
	return b
}

// WithDeletionRecords sets the deletion work-item store.
func (b *Builder) WithDeletionRecords(store DeletionRecordStore) *Builder {
	b.deletions = store
	return b
}

// WithQRAssignments sets the QR assignment collaborator used by the
// deletion and recovery cascades.
func (b *Builder) WithQRAssignments(store QRAssignmentStore) *Builder {
	b.qr = store
	return b
}

// WithGarage sets the vehicle store backing the security code vault.
func (b *Builder) WithGarage(store GarageStore) *Builder {
	b.garage = store
	return b
}

// WithOTPChannel sets the delivery provider for one-time codes.
func (b *Builder) WithOTPChannel(channel OTPChannel) *Builder {
	b.otpChannel = channel
	return b
}

// WithAuditSink sets the destination for audit events. Ignored unless
// auditing is enabled in the config.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles counter recording.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the Authenticate latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and wiring and returns the Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if b.accounts == nil {
		return nil, errors.New("account store required")
	}
	if b.deletions == nil {
		return nil, errors.New("deletion record store required")
	}
	if b.qr == nil {
		return nil, errors.New("qr assignment store required")
	}
	if b.garage == nil {
		return nil, errors.New("garage store required")
	}
	if b.otpChannel == nil {
		return nil, errors.New("otp channel required")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	engine := &Engine{
		config:     cfg,
		accounts:   b.accounts,
		admins:     b.admins,
		deletions:  b.deletions,
		qr:         b.qr,
		garage:     b.garage,
		otpChannel: b.otpChannel,
	}

	engine.otpStore = stores.NewOTPStore(b.redis, cfg.RedisPrefix+":otp")
	engine.payloads = stores.NewPayloadStore(b.redis, cfg.RedisPrefix+":reg")
	engine.revoked = stores.NewRevocationStore(b.redis, cfg.RedisPrefix+":deny")
	engine.adminRevoked = stores.NewRevocationStore(b.redis, cfg.RedisPrefix+":adeny")
	engine.dailyLimiter = limiters.NewDailyLimiter(b.redis, cfg.RedisPrefix+":odc", limiters.DailyConfig{
		MaxSends: cfg.OTP.DailyMaxSends,
		Location: cfg.OTP.Location,
	})
	engine.cooldown = limiters.NewCooldown(b.redis, cfg.RedisPrefix+":cool", cfg.OTP.ResendCooldown)

	ph, err := password.NewArgon2(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,
	})
	if err != nil {
		return nil, err
	}
	engine.passwordHash = ph
	engine.history = password.NewHistory(ph, cfg.Password.HistoryDepth)

	userTokens, err := jwt.NewManager(jwt.Config{
		TokenTTL:      cfg.JWT.TokenTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    cloneBytes(cfg.JWT.PrivateKey),
		PublicKey:     cloneBytes(cfg.JWT.PublicKey),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}
	engine.userTokens = userTokens

	if b.admins != nil {
		if string(cfg.AdminJWT.SigningMethod) == string(cfg.JWT.SigningMethod) &&
			string(cfg.AdminJWT.PrivateKey) == string(cfg.JWT.PrivateKey) {
			return nil, errors.New("admin authority must use a distinct signing key")
		}
		adminTokens, err := jwt.NewManager(jwt.Config{
			TokenTTL:      cfg.AdminJWT.TokenTTL,
			SigningMethod: jwt.SigningMethod(cfg.AdminJWT.SigningMethod),
			PrivateKey:    cloneBytes(cfg.AdminJWT.PrivateKey),
			PublicKey:     cloneBytes(cfg.AdminJWT.PublicKey),
			Issuer:        cfg.AdminJWT.Issuer,
			Leeway:        cfg.AdminJWT.Leeway,
		})
		if err != nil {
			return nil, err
		}
		engine.adminTokens = adminTokens
	}

	if cfg.Audit.Enabled {
		sink := b.auditSink
		if sink == nil {
			sink = NoOpSink{}
		}
		engine.audit = newAuditDispatcher(sink, cfg.Audit.BufferSize, cfg.Audit.DropIfFull)
	}
	engine.metrics = NewMetrics(cfg.Metrics)

	b.built = true

	return engine, nil
}
