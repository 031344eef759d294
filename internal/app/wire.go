package app

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/alanyoungcy/stakevault/internal/blob/s3"
	"github.com/alanyoungcy/stakevault/internal/cache/redis"
	"github.com/alanyoungcy/stakevault/internal/config"
	"github.com/alanyoungcy/stakevault/internal/crypto"
	"github.com/alanyoungcy/stakevault/internal/domain"
	"github.com/alanyoungcy/stakevault/internal/ledger"
	"github.com/alanyoungcy/stakevault/internal/notify"
	"github.com/alanyoungcy/stakevault/internal/store/memory"
	"github.com/alanyoungcy/stakevault/internal/store/postgres"
	"github.com/alanyoungcy/stakevault/internal/token"
)

// simRewardPool is the reward-token balance minted to custody in sim mode so
// stakes have headroom out of the box.
var simRewardPool = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores
	OptionStore      domain.OptionStore
	PositionStore    domain.PositionStore
	ReservationStore domain.ReservationStore
	AuthorityStore   domain.AuthorityStore
	AuditStore       domain.AuditStore
	ArchiveStore     domain.ArchiveStore

	// Coordination
	SignalBus   domain.SignalBus
	LockManager domain.LockManager
	RateLimiter domain.RateLimiter
	OptionCache domain.OptionCache

	// Token access
	Token domain.TokenClient

	// Blob storage
	BlobWriter  domain.BlobWriter
	BlobReader  domain.BlobReader
	BlobDeleter domain.BlobDeleter
	Archiver    *s3blob.Archiver

	// Ledger
	Engine *ledger.Engine

	// Notifications
	Notifier *notify.Notifier
}

// needsPostgres returns true for modes that require a database connection.
// Sim mode runs entirely on in-memory stores.
func needsPostgres(mode string) bool {
	switch mode {
	case "server", "full":
		return true
	default:
		return false
	}
}

// needsRedis mirrors needsPostgres; sim mode has no bus, locks, or cache.
func needsRedis(mode string) bool {
	return needsPostgres(mode)
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	logger := slog.Default()
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Stores ---
	if needsPostgres(mode) {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		deps.OptionStore = postgres.NewOptionStore(pgClient)
		deps.PositionStore = postgres.NewPositionStore(pgClient)
		deps.ReservationStore = postgres.NewReservationStore(pgClient)
		deps.AuthorityStore = postgres.NewAuthorityStore(pgClient)
		deps.AuditStore = postgres.NewAuditStore(pgClient)
		deps.ArchiveStore = postgres.NewArchiveStore(pgClient)
	} else {
		deps.OptionStore = memory.NewOptionStore()
		deps.PositionStore = memory.NewPositionStore()
		deps.ReservationStore = memory.NewReservationStore()
		deps.AuthorityStore = memory.NewAuthorityStore()
		deps.AuditStore = memory.NewAuditStore()
		deps.ArchiveStore = memory.NewArchiveStore()
	}

	// --- Redis ---
	if needsRedis(mode) {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		streamMaxLen := cfg.Redis.StreamMaxLen
		if streamMaxLen <= 0 {
			streamMaxLen = 10000
		}

		deps.SignalBus = redis.NewSignalBus(redisClient, streamMaxLen)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.OptionCache = redis.NewOptionCache(redisClient)
	}

	// --- Token client ---
	stakeToken := common.HexToAddress(cfg.Ledger.StakeToken)
	rewardToken := common.HexToAddress(cfg.Ledger.RewardToken)
	serviceOwner := common.HexToAddress(cfg.Ledger.ServiceOwner)

	if mode == "sim" {
		sim := token.NewSimulator(common.HexToAddress(cfg.Ledger.SimCustody))
		sim.Mint(rewardToken, sim.Custody(), simRewardPool)
		deps.Token = sim
		logger.InfoContext(ctx, "wire: token simulator ready",
			slog.String("custody", sim.Custody().Hex()),
			slog.String("reward_pool", simRewardPool.String()),
		)
	} else {
		key, err := crypto.LoadECDSA(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: custody key: %w", err)
		}

		erc20, err := token.NewERC20Client(ctx, cfg.Chain.RPCURL, key, logger)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: erc20 client: %w", err)
		}
		closers = append(closers, erc20.Close)
		deps.Token = erc20
	}

	// --- Ledger engine ---
	engine, err := ledger.NewEngine(ledger.Config{
		StakeToken:   stakeToken,
		RewardToken:  rewardToken,
		ServiceOwner: serviceOwner,
		Options:      deps.OptionStore,
		Positions:    deps.PositionStore,
		Reservations: deps.ReservationStore,
		Authority:    deps.AuthorityStore,
		Token:        deps.Token,
		Audit:        deps.AuditStore,
		Archive:      deps.ArchiveStore,
		Bus:          deps.SignalBus,
		Locks:        deps.LockManager,
		Cache:        deps.OptionCache,
		Logger:       logger,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: ledger engine: %w", err)
	}
	deps.Engine = engine

	// --- S3 blob storage (only when archiving is enabled) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		reader := s3blob.NewReader(s3Client)
		deps.BlobReader = reader
		deps.BlobDeleter = reader // same type implements BlobDeleter
		deps.Archiver = s3blob.NewArchiver(deps.BlobWriter, deps.AuditStore, deps.ArchiveStore, logger)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	return deps, cleanup, nil
}
