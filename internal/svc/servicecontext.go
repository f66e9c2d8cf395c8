package svc

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"sort"
	"time"

	"holderscan/internal/cache"
	"holderscan/internal/config"
	"holderscan/internal/constant"
	"holderscan/internal/logic/fetcher"
	"holderscan/internal/logic/retry"
	"holderscan/internal/logic/source"
	"holderscan/internal/model"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/zeromicro/go-zero/core/logx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownChain = errors.New("unknown chain")

// ChainReader is the part of ethclient.Client the service needs.
type ChainReader interface {
	source.LogFilterer
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Chain bundles the clients of one configured chain.
type Chain struct {
	// Key under Chains in the config (e.g. "ETH").
	Key string
	// Network name used as cache namespace (e.g. "ethereum").
	Network string
	Client  ChainReader
	Fetcher *fetcher.Fetcher
}

type ServiceContext struct {
	Config            config.Config
	Chains            map[string]*Chain
	Store             cache.Store
	RetryPolicy       retry.Policy
	HolderBalancesDao model.HolderBalancesDao
	DB                *gorm.DB

	closers []func()
}

func NewServiceContext(c config.Config) *ServiceContext {
	ctx := &ServiceContext{
		Config:      c,
		Chains:      make(map[string]*Chain, len(c.Chains)),
		Store:       cache.NewFileStore(c.Cache.Dir),
		RetryPolicy: NewRetryPolicy(c.Retry),
	}

	for key, chainConf := range c.Chains {
		client, err := ethclient.Dial(chainConf.RpcUrl)
		if err != nil {
			log.Fatalf("failed to dial %s rpc: %v", key, err)
		}
		ctx.closers = append(ctx.closers, client.Close)
		if err := verifyChainId(context.Background(), client, chainConf.ChainId); err != nil {
			log.Fatalf("%s: %v", key, err)
		}
		ctx.AddChain(key, chainConf, client)
	}

	// 未配置 DSN 时不导出结果
	if c.Postgres.DSN != "" {
		db, err := initDB(c.Postgres.DSN)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		ctx.DB = db
		ctx.HolderBalancesDao = model.NewHolderBalancesDao(db)
	}

	return ctx
}

// AddChain registers a chain backed by client, wiring its rate limited source and fetcher.
func (s *ServiceContext) AddChain(key string, chainConf config.ChainConf, client ChainReader) *Chain {
	network := chainConf.Name
	if network == "" {
		network = constant.NetworkName(key)
	}
	if s.Chains == nil {
		s.Chains = make(map[string]*Chain)
	}

	src := source.NewEthSource(client, network, chainConf.Rps, chainConf.Burst)
	chain := &Chain{
		Key:     key,
		Network: network,
		Client:  client,
		Fetcher: fetcher.New(src, s.RetryPolicy, NewFetchOptions(s.Config.Fetch)),
	}
	s.Chains[key] = chain
	return chain
}

// Chain returns the configured chain named key.
func (s *ServiceContext) Chain(key string) (*Chain, error) {
	chain, ok := s.Chains[key]
	if !ok {
		return nil, fmt.Errorf("%w: %q (configured: %v)", ErrUnknownChain, key, s.chainKeys())
	}
	return chain, nil
}

func (s *ServiceContext) chainKeys() []string {
	keys := make([]string, 0, len(s.Chains))
	for key := range s.Chains {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Close releases the RPC clients and the database pool.
func (s *ServiceContext) Close() {
	for _, closeFn := range s.closers {
		closeFn()
	}
	if s.DB != nil {
		if sqlDB, err := s.DB.DB(); err == nil {
			if err := sqlDB.Close(); err != nil {
				logx.Errorf("close db: %v", err)
			}
		}
	}
}

type chainIdReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// verifyChainId 校验 RPC 节点的链 ID, want 为 0 时跳过
func verifyChainId(ctx context.Context, client chainIdReader, want int64) error {
	if want == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	got, err := client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("failed to get chain ID: %w", err)
	}
	if !got.IsInt64() || got.Int64() != want {
		return fmt.Errorf("chain ID mismatch: rpc reports %s, configured %d", got, want)
	}
	return nil
}

// NewRetryPolicy builds the retry policy described by c.
func NewRetryPolicy(c config.RetryConf) retry.Policy {
	policy := retry.Policy{
		Iterations: c.Iterations,
		Wait:       time.Duration(c.Wait) * time.Millisecond,
	}
	if c.Classify {
		policy.Classifier = retry.Classify
	}
	return policy
}

// NewFetchOptions builds the fetcher options described by c.
func NewFetchOptions(c config.FetchConf) fetcher.Options {
	return fetcher.Options{
		FetchSize:          c.FetchSize,
		BatchSize:          c.BatchSize,
		WaitBetweenBatches: time.Duration(c.WaitBetweenBatches) * time.Millisecond,
	}
}

func initDB(dsn string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  true,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.HolderBalances{}); err != nil {
		return nil, fmt.Errorf("migrate holder_balances: %w", err)
	}

	// 设置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	return db, nil
}
