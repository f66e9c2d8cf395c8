package config

import "github.com/zeromicro/go-zero/rest"

type ChainConf struct {
	Name    string `json:"Name,optional"`
	RpcUrl  string `json:"RpcUrl"`
	ChainId int64  `json:"ChainId,optional"`
	// RPC token bucket, requests per second and burst.
	Rps   float64 `json:"Rps,default=20"`
	Burst int     `json:"Burst,default=40"`
}

// FetchConf controls how block ranges are split into eth_getLogs requests.
type FetchConf struct {
	// Block span of a single request.
	FetchSize uint64 `json:",default=10000"`
	// Concurrent requests per wave.
	BatchSize uint64 `json:",default=10"`
	// Pause between waves, milliseconds.
	WaitBetweenBatches int64 `json:",default=0"`
}

// RetryConf controls the retry wrapper around each request.
type RetryConf struct {
	Iterations int `json:",default=3"`
	// Fixed wait between attempts, milliseconds.
	Wait int64 `json:",default=600000"`
	// Stop retrying errors classified as terminal (invalid params, reverts...).
	Classify bool `json:",default=true"`
}

type Config struct {
	rest.RestConf
	Postgres struct {
		DSN string `json:",optional"`
	}
	Cache struct {
		Dir string `json:",default=./cache"`
	}
	Fetch FetchConf
	Retry RetryConf
	// Chains maps a chain name (e.g., "ETH") to its configuration.
	Chains map[string]ChainConf
}
