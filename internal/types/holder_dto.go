package types

// TokenHoldersReq defines the request body for computing the holders of a token.
type TokenHoldersReq struct {
	// Chain name as configured under Chains (e.g. "ETH").
	Chain string `json:"chain"`
	// ERC-20 contract address.
	TokenAddress string `json:"tokenAddress"`
	// Token name, used as the cache namespace.
	TokenName string `json:"tokenName"`
	// Block the contract was deployed at.
	DeploymentBlock uint64 `json:"deploymentBlock"`
	// Target block height. Latest block when omitted.
	BlockNumber uint64 `json:"blockNumber,optional"`
	// Minimum balance (decimal, base units) a holder must exceed.
	MinTokenAmount string `json:"minTokenAmount,optional"`
}

// HolderBalance is one row of the holders result.
type HolderBalance struct {
	Address string `json:"address"`
	// Balance in base units, decimal string to avoid precision loss.
	Balance string `json:"balance"`
}

// TokenHoldersResp defines the response body of the holders computation.
type TokenHoldersResp struct {
	Chain    string          `json:"chain"`
	EndBlock uint64          `json:"endBlock"`
	Holders  []HolderBalance `json:"holders"`
	Count    int             `json:"count"`
	// Set when the result was exported to the database.
	RunId string `json:"runId,omitempty"`
}

// BalanceReq defines the request body for native balance lookups.
type BalanceReq struct {
	Chain       string   `json:"chain"`
	Addresses   []string `json:"addresses"`
	BlockNumber uint64   `json:"blockNumber,optional"`
}

// NativeBalance 单个地址的原生代币余额
type NativeBalance struct {
	Address   string `json:"address"`
	Balance   string `json:"balance"`   // wei
	Formatted string `json:"formatted"` // ether units
}

// BalanceResp defines the response body for native balance lookups.
type BalanceResp struct {
	Chain    string          `json:"chain"`
	Balances []NativeBalance `json:"balances"`
}
