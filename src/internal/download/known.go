package download

import "github.com/admi-n/sc-security-research/src/internal"

// KnownContract 预置的合约地址
type KnownContract struct {
	Name     string
	Address  string
	Category string
}

// LegitContracts 主流、公认安全的合约
var LegitContracts = []KnownContract{
	{"Uniswap V2 Router", "0x7a250d5630B4cF539739dF2C5dAcb4c659F2488D", internal.CategoryLegit},
	{"USDT", "0xdAC17F958D2ee523a2206206994597C13D831ec7", internal.CategoryLegit},
	{"USDC", "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", internal.CategoryLegit},
	{"Chainlink", "0x514910771AF9Ca656af840dff83E8264EcF986CA", internal.CategoryLegit},
	{"Wrapped Ether", "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", internal.CategoryLegit},
	{"DAI Stablecoin", "0x6B175474E89094C44Da98b954EedeAC495271d0F", internal.CategoryLegit},
	{"Uniswap V3 Router", "0xE592427A0AEce92De3Edee1F18E0157C05861564", internal.CategoryLegit},
	{"Compound USDC", "0x39AA39c021dfbaE8faC545936693aC917d5E7563", internal.CategoryLegit},
	{"AAVE Lending Pool", "0x7d2768dE32b0b80b7a3454c06BdAc94A69DDc7A9", internal.CategoryLegit},
	{"Maker DAO", "0x9f8F72aA9304c8B593d555F12eF6589cC3A579A2", internal.CategoryLegit},
}

// ScamContracts 公开报道过的诈骗合约
var ScamContracts = []KnownContract{
	{"SQUID Token (Honeypot)", "0x87230146E138d3F296a9a77e497A2A83012e9Bc5", internal.CategoryScam},
}

// ScamDatabases 可进一步人工检索的诈骗合约数据库
var ScamDatabases = []string{"ChainAbuse.com", "CryptoScamDB", "RugDoc"}

// KnownContracts 返回全部预置合约（先 legit 后 scam）
func KnownContracts() []KnownContract {
	out := make([]KnownContract, 0, len(LegitContracts)+len(ScamContracts))
	out = append(out, LegitContracts...)
	return append(out, ScamContracts...)
}
