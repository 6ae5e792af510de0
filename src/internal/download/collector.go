package download

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/big"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/admi-n/sc-security-research/src/internal"
	"github.com/admi-n/sc-security-research/src/internal/metrics"
)

// ChainReader 链上只读查询，*ethclient.Client 满足该接口
type ChainReader interface {
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// ContractStore 采集结果的持久化目标
type ContractStore interface {
	ContractExists(ctx context.Context, address string) (bool, error)
	SaveContract(ctx context.Context, c internal.Contract) error
}

// ContractCollector 从 Etherscan 采集合约并可选地补充链上信息
type ContractCollector struct {
	source  *Client
	chain   ChainReader
	store   ContractStore
	metrics *metrics.Registry
	failLog string
	now     func() time.Time
}

// Option 采集器选项
type Option func(*ContractCollector)

// WithChain 启用字节码大小与余额补充
func WithChain(chain ChainReader) Option {
	return func(cc *ContractCollector) { cc.chain = chain }
}

// WithStore 采集成功后写入数据库
func WithStore(store ContractStore) Option {
	return func(cc *ContractCollector) { cc.store = store }
}

// WithMetrics 记录采集计数
func WithMetrics(m *metrics.Registry) Option {
	return func(cc *ContractCollector) { cc.metrics = m }
}

// WithFailLog 网络失败的地址追加写入该文件（每行一个），便于重试
func WithFailLog(path string) Option {
	return func(cc *ContractCollector) { cc.failLog = path }
}

// NewContractCollector 创建采集器
func NewContractCollector(source *Client, opts ...Option) *ContractCollector {
	cc := &ContractCollector{source: source, now: time.Now}
	for _, opt := range opts {
		opt(cc)
	}
	return cc
}

// DialChain 连接以太坊节点，HTTP 请求复用传入的客户端（以便走代理）
func DialChain(ctx context.Context, rpcURL string, httpClient *http.Client) (*ethclient.Client, error) {
	var opts []rpc.ClientOption
	if httpClient != nil {
		opts = append(opts, rpc.WithHTTPClient(httpClient))
	}
	rc, err := rpc.DialOptions(ctx, rpcURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("连接以太坊节点失败: %w", err)
	}
	log.Printf("✅ 成功连接到以太坊节点: %s\n", rpcURL)
	return ethclient.NewClient(rc), nil
}

// CollectKnown 采集预置的 legit / scam 合约，未验证的合约跳过
func (cc *ContractCollector) CollectKnown(ctx context.Context) ([]internal.Contract, error) {
	var out []internal.Contract

	log.Println("🔒 采集已知安全合约...")
	for _, k := range LegitContracts {
		c, err := cc.collect(ctx, k.Address, k.Category)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Printf("⚠️  %s: %v\n", k.Name, err)
			continue
		}
		if c.Name == "" {
			c.Name = k.Name
		}
		out = append(out, *c)
		log.Printf("✅ %s\n", k.Name)
	}

	log.Printf("⚠️  更多风险合约请参考: %s\n", strings.Join(ScamDatabases, ", "))

	log.Println("🚨 采集已知诈骗合约...")
	for _, k := range ScamContracts {
		c, err := cc.collect(ctx, k.Address, k.Category)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			if errors.Is(err, ErrNotVerified) {
				log.Printf("⚠️  %s - 源码未验证（诈骗合约常见情况）\n", k.Name)
			} else {
				log.Printf("⚠️  %s: %v\n", k.Name, err)
			}
			continue
		}
		if c.Name == "" {
			c.Name = k.Name
		}
		out = append(out, *c)
		log.Printf("⚠️  %s\n", k.Name)
	}

	cc.metrics.Collected("etherscan", len(out))
	return out, nil
}

// CollectVerified 采集最近验证的 n 个合约，category = unknown
func (cc *ContractCollector) CollectVerified(ctx context.Context, n int) ([]internal.Contract, error) {
	log.Println("📥 采集最近验证的合约...")
	addrs, err := cc.source.ListVerifiedContracts(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("获取已验证合约列表失败: %w", err)
	}

	var out []internal.Contract
	for _, addr := range addrs {
		c, err := cc.collect(ctx, addr, internal.CategoryUnknown)
		if err != nil {
			if ctx.Err() != nil {
				return out, ctx.Err()
			}
			log.Printf("⚠️  %s: %v\n", addr, err)
			continue
		}
		out = append(out, *c)
		log.Printf("✅ %s - %s...\n", c.Name, shortAddr(c.Address))
	}

	cc.metrics.Collected("etherscan", len(out))
	return out, nil
}

// CollectAddresses 按地址列表采集（用于 --file 重试）。
// 地址去重；数据库中已存在的跳过；未验证的合约也保留（verified=false）。
func (cc *ContractCollector) CollectAddresses(ctx context.Context, addresses []string, category string) ([]internal.Contract, error) {
	if category == "" {
		category = internal.CategoryUnknown
	}

	var out []internal.Contract
	seen := make(map[string]struct{})
	for _, a := range addresses {
		addr := strings.TrimSpace(a)
		if addr == "" {
			continue
		}
		if _, ok := seen[strings.ToLower(addr)]; ok {
			continue
		}
		seen[strings.ToLower(addr)] = struct{}{}

		if cc.store != nil {
			exists, err := cc.store.ContractExists(ctx, addr)
			if err != nil {
				log.Printf("⚠️  检查合约 %s 是否存在失败: %v\n", addr, err)
			} else if exists {
				log.Printf("⏭️  合约已存在，跳过: %s\n", addr)
				continue
			}
		}

		c, err := cc.collect(ctx, addr, category)
		switch {
		case err == nil:
		case ctx.Err() != nil:
			return out, ctx.Err()
		case errors.Is(err, ErrNotVerified):
			c = &internal.Contract{
				Address:        addr,
				Category:       category,
				CollectionDate: cc.now().Format(time.RFC3339),
				Verified:       internal.BoolPtr(false),
			}
			cc.enrich(ctx, c)
			cc.save(ctx, *c)
		default:
			log.Printf("⚠️  查询 Etherscan 失败 for %s: %v，记录到失败文件\n", addr, err)
			appendFailAddress(cc.failLog, addr)
			continue
		}
		out = append(out, *c)
	}

	cc.metrics.Collected("etherscan", len(out))
	return out, nil
}

// collect 获取单个合约：校验地址、查询源码、补充链上信息、写库
func (cc *ContractCollector) collect(ctx context.Context, address, category string) (*internal.Contract, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("无效的合约地址: %q", address)
	}

	log.Printf("🔍 Checking %s...\n", shortAddr(address))
	src, err := cc.source.FetchContractSource(ctx, address)
	if err != nil {
		return nil, err
	}

	c := src.Contract(category, cc.now())
	c.Verified = internal.BoolPtr(true)
	cc.enrich(ctx, &c)
	cc.save(ctx, c)
	return &c, nil
}

// enrich 补充字节码大小与余额（ETH，6 位小数），失败不阻塞主流程
func (cc *ContractCollector) enrich(ctx context.Context, c *internal.Contract) {
	if cc.chain == nil {
		return
	}
	addr := common.HexToAddress(c.Address)

	code, err := cc.chain.CodeAt(ctx, addr, nil)
	if err != nil {
		log.Printf("⚠️  获取合约字节码失败: %s -> %v\n", c.Address, err)
	} else {
		c.BytecodeSize = len(code)
	}

	balance, err := cc.chain.BalanceAt(ctx, addr, nil)
	if err != nil {
		log.Printf("⚠️  获取余额失败: %s -> %v\n", c.Address, err)
		balance = big.NewInt(0)
	}
	c.Balance = FormatEther(balance)
}

func (cc *ContractCollector) save(ctx context.Context, c internal.Contract) {
	if cc.store == nil {
		return
	}
	if err := cc.store.SaveContract(ctx, c); err != nil {
		log.Printf("❌ 保存合约失败: %s -> %v\n", c.Address, err)
	}
}

// FormatEther wei 转 ETH，保留 6 位小数
func FormatEther(wei *big.Int) string {
	if wei == nil {
		wei = big.NewInt(0)
	}
	eth := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e18))
	return eth.Text('f', 6)
}

// appendFailAddress 将失败地址追加到文件（每行一个），忽略写入错误但记录日志
func appendFailAddress(failFile, addr string) {
	if strings.TrimSpace(failFile) == "" || strings.TrimSpace(addr) == "" {
		return
	}
	f, err := os.OpenFile(failFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		log.Printf("⚠️  无法打开失败记录文件 %s: %v\n", failFile, err)
		return
	}
	defer f.Close()
	if _, err := f.WriteString(strings.TrimSpace(addr) + "\n"); err != nil {
		log.Printf("⚠️  无法写入失败记录文件 %s: %v\n", failFile, err)
	}
}

func shortAddr(addr string) string {
	if len(addr) > 10 {
		return addr[:10]
	}
	return addr
}

// ReadAddressFile 读取地址文件：每行一个地址，忽略空行与 # 注释
func ReadAddressFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取地址文件失败: %w", err)
	}
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out, nil
}
