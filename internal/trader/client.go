package trader

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/polymarket/go-order-utils/pkg/builder"
	"github.com/polymarket/go-order-utils/pkg/model"
	"go.uber.org/zap"

	"github.com/mselser95/polymarket-fleet/internal/accounts"
	"github.com/mselser95/polymarket-fleet/pkg/wallet"
)

const (
	polygonChainID     = 137
	ctfContractAddress = "0x4bFb41d5B3570DeFd03C39a9A4D8dE6Bd8B8982E"
	zeroAddress        = "0x0000000000000000000000000000000000000000"
)

// Config carries the endpoints shared by every account trader.
type Config struct {
	CLOBURL      string
	DataURL      string
	PolygonRPC   string
	OrderTimeout time.Duration
}

// AccountTrader executes exchange operations for one account using its
// own credentials. Implements Trader.
type AccountTrader struct {
	accountID  int64
	apiKey     string
	secret     string
	passphrase string

	privateKey *ecdsa.PrivateKey
	address    string // EOA, derived from the private key
	proxy      string // funder address; falls back to the EOA

	cfg          Config
	orderBuilder builder.ExchangeOrderBuilder
	walletClient *wallet.Client
	httpClient   *http.Client
	logger       *zap.Logger

	tickMu    sync.Mutex
	tickCache map[string]float64
}

// New builds a trader bound to the account's credentials.
func New(account accounts.Account, cfg Config, logger *zap.Logger) (*AccountTrader, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(account.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("unexpected public key type")
	}
	address := crypto.PubkeyToAddress(*publicKey).Hex()

	proxy := account.ProxyWallet
	if proxy == "" {
		proxy = address
	}

	walletClient, err := wallet.NewClient(cfg.PolygonRPC, logger)
	if err != nil {
		return nil, fmt.Errorf("create wallet client: %w", err)
	}

	timeout := cfg.OrderTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &AccountTrader{
		accountID:    account.ID,
		apiKey:       account.APIKey,
		secret:       account.APISecret,
		passphrase:   account.APIPassphrase,
		privateKey:   privateKey,
		address:      address,
		proxy:        proxy,
		cfg:          cfg,
		orderBuilder: builder.NewExchangeOrderBuilderImpl(big.NewInt(polygonChainID), nil),
		walletClient: walletClient,
		httpClient:   &http.Client{Timeout: timeout},
		tickCache:    make(map[string]float64),
		logger: logger.With(
			zap.Int64("account_id", account.ID),
			zap.String("account", account.Name)),
	}, nil
}

func (t *AccountTrader) AccountID() int64 { return t.accountID }

// signatureType selects the proxy-wallet scheme when a funder address
// differs from the signing EOA.
func (t *AccountTrader) signatureType() model.SignatureType {
	if t.proxy != t.address {
		return model.POLY_PROXY
	}
	return model.EOA
}
