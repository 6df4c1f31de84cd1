package stellar

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"

	"github.com/pesaflow/remit/internal/core/ledger"
	"github.com/pesaflow/remit/internal/core/logger"
	"github.com/pesaflow/remit/pkg/config"
)

const (
	testnetHorizonURL = "https://horizon-testnet.stellar.org"
	publicHorizonURL  = "https://horizon.stellar.org"

	// Stellar text memos are capped at 28 bytes.
	maxMemoLength = 28
)

// Client talks to a Horizon server for one configured network. The
// passphrase is derived from the network selector here so a testnet client
// can never sign for the public network or vice versa.
type Client struct {
	horizon    *horizonclient.Client
	passphrase string
	baseFee    int64
	timeBounds time.Duration
	log        logger.Logger
}

func NewClient(cfg config.StellarConfig, log logger.Logger) (*Client, error) {
	var passphrase, horizonURL string
	switch cfg.Network {
	case "testnet":
		passphrase = network.TestNetworkPassphrase
		horizonURL = testnetHorizonURL
	case "public":
		passphrase = network.PublicNetworkPassphrase
		horizonURL = publicHorizonURL
	default:
		return nil, fmt.Errorf("unknown stellar network selector: %q", cfg.Network)
	}

	if cfg.HorizonURL != "" {
		horizonURL = cfg.HorizonURL
	}

	return &Client{
		horizon: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       &http.Client{Timeout: cfg.HTTPTimeout},
		},
		passphrase: passphrase,
		baseFee:    cfg.BaseFee,
		timeBounds: cfg.TimeBounds,
		log:        log,
	}, nil
}

var _ ledger.Network = (*Client)(nil)

// truncateMemo caps a text memo at the ledger's byte limit without cutting
// through a multi-byte rune.
func truncateMemo(memo string) string {
	if len(memo) <= maxMemoLength {
		return memo
	}
	cut := maxMemoLength
	for cut > 0 && !utf8.RuneStart(memo[cut]) {
		cut--
	}
	return memo[:cut]
}

func (c *Client) GenerateKeypair() (string, string, error) {
	kp, err := keypair.Random()
	if err != nil {
		return "", "", fmt.Errorf("generate keypair: %w", err)
	}
	return kp.Address(), kp.Seed(), nil
}

func (c *Client) NativeBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, &ledger.TransportError{Err: err}
	}

	account, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err != nil {
		return decimal.Zero, c.classifyAccountError(err)
	}

	raw, err := account.GetNativeBalance()
	if err != nil {
		return decimal.Zero, fmt.Errorf("read native balance: %w", err)
	}

	balance, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse native balance %q: %w", raw, err)
	}

	return balance, nil
}

func (c *Client) SendPayment(ctx context.Context, req ledger.PaymentRequest) (*ledger.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ledger.TransportError{Err: err}
	}

	kp, err := keypair.ParseFull(req.SourceSeed)
	if err != nil {
		return nil, fmt.Errorf("parse source keypair: %w", err)
	}

	sourceAccount, err := c.horizon.AccountDetail(horizonclient.AccountRequest{AccountID: kp.Address()})
	if err != nil {
		return nil, c.classifyAccountError(err)
	}

	params := txnbuild.TransactionParams{
		SourceAccount:        &sourceAccount,
		IncrementSequenceNum: true,
		BaseFee:              c.baseFee,
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(c.timeBounds.Seconds())),
		},
		Operations: []txnbuild.Operation{
			&txnbuild.Payment{
				Destination: req.Destination,
				Amount:      req.Amount.StringFixed(7),
				Asset:       txnbuild.NativeAsset{},
			},
		},
	}

	if req.Memo != "" {
		params.Memo = txnbuild.MemoText(truncateMemo(req.Memo))
	}

	tx, err := txnbuild.NewTransaction(params)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	tx, err = tx.Sign(c.passphrase, kp)
	if err != nil {
		return nil, fmt.Errorf("sign transaction: %w", err)
	}

	resp, err := c.horizon.SubmitTransaction(tx)
	if err != nil {
		return nil, c.classifySubmitError(err)
	}

	c.log.Info("payment submitted",
		logger.StringField("hash", resp.Hash),
		logger.StringField("destination", req.Destination),
		logger.StringField("amount", req.Amount.String()),
	)

	return &ledger.PaymentResult{Hash: resp.Hash}, nil
}

func (c *Client) TransactionByHash(ctx context.Context, hash string) (*ledger.TransactionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ledger.TransportError{Err: err}
	}

	tx, err := c.horizon.TransactionDetail(hash)
	if err != nil {
		if herr := horizonclient.GetError(err); herr != nil {
			if herr.Problem.Status == http.StatusNotFound {
				return nil, ledger.ErrTransactionNotFound
			}
			if herr.Problem.Status >= http.StatusInternalServerError {
				return nil, &ledger.TransportError{Err: err}
			}
			return nil, fmt.Errorf("transaction lookup: %w", err)
		}
		return nil, &ledger.TransportError{Err: err}
	}

	record := &ledger.TransactionRecord{Hash: tx.Hash, Status: ledger.TransactionSucceeded}
	if !tx.Successful {
		record.Status = ledger.TransactionFailed
		record.ResultCode = tx.ResultXdr
	}

	return record, nil
}

func (c *Client) classifyAccountError(err error) error {
	if herr := horizonclient.GetError(err); herr != nil {
		if herr.Problem.Status == http.StatusNotFound {
			return ledger.ErrAccountNotFound
		}
		if herr.Problem.Status >= http.StatusInternalServerError {
			return &ledger.TransportError{Err: err}
		}
		return fmt.Errorf("account lookup: %w", err)
	}
	return &ledger.TransportError{Err: err}
}

// classifySubmitError separates a synchronous rejection from a transport
// failure. Rejections carry Horizon's result codes verbatim for diagnosis.
func (c *Client) classifySubmitError(err error) error {
	herr := horizonclient.GetError(err)
	if herr == nil {
		return &ledger.TransportError{Err: err}
	}

	if herr.Problem.Status >= http.StatusInternalServerError {
		return &ledger.TransportError{Err: err}
	}

	var codes []string
	if rc, rcErr := herr.ResultCodes(); rcErr == nil && rc != nil {
		if rc.TransactionCode != "" {
			codes = append(codes, rc.TransactionCode)
		}
		codes = append(codes, rc.OperationCodes...)
	}

	return &ledger.RejectionError{
		ResultCodes: strings.Join(codes, ","),
		Detail:      herr.Problem.Detail,
	}
}
