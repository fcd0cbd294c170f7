// Package escrow 提供托管账户管理器
// 负责与SFX执行绑定的资金预留、分账与释放；
// 接收方份额按轮次累积，由受益人主动领取
package escrow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	circuitconfig "github.com/xchain/v1/internal/config/circuit"
	"github.com/xchain/v1/pkg/interfaces/core"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/log"
	"github.com/xchain/v1/pkg/interfaces/infrastructure/storage"
	"github.com/xchain/v1/pkg/types"
	"golang.org/x/crypto/blake2b"
)

// 存储键格式
const (
	depositKeyPrefix = "esc:dep:"
	balanceKeyPrefix = "esc:bal:"
	claimKeyPrefix   = "esc:claim:"
	roundKey         = "esc:round"
)

// 系统账户：托管账户与罚没金库
var (
	EscrowAccount        = systemAccount("xchain/escrow")
	SlashTreasuryAccount = systemAccount("xchain/slash-treasury")
)

func systemAccount(tag string) types.AccountID {
	var out types.AccountID
	sum := blake2b.Sum256([]byte(tag))
	copy(out[:], sum[:])
	return out
}

// Manager 托管账户管理器，实现core.AccountManager接口
type Manager struct {
	mu     sync.Mutex
	store  storage.KVStore
	config *circuitconfig.Config
	logger log.Logger
}

// NewManager 创建托管账户管理器
func NewManager(store storage.KVStore, config *circuitconfig.Config, logger log.Logger) *Manager {
	return &Manager{store: store, config: config, logger: logger}
}

func depositKey(chargeID string) []byte {
	return []byte(depositKeyPrefix + chargeID)
}

func balanceKey(account types.AccountID) []byte {
	return []byte(balanceKeyPrefix + account.String())
}

func claimKey(round uint32, account types.AccountID) []byte {
	return []byte(fmt.Sprintf("%s%010d:%s", claimKeyPrefix, round, account.String()))
}

// txBalance 事务内读取账户余额
func txBalance(tx storage.Transaction, account types.AccountID) (types.Balance, error) {
	value, err := tx.Get(balanceKey(account))
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	var balance types.Balance
	if err := json.Unmarshal(value, &balance); err != nil {
		return 0, fmt.Errorf("解析账户余额失败: %w", err)
	}
	return balance, nil
}

func txSetBalance(tx storage.Transaction, account types.AccountID, balance types.Balance) error {
	value, err := json.Marshal(balance)
	if err != nil {
		return err
	}
	return tx.Set(balanceKey(account), value)
}

// txTransfer 事务内账户间划转
func txTransfer(tx storage.Transaction, from, to types.AccountID, amount types.Balance) error {
	if amount == 0 {
		return nil
	}
	fromBal, err := txBalance(tx, from)
	if err != nil {
		return err
	}
	if fromBal < amount {
		return fmt.Errorf("%w: account=%s have=%d need=%d", ErrInsufficientBalance, from.String(), fromBal, amount)
	}
	toBal, err := txBalance(tx, to)
	if err != nil {
		return err
	}
	if err := txSetBalance(tx, from, fromBal-amount); err != nil {
		return err
	}
	return txSetBalance(tx, to, toBal+amount)
}

// Credit 向账户注入余额（宿主侧入金入口，不属于核心操作面）
func (m *Manager) Credit(ctx context.Context, account types.AccountID, amount types.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		balance, err := txBalance(tx, account)
		if err != nil {
			return err
		}
		return txSetBalance(tx, account, balance+amount)
	})
}

// Deposit 从付款方转入托管账户并登记押金
func (m *Manager) Deposit(ctx context.Context, chargeID string, payee types.PayeeInfo, recipient types.AccountID, amount types.Balance, assetID *types.AssetID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		existing, err := tx.Get(depositKey(chargeID))
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: %s", ErrAlreadyRegistered, chargeID)
		}
		if err := txTransfer(tx, payee.Account, EscrowAccount, amount); err != nil {
			return err
		}
		deposit := &types.Deposit{
			Depositor: payee,
			Recipient: recipient,
			Amount:    amount,
			AssetID:   assetID,
			ChargeID:  chargeID,
			CreatedAt: time.Now().UTC(),
		}
		value, err := json.Marshal(deposit)
		if err != nil {
			return fmt.Errorf("序列化押金记录失败: %w", err)
		}
		return tx.Set(depositKey(chargeID), value)
	})
}

// loadDeposit 事务内读取押金记录
func loadDeposit(tx storage.Transaction, chargeID string) (*types.Deposit, error) {
	value, err := tx.Get(depositKey(chargeID))
	if err != nil {
		return nil, err
	}
	if value == nil {
		return nil, fmt.Errorf("%w: %s", ErrDepositNotFound, chargeID)
	}
	var deposit types.Deposit
	if err := json.Unmarshal(value, &deposit); err != nil {
		return nil, fmt.Errorf("解析押金记录失败: %w", err)
	}
	return &deposit, nil
}

// AssignRecipient 更新未结押金的接收方（竞价定标后绑定中标执行者）
func (m *Manager) AssignRecipient(ctx context.Context, chargeID string, recipient types.AccountID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		deposit, err := loadDeposit(tx, chargeID)
		if err != nil {
			return err
		}
		deposit.Recipient = recipient
		value, err := json.Marshal(deposit)
		if err != nil {
			return fmt.Errorf("序列化押金记录失败: %w", err)
		}
		return tx.Set(depositKey(chargeID), value)
	})
}

// txAccrueClaimable 将接收方份额计入当轮可领取
func (m *Manager) txAccrueClaimable(tx storage.Transaction, beneficiary types.AccountID, amount types.Balance, assetID *types.AssetID) error {
	if amount == 0 {
		return nil
	}
	round, err := txCurrentRound(tx)
	if err != nil {
		return err
	}
	key := claimKey(round, beneficiary)
	claimable := &types.Claimable{Beneficiary: beneficiary, Round: round, AssetID: assetID}
	value, err := tx.Get(key)
	if err != nil {
		return err
	}
	if value != nil {
		if err := json.Unmarshal(value, claimable); err != nil {
			return fmt.Errorf("解析可领取记录失败: %w", err)
		}
	}
	claimable.Amount += amount
	out, err := json.Marshal(claimable)
	if err != nil {
		return err
	}
	return tx.Set(key, out)
}

// Finalize 按结算结果对押金分账并关闭记录
// 付款方份额即时退回；接收方份额计入当轮可领取；
// UnexpectedFailure时付款方分文不取：一半归接收方，一半罚没入金库
func (m *Manager) Finalize(ctx context.Context, chargeID string, outcome types.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		deposit, err := loadDeposit(tx, chargeID)
		if err != nil {
			return err
		}

		var payeeShare, recipientShare, slashShare types.Balance
		switch outcome {
		case types.OutcomeNone:
			recipientShare = deposit.Amount
		case types.OutcomeContractReverted:
			payeeShare = deposit.Amount * types.Balance(m.config.GetRevertSplitRequesterPct()) / 100
			recipientShare = deposit.Amount - payeeShare
		case types.OutcomeUnexpectedFailure:
			recipientShare = deposit.Amount / 2
			slashShare = deposit.Amount - recipientShare
		default:
			return fmt.Errorf("未知结算结果: %d", outcome)
		}

		if err := txTransfer(tx, EscrowAccount, deposit.Depositor.Account, payeeShare); err != nil {
			return err
		}
		if err := txTransfer(tx, EscrowAccount, SlashTreasuryAccount, slashShare); err != nil {
			return err
		}
		// 接收方份额留在托管账户内，领取时划出
		if err := m.txAccrueClaimable(tx, deposit.Recipient, recipientShare, deposit.AssetID); err != nil {
			return err
		}
		if err := tx.Delete(depositKey(chargeID)); err != nil {
			return err
		}
		m.logger.Debugf("押金结算完成: charge=%s outcome=%s payee=%d recipient=%d slash=%d",
			chargeID, outcome, payeeShare, recipientShare, slashShare)
		return nil
	})
}

// Refund 全额退回押金并关闭记录
func (m *Manager) Refund(ctx context.Context, chargeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		deposit, err := loadDeposit(tx, chargeID)
		if err != nil {
			return err
		}
		if err := txTransfer(tx, EscrowAccount, deposit.Depositor.Account, deposit.Amount); err != nil {
			return err
		}
		return tx.Delete(depositKey(chargeID))
	})
}

// Issue 从托管账户直接划转到接收方
func (m *Manager) Issue(ctx context.Context, recipient types.AccountID, amount types.Balance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		return txTransfer(tx, EscrowAccount, recipient, amount)
	})
}

// BalanceOf 查询账户余额
func (m *Manager) BalanceOf(ctx context.Context, account types.AccountID) (types.Balance, error) {
	value, err := m.store.Get(ctx, balanceKey(account))
	if err != nil {
		return 0, err
	}
	if value == nil {
		return 0, nil
	}
	var balance types.Balance
	if err := json.Unmarshal(value, &balance); err != nil {
		return 0, fmt.Errorf("解析账户余额失败: %w", err)
	}
	return balance, nil
}

// EscrowBalance 查询托管账户总余额
func (m *Manager) EscrowBalance(ctx context.Context) (types.Balance, error) {
	return m.BalanceOf(ctx, EscrowAccount)
}

// OpenDeposits 列出全部未结押金
func (m *Manager) OpenDeposits(ctx context.Context) ([]*types.Deposit, error) {
	entries, err := m.store.PrefixScan(ctx, []byte(depositKeyPrefix))
	if err != nil {
		return nil, err
	}
	out := make([]*types.Deposit, 0, len(entries))
	for key, value := range entries {
		var deposit types.Deposit
		if err := json.Unmarshal(value, &deposit); err != nil {
			return nil, fmt.Errorf("解析押金记录失败: key=%s: %w", key, err)
		}
		out = append(out, &deposit)
	}
	return out, nil
}

var _ core.AccountManager = (*Manager)(nil)
