// 跨链交易（Xtx）记录与状态机的状态集合
package types

import "fmt"

// XtxStatus 跨链交易状态
// 状态值的大小关系用于推导Xtx整体状态（取未完成步骤的最低状态）
type XtxStatus uint8

const (
	// StatusRequested 已接收，尚未写入存储
	StatusRequested XtxStatus = iota
	// StatusPendingBidding 等待首个竞价
	StatusPendingBidding
	// StatusInBidding 竞价窗口内，至少一个SFX已有竞价
	StatusInBidding
	// StatusReady 竞价完成，全部SFX已绑定执行者
	StatusReady
	// StatusPendingExecution 当前步骤执行中
	StatusPendingExecution
	// StatusFinishedAllSteps 全部步骤完成（终态）
	StatusFinishedAllSteps
	// StatusRevertTimedOut 超时回滚（终态）
	StatusRevertTimedOut
	// StatusRevertKill 竞价失败回滚（终态）
	StatusRevertKill
	// StatusKilled 外部强制终止（终态）
	StatusKilled
)

// String 返回状态的字符串表示
func (s XtxStatus) String() string {
	switch s {
	case StatusRequested:
		return "Requested"
	case StatusPendingBidding:
		return "PendingBidding"
	case StatusInBidding:
		return "InBidding"
	case StatusReady:
		return "Ready"
	case StatusPendingExecution:
		return "PendingExecution"
	case StatusFinishedAllSteps:
		return "FinishedAllSteps"
	case StatusRevertTimedOut:
		return "RevertTimedOut"
	case StatusRevertKill:
		return "RevertKill"
	case StatusKilled:
		return "Killed"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(s))
	}
}

// IsTerminal 检查是否为终态
// 终态的Xtx永不再被任何操作改变
func (s XtxStatus) IsTerminal() bool {
	switch s {
	case StatusFinishedAllSteps, StatusRevertTimedOut, StatusRevertKill, StatusKilled:
		return true
	default:
		return false
	}
}

// Cause 终止原因
type Cause uint8

const (
	// CauseTimeout 超过revert_deadline
	CauseTimeout Cause = iota
	// CauseDroppedAtBidding 竞价窗口结束时存在无竞价SFX
	CauseDroppedAtBidding
	// CauseIntentionalKill root强制终止
	CauseIntentionalKill
)

// String 返回原因的字符串表示
func (c Cause) String() string {
	switch c {
	case CauseTimeout:
		return "timeout"
	case CauseDroppedAtBidding:
		return "dropped_at_bidding"
	case CauseIntentionalKill:
		return "intentional_kill"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// StepsCount 步骤计数：当前步骤与总步骤数
type StepsCount struct {
	Current uint32 `json:"current"` // 当前执行到的步骤
	Total   uint32 `json:"total"`   // 总步骤数
}

// Xtx 跨链交易记录
// FSX列表独立存储（arena+index模式），通过XtxID关联
type Xtx struct {
	ID             XtxID       `json:"id"`              // 交易标识
	Requester      AccountID   `json:"requester"`       // 请求者
	RequesterNonce uint32      `json:"requester_nonce"` // 请求者提交计数
	Status         XtxStatus   `json:"status"`          // 当前状态
	SpeedMode      SpeedMode   `json:"speed_mode"`      // 确认速度模式
	TimeoutsAt     BlockNumber `json:"timeouts_at"`     // 硬回滚截止区块
	StepsCnt       StepsCount  `json:"steps_cnt"`       // 步骤计数
	Cause          *Cause      `json:"cause,omitempty"` // 终止原因（仅终态）
}

// allowedTransitions 状态迁移边表
// 键为起始状态，值为允许到达的状态集合
var allowedTransitions = map[XtxStatus][]XtxStatus{
	StatusRequested:        {StatusPendingBidding},
	StatusPendingBidding:   {StatusInBidding, StatusReady, StatusRevertKill, StatusRevertTimedOut, StatusKilled},
	StatusInBidding:        {StatusInBidding, StatusReady, StatusRevertKill, StatusRevertTimedOut, StatusKilled},
	StatusReady:            {StatusPendingExecution, StatusFinishedAllSteps, StatusRevertTimedOut, StatusKilled},
	StatusPendingExecution: {StatusPendingExecution, StatusFinishedAllSteps, StatusRevertTimedOut, StatusKilled},
}

// CheckTransition 校验状态迁移是否在边表允许范围内
// 终态不可再迁移；同状态迁移视为无操作并放行
func CheckTransition(from, to XtxStatus) error {
	if from == to {
		return nil
	}
	if from.IsTerminal() {
		return fmt.Errorf("终态%s不可再迁移到%s", from, to)
	}
	for _, allowed := range allowedTransitions[from] {
		if allowed == to {
			return nil
		}
	}
	return fmt.Errorf("不允许的状态迁移: %s -> %s", from, to)
}

// DetermineStatus 根据FSX集合推导Xtx应处的状态
// 规则与Circuit状态机一致：取未完成步骤的最低状态
func DetermineStatus(steps [][]*FullSideEffect, current XtxStatus) XtxStatus {
	if current.IsTerminal() {
		return current
	}
	// 竞价阶段：根据是否有竞价推导
	if current == StatusPendingBidding || current == StatusInBidding {
		anyBid := false
		for _, step := range steps {
			for _, fsx := range step {
				if fsx.BestBid != nil {
					anyBid = true
				}
			}
		}
		if anyBid {
			return StatusInBidding
		}
		return StatusPendingBidding
	}
	return current
}
