package game

import (
	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/models"
)

// Action 玩家或主持人触发的动作
type Action string

const (
	ActionStart     Action = "start"      // 主持人开局
	ActionPlay      Action = "play"       // 主持人放歌，回合计时开始
	ActionBuzz      Action = "buzz"       // 玩家抢答
	ActionSubmit    Action = "submit"     // 文字模式提交答案
	ActionJudge     Action = "judge"      // 主持人判定
	ActionReveal    Action = "reveal"     // 公布答案（无人抢答时跳过判定）
	ActionNextRound Action = "next_round" // 进入下一回合
	ActionFinish    Action = "finish"     // 主持人结束游戏
)

// TransitionContext 状态流转所需的会话快照
type TransitionContext struct {
	CurrentRound    int
	TotalRounds     int
	EnableTextInput bool
}

// transition 单条流转规则
type transition struct {
	from []string
	to   string
	// resolve 依据上下文改写目标状态，nil时固定为to
	resolve func(tc TransitionContext) string
	// guard 返回nil表示放行
	guard func(tc TransitionContext) *apperrors.AppError
}

// 全部流转规则表。动作不在表内、或当前状态不在from内一律拒绝，
// 不存在"默认放行"的路径。
var transitions = map[Action]transition{
	ActionStart: {
		from: []string{models.SessionStateLobby},
		to:   models.SessionStateReady,
	},
	ActionPlay: {
		from: []string{models.SessionStateReady},
		to:   models.SessionStatePlaying,
		guard: func(tc TransitionContext) *apperrors.AppError {
			if tc.CurrentRound >= tc.TotalRounds {
				return apperrors.New(apperrors.ErrStateTransition)
			}
			return nil
		},
	},
	ActionBuzz: {
		from: []string{models.SessionStatePlaying},
		to:   models.SessionStateBuzzed,
	},
	ActionSubmit: {
		from: []string{models.SessionStatePlaying, models.SessionStateSubmitted},
		to:   models.SessionStateSubmitted,
		guard: func(tc TransitionContext) *apperrors.AppError {
			if !tc.EnableTextInput {
				return apperrors.New(apperrors.ErrTextInputDisabled)
			}
			return nil
		},
	},
	ActionJudge: {
		from: []string{models.SessionStateBuzzed, models.SessionStateSubmitted},
		to:   models.SessionStateReveal,
	},
	ActionReveal: {
		from: []string{models.SessionStatePlaying},
		to:   models.SessionStateReveal,
	},
	ActionNextRound: {
		from: []string{models.SessionStateReveal},
		to:   models.SessionStateReady,
		// 末回合公布后再推进直接结算
		resolve: func(tc TransitionContext) string {
			if tc.CurrentRound >= tc.TotalRounds {
				return models.SessionStateFinished
			}
			return models.SessionStateReady
		},
	},
	ActionFinish: {
		from: []string{
			models.SessionStateReady,
			models.SessionStatePlaying,
			models.SessionStateBuzzed,
			models.SessionStateSubmitted,
			models.SessionStateReveal,
		},
		to: models.SessionStateFinished,
	},
}

// Transition 计算动作在当前状态下的目标状态
//
// 纯函数，不碰数据库：真正的互斥由仓储层的条件更新保证，
// 这里只负责提前拒绝明显非法的请求并给出带当前状态的错误。
func Transition(state string, action Action, tc TransitionContext) (string, *apperrors.AppError) {
	rule, ok := transitions[action]
	if !ok {
		return "", apperrors.New(apperrors.ErrStateTransition).WithState(state)
	}

	allowed := false
	for _, from := range rule.from {
		if from == state {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", apperrors.New(apperrors.ErrStateTransition).WithState(state)
	}

	if rule.guard != nil {
		if err := rule.guard(tc); err != nil {
			return "", err.WithState(state)
		}
	}

	if rule.resolve != nil {
		return rule.resolve(tc), nil
	}
	return rule.to, nil
}

// FromStates 动作允许的起始状态集合，仓储层条件更新的 WHERE state IN 参数
func FromStates(action Action) []string {
	rule, ok := transitions[action]
	if !ok {
		return nil
	}
	out := make([]string, len(rule.from))
	copy(out, rule.from)
	return out
}

// IsTerminal 是否终态
func IsTerminal(state string) bool {
	return state == models.SessionStateFinished
}
