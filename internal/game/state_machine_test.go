package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/models"
)

func TestTransition_Table(t *testing.T) {
	tc := TransitionContext{CurrentRound: 1, TotalRounds: 5, EnableTextInput: true}

	tests := []struct {
		name    string
		state   string
		action  Action
		want    string
		wantErr bool
	}{
		{"大厅开局", models.SessionStateLobby, ActionStart, models.SessionStateReady, false},
		{"就绪放歌", models.SessionStateReady, ActionPlay, models.SessionStatePlaying, false},
		{"播放中抢答", models.SessionStatePlaying, ActionBuzz, models.SessionStateBuzzed, false},
		{"播放中提交答案", models.SessionStatePlaying, ActionSubmit, models.SessionStateSubmitted, false},
		{"已提交继续提交", models.SessionStateSubmitted, ActionSubmit, models.SessionStateSubmitted, false},
		{"抢答后判定", models.SessionStateBuzzed, ActionJudge, models.SessionStateReveal, false},
		{"提交后判定", models.SessionStateSubmitted, ActionJudge, models.SessionStateReveal, false},
		{"无人抢答公布", models.SessionStatePlaying, ActionReveal, models.SessionStateReveal, false},
		{"公布后下一回合", models.SessionStateReveal, ActionNextRound, models.SessionStateReady, false},
		{"播放中结束", models.SessionStatePlaying, ActionFinish, models.SessionStateFinished, false},
		{"公布后结束", models.SessionStateReveal, ActionFinish, models.SessionStateFinished, false},

		// 非法流转
		{"大厅不能放歌", models.SessionStateLobby, ActionPlay, "", true},
		{"大厅不能结束", models.SessionStateLobby, ActionFinish, "", true},
		{"就绪不能抢答", models.SessionStateReady, ActionBuzz, "", true},
		{"公布后不能抢答", models.SessionStateReveal, ActionBuzz, "", true},
		{"公布后不能再判定", models.SessionStateReveal, ActionJudge, "", true},
		{"终态后全部拒绝", models.SessionStateFinished, ActionPlay, "", true},
		{"终态后不能再结束", models.SessionStateFinished, ActionFinish, "", true},
		{"播放中不能开局", models.SessionStatePlaying, ActionStart, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.action, tc)
			if tt.wantErr {
				assert.NotNil(t, err)
				// 被拒的动作带回当前状态，客户端据此重新同步
				assert.Equal(t, tt.state, err.State)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransition_LastRoundGuards(t *testing.T) {
	last := TransitionContext{CurrentRound: 5, TotalRounds: 5}

	// 最后一回合公布后再推进解析为直接结算
	next, err := Transition(models.SessionStateReveal, ActionNextRound, last)
	assert.Nil(t, err)
	assert.Equal(t, models.SessionStateFinished, next)

	// 回合打满后不能再放歌
	_, err = Transition(models.SessionStateReady, ActionPlay, last)
	assert.NotNil(t, err)

	// 结束始终允许
	next, err = Transition(models.SessionStateReveal, ActionFinish, last)
	assert.Nil(t, err)
	assert.Equal(t, models.SessionStateFinished, next)
}

func TestTransition_TextInputGuard(t *testing.T) {
	tc := TransitionContext{CurrentRound: 1, TotalRounds: 5, EnableTextInput: false}

	_, err := Transition(models.SessionStatePlaying, ActionSubmit, tc)
	assert.NotNil(t, err)
	assert.Equal(t, apperrors.ErrTextInputDisabled, err.Code)

	// 抢答不受文字开关影响
	_, err2 := Transition(models.SessionStatePlaying, ActionBuzz, tc)
	assert.Nil(t, err2)
}

func TestFromStates(t *testing.T) {
	assert.Equal(t, []string{models.SessionStateLobby}, FromStates(ActionStart))
	assert.Len(t, FromStates(ActionFinish), 5)
	assert.Nil(t, FromStates(Action("unknown")))
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(models.SessionStateFinished))
	assert.False(t, IsTerminal(models.SessionStateReveal))
	assert.False(t, IsTerminal(models.SessionStateLobby))
}
