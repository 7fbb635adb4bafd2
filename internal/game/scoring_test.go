package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/wfunc/music-quiz/internal/config"
)

var testScoring = config.ScoringConfig{
	MaxPoints:      100,
	FloorPoints:    10,
	DecayPerSecond: 10,
	WrongPenalty:   -10,
}

func TestScore_Correct(t *testing.T) {
	tests := []struct {
		name    string
		elapsed float64
		want    int
	}{
		{"秒抢满分", 0.0, 100},
		{"一秒内满分", 0.99, 100},
		{"整一秒降一档", 1.0, 90},
		{"三秒半", 3.5, 70},
		{"九秒踩到保底", 9.0, 10},
		{"远超衰减区间仍有保底", 25.0, 10},
		{"负耗时按零处理", -1.0, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Score(tt.elapsed, true, &testScoring))
		})
	}
}

func TestScore_Wrong(t *testing.T) {
	// 答错固定扣分，快慢无关
	assert.Equal(t, -10, Score(0.5, false, &testScoring))
	assert.Equal(t, -10, Score(20.0, false, &testScoring))
}

func TestValidElapsed(t *testing.T) {
	assert.True(t, ValidElapsed(0, 300))
	assert.True(t, ValidElapsed(299.9, 300))
	assert.True(t, ValidElapsed(300, 300))
	assert.False(t, ValidElapsed(-0.01, 300))
	assert.False(t, ValidElapsed(300.01, 300))
}
