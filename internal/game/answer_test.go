package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchTitle(t *testing.T) {
	tests := []struct {
		name   string
		answer string
		title  string
		want   bool
	}{
		{"完全一致", "晴天", "晴天", true},
		{"大小写无关", "yellow submarine", "Yellow Submarine", true},
		{"空白无关", " Bohemian  Rhapsody ", "Bohemian Rhapsody", true},
		{"标点无关", "Dont Stop Me Now", "Don't Stop Me Now", true},
		{"括号尾注剔除", "Hotel California", "Hotel California (Live)", true},
		{"中文括号尾注", "青花瓷", "青花瓷（现场版）", true},
		{"feat剔除", "Empire State of Mind", "Empire State of Mind feat. Alicia Keys", true},
		{"答错", "夜曲", "晴天", false},
		{"空答案", "", "晴天", false},
		{"只有标点的答案", "...", "晴天", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchTitle(tt.answer, tt.title))
		})
	}
}
