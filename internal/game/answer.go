package game

import (
	"strings"
	"unicode"
)

// MatchTitle 文字答案与曲名的归一化比对
//
// 大小写、空白、标点一律忽略，括号尾注（Live、Remastered之类）
// 和 feat. 串也剔掉再比。只做预判，最终裁决权在主持人。
func MatchTitle(answer, title string) bool {
	a := normalizeTitle(answer)
	t := normalizeTitle(title)
	if a == "" || t == "" {
		return false
	}
	return a == t
}

// normalizeTitle 归一化曲名
func normalizeTitle(s string) string {
	s = strings.ToLower(s)

	// 去掉第一个左括号起的尾注
	for _, open := range []string{"(", "[", "（", "【"} {
		if idx := strings.Index(s, open); idx >= 0 {
			s = s[:idx]
		}
	}

	// 去掉 feat. 段
	for _, marker := range []string{"feat.", "feat ", "ft.", "featuring"} {
		if idx := strings.Index(s, marker); idx >= 0 {
			s = s[:idx]
		}
	}

	var b strings.Builder
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
