package game

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wfunc/music-quiz/internal/config"
	"github.com/wfunc/music-quiz/internal/models"
)

func newTestSelector() *Selector {
	return NewSelector(rand.New(rand.NewSource(1)), &config.SelectorConfig{ExpandRange: 15})
}

// makeTrack 指定热度和艺人的测试曲目
func makeTrack(id uint, popularity int, artistIDs ...uint) *models.Track {
	t := &models.Track{
		Title:      fmt.Sprintf("曲目%d", id),
		Popularity: popularity,
	}
	t.ID = id
	for _, aid := range artistIDs {
		a := models.Artist{Name: fmt.Sprintf("艺人%d", aid)}
		a.ID = aid
		t.Artists = append(t.Artists, a)
	}
	return t
}

func TestPopularityBand(t *testing.T) {
	min, max := PopularityBand("easy")
	assert.Equal(t, 75, min)
	assert.Equal(t, 100, max)

	min, max = PopularityBand("expert")
	assert.Equal(t, 0, min)
	assert.Equal(t, 50, max)

	// 未知难度按any
	min, max = PopularityBand("乱填")
	assert.Equal(t, 0, min)
	assert.Equal(t, 100, max)
}

func TestPick_InBand(t *testing.T) {
	s := newTestSelector()
	tracks := []*models.Track{
		makeTrack(1, 90, 1),
		makeTrack(2, 30, 2),
		makeTrack(3, 85, 3),
	}

	picked := s.Pick(tracks, "easy")
	require.NotNil(t, picked)
	assert.GreaterOrEqual(t, picked.Popularity, 75)
}

func TestPick_NoRepeatTrack(t *testing.T) {
	s := newTestSelector()
	tracks := []*models.Track{
		makeTrack(1, 90, 1),
		makeTrack(2, 88, 2),
	}

	first := s.Pick(tracks, "easy")
	second := s.Pick(tracks, "easy")
	require.NotNil(t, first)
	require.NotNil(t, second)
	assert.NotEqual(t, first.ID, second.ID)

	// 曲目耗尽
	assert.Nil(t, s.Pick(tracks, "easy"))
}

func TestPick_AvoidsRepeatArtist(t *testing.T) {
	s := newTestSelector()
	// 艺人1有两首高热度曲，艺人2只有一首
	tracks := []*models.Track{
		makeTrack(1, 95, 1),
		makeTrack(2, 90, 1),
		makeTrack(3, 80, 2),
	}

	first := s.Pick(tracks, "easy")
	second := s.Pick(tracks, "easy")
	require.NotNil(t, first)
	require.NotNil(t, second)

	// 前两首必然覆盖两位艺人
	assert.NotEqual(t, first.Artists[0].ID, second.Artists[0].ID)

	// 第三首只能重复艺人1，三级回退放行
	third := s.Pick(tracks, "easy")
	require.NotNil(t, third)
}

func TestPick_CollaborationMarksAllArtists(t *testing.T) {
	s := newTestSelector()
	tracks := []*models.Track{
		makeTrack(1, 90, 1, 2), // 合作曲
		makeTrack(2, 88, 2),
		makeTrack(3, 85, 3),
	}

	s.usedTracks[1] = true
	s.usedArtists[1] = true
	s.usedArtists[2] = true

	// 艺人2已通过合作曲出现过，优先选艺人3
	picked := s.Pick(tracks, "easy")
	require.NotNil(t, picked)
	assert.Equal(t, uint(3), picked.ID)
}

func TestPick_ExpandRangeFallback(t *testing.T) {
	s := newTestSelector()
	// easy区间[75,100]无曲，放宽15后[60,100]命中
	tracks := []*models.Track{
		makeTrack(1, 65, 1),
		makeTrack(2, 20, 2),
	}

	picked := s.Pick(tracks, "easy")
	require.NotNil(t, picked)
	assert.Equal(t, uint(1), picked.ID)
}

func TestPick_AnyTrackLastResort(t *testing.T) {
	s := newTestSelector()
	// 全部曲目都在区间外且放宽也不够
	tracks := []*models.Track{
		makeTrack(1, 5, 1),
	}

	picked := s.Pick(tracks, "easy")
	require.NotNil(t, picked)
	assert.Equal(t, uint(1), picked.ID)
}

func TestPickN(t *testing.T) {
	s := newTestSelector()
	tracks := make([]*models.Track, 0, 10)
	for i := uint(1); i <= 10; i++ {
		tracks = append(tracks, makeTrack(i, 50+int(i), i))
	}

	picked := s.PickN(tracks, "normal", 5)
	assert.Len(t, picked, 5)

	seen := make(map[uint]bool)
	for _, track := range picked {
		assert.False(t, seen[track.ID], "不应重复选曲")
		seen[track.ID] = true
	}

	// 要求超过存量时返回已有的
	rest := s.PickN(tracks, "normal", 100)
	assert.Len(t, rest, 5)
}
