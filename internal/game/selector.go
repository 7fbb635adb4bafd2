package game

import (
	"math/rand"

	"github.com/wfunc/music-quiz/internal/config"
	"github.com/wfunc/music-quiz/internal/models"
)

// 难度对应的热度区间。热度越高越耳熟，越好猜。
var difficultyBands = map[string][2]int{
	"easy":   {75, 100},
	"normal": {50, 100},
	"hard":   {25, 75},
	"expert": {0, 50},
	"any":    {0, 100},
}

// PopularityBand 难度名对应的热度区间，未知难度按any处理
func PopularityBand(difficulty string) (min, max int) {
	band, ok := difficultyBands[difficulty]
	if !ok {
		band = difficultyBands["any"]
	}
	return band[0], band[1]
}

// Selector 选曲器
//
// 在一次开局内复用：记住已选曲目和已出现的艺人，
// 让整场游戏尽量不重复同一艺人。
type Selector struct {
	rng         *rand.Rand
	expandRange int
	usedTracks  map[uint]bool
	usedArtists map[uint]bool
}

// NewSelector 创建选曲器
func NewSelector(rng *rand.Rand, cfg *config.SelectorConfig) *Selector {
	return &Selector{
		rng:         rng,
		expandRange: cfg.ExpandRange,
		usedTracks:  make(map[uint]bool),
		usedArtists: make(map[uint]bool),
	}
}

// Pick 为一个回合选曲，四级回退：
//
//  1. 难度区间内、艺人未出现过
//  2. 区间向两侧各扩 expandRange、艺人未出现过
//  3. 难度区间内、不限艺人
//  4. 任意未用过的曲目
//
// 候选耗尽（曲包内曲目全部用完）返回nil。
func (s *Selector) Pick(tracks []*models.Track, difficulty string) *models.Track {
	min, max := PopularityBand(difficulty)

	expMin := min - s.expandRange
	if expMin < 0 {
		expMin = 0
	}
	expMax := max + s.expandRange
	if expMax > 100 {
		expMax = 100
	}

	tiers := []func(t *models.Track) bool{
		func(t *models.Track) bool {
			return s.inBand(t, min, max) && !s.artistSeen(t)
		},
		func(t *models.Track) bool {
			return s.inBand(t, expMin, expMax) && !s.artistSeen(t)
		},
		func(t *models.Track) bool {
			return s.inBand(t, min, max)
		},
		func(t *models.Track) bool {
			return true
		},
	}

	for _, accept := range tiers {
		var candidates []*models.Track
		for _, t := range tracks {
			if s.usedTracks[t.ID] {
				continue
			}
			if accept(t) {
				candidates = append(candidates, t)
			}
		}
		if len(candidates) == 0 {
			continue
		}

		picked := candidates[s.rng.Intn(len(candidates))]
		s.mark(picked)
		return picked
	}

	return nil
}

// PickN 连续选n首，不足n首时返回已选到的部分
func (s *Selector) PickN(tracks []*models.Track, difficulty string, n int) []*models.Track {
	out := make([]*models.Track, 0, n)
	for i := 0; i < n; i++ {
		t := s.Pick(tracks, difficulty)
		if t == nil {
			break
		}
		out = append(out, t)
	}
	return out
}

func (s *Selector) inBand(t *models.Track, min, max int) bool {
	return t.Popularity >= min && t.Popularity <= max
}

// artistSeen 曲目的任一艺人是否已出现过（按稳定ID判断，合作曲会命中多位）
func (s *Selector) artistSeen(t *models.Track) bool {
	for _, a := range t.Artists {
		if s.usedArtists[a.ID] {
			return true
		}
	}
	return false
}

func (s *Selector) mark(t *models.Track) {
	s.usedTracks[t.ID] = true
	for _, a := range t.Artists {
		s.usedArtists[a.ID] = true
	}
}
