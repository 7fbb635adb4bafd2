package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/wfunc/music-quiz/internal/models"
	"github.com/wfunc/music-quiz/internal/repository"
	"gorm.io/gorm"
)

// PackServiceTestSuite 曲包服务测试套件
type PackServiceTestSuite struct {
	suite.Suite
	db    *gorm.DB
	repos *repository.Manager
	packs PackService
}

func (suite *PackServiceTestSuite) SetupTest() {
	suite.db = repository.SetupTestDB()
	suite.repos = repository.NewManager(suite.db)
	suite.packs = NewPackService(suite.repos)
}

func (suite *PackServiceTestSuite) TearDownTest() {
	repository.CleanupTestDB(suite.db)
}

// TestImport_ArtistDedup 同一艺人跨曲目只建一行
func (suite *PackServiceTestSuite) TestImport_ArtistDedup() {
	ctx := context.Background()
	t := suite.T()

	pack, err := suite.packs.Import(ctx, &PackImportRequest{
		Name:   "周杰伦精选",
		Source: "playlist",
		Tracks: []TrackImport{
			{
				Title:      "晴天",
				Popularity: 95,
				PreviewURL: "https://example.com/p/1",
				Artists:    []ArtistImport{{Name: "周杰伦", ExternalID: "jay-chou"}},
			},
			{
				Title:      "夜曲",
				Popularity: 92,
				PreviewURL: "https://example.com/p/2",
				Artists:    []ArtistImport{{Name: "周杰伦", ExternalID: "jay-chou"}},
			},
			{
				Title:      "珊瑚海",
				Popularity: 80,
				PreviewURL: "https://example.com/p/3",
				Artists: []ArtistImport{
					{Name: "周杰伦", ExternalID: "jay-chou"},
					{Name: "Lara梁心颐", ExternalID: "lara-liang"},
				},
			},
		},
	})
	suite.Require().NoError(err)
	assert.NotZero(t, pack.ID)

	var artistCount int64
	suite.Require().NoError(suite.db.Model(&models.Artist{}).Count(&artistCount).Error)
	assert.Equal(t, int64(2), artistCount)

	tracks, err := suite.repos.Pack().AllTracks(ctx, pack.ID)
	suite.Require().NoError(err)
	suite.Require().Len(tracks, 3)

	// 合作曲挂两位艺人
	for _, track := range tracks {
		if track.Title == "珊瑚海" {
			assert.Len(t, track.Artists, 2)
		}
	}
}

// TestImport_Validation 空曲包与热度钳制
func (suite *PackServiceTestSuite) TestImport_Validation() {
	ctx := context.Background()

	_, err := suite.packs.Import(ctx, &PackImportRequest{Name: "空包", Tracks: nil})
	suite.Require().Error(err)

	pack, err := suite.packs.Import(ctx, &PackImportRequest{
		Name: "越界热度",
		Tracks: []TrackImport{
			{Title: "超标", Popularity: 150, PreviewURL: "https://example.com/p/1"},
			{Title: "负值", Popularity: -5, PreviewURL: "https://example.com/p/2"},
		},
	})
	suite.Require().NoError(err)

	tracks, err := suite.repos.Pack().AllTracks(ctx, pack.ID)
	suite.Require().NoError(err)
	for _, track := range tracks {
		assert.GreaterOrEqual(suite.T(), track.Popularity, 0)
		assert.LessOrEqual(suite.T(), track.Popularity, 100)
	}
}

// TestList 分页列表
func (suite *PackServiceTestSuite) TestList() {
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		_, err := suite.packs.Import(ctx, &PackImportRequest{
			Name: "曲包",
			Tracks: []TrackImport{
				{Title: "曲目", PreviewURL: "https://example.com/p"},
			},
		})
		suite.Require().NoError(err)
	}

	packs, p, err := suite.packs.List(ctx, 1, 2)
	suite.Require().NoError(err)
	assert.Len(suite.T(), packs, 2)
	assert.Equal(suite.T(), int64(3), p.Total)
}

func TestPackServiceTestSuite(t *testing.T) {
	suite.Run(t, new(PackServiceTestSuite))
}
