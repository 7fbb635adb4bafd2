package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/wfunc/music-quiz/internal/errors"
	"github.com/wfunc/music-quiz/internal/logger"
	"github.com/wfunc/music-quiz/internal/models"
	"github.com/wfunc/music-quiz/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PackService 曲包管理服务
type PackService interface {
	Import(ctx context.Context, req *PackImportRequest) (*models.Pack, error)
	Get(ctx context.Context, id uint) (*models.Pack, error)
	List(ctx context.Context, page, pageSize int) ([]*models.Pack, *repository.Pagination, error)
}

// TrackImport 导入的单首曲目（离线抓取工具的输出格式）
type TrackImport struct {
	Title           string         `json:"title" binding:"required"`
	Popularity      int            `json:"popularity"`
	PreviewURL      string         `json:"preview_url" binding:"required"`
	ExternalID      string         `json:"external_id"`
	ReleaseYear     int            `json:"release_year"`
	DurationSeconds int            `json:"duration_seconds"`
	Artists         []ArtistImport `json:"artists"`
}

// ArtistImport 导入的艺人
type ArtistImport struct {
	Name       string `json:"name" binding:"required"`
	ExternalID string `json:"external_id"`
}

// PackImportRequest 曲包导入参数
type PackImportRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Source      string                 `json:"source"`
	Config      map[string]interface{} `json:"config"`
	Tracks      []TrackImport          `json:"tracks" binding:"required"`
}

// packService 曲包服务实现
type packService struct {
	repos *repository.Manager
	log   *zap.Logger
}

// NewPackService 创建曲包服务
func NewPackService(repos *repository.Manager) PackService {
	return &packService{
		repos: repos,
		log:   logger.GetModuleLogger("pack"),
	}
}

// Import 导入曲包
//
// 艺人按外部ID去重：同一艺人出现在多首曲目里只建一行，
// 没有外部ID的用归一化的名字兜底。整包在一个事务里导入。
func (s *packService) Import(ctx context.Context, req *PackImportRequest) (*models.Pack, error) {
	if len(req.Tracks) == 0 {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "曲包不能为空")
	}
	if req.Source == "" {
		req.Source = "manual"
	}

	pack := &models.Pack{
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Source:      req.Source,
		Status:      "active",
		Config:      models.JSONMap(req.Config),
	}

	err := s.repos.WithTransaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Create(pack).Error; err != nil {
			return err
		}

		// 事务内的艺人缓存，避免同包内重复查询
		artistCache := make(map[string]*models.Artist)

		for _, ti := range req.Tracks {
			if ti.Popularity < 0 {
				ti.Popularity = 0
			}
			if ti.Popularity > 100 {
				ti.Popularity = 100
			}
			if ti.DurationSeconds <= 0 {
				ti.DurationSeconds = 30
			}

			track := &models.Track{
				PackID:          pack.ID,
				Title:           strings.TrimSpace(ti.Title),
				Popularity:      ti.Popularity,
				PreviewURL:      ti.PreviewURL,
				ExternalID:      ti.ExternalID,
				ReleaseYear:     ti.ReleaseYear,
				DurationSeconds: ti.DurationSeconds,
			}

			for _, ai := range ti.Artists {
				key := ai.ExternalID
				if key == "" {
					key = "name:" + strings.ToLower(strings.TrimSpace(ai.Name))
				}

				artist, ok := artistCache[key]
				if !ok {
					artist = &models.Artist{
						Name:       strings.TrimSpace(ai.Name),
						ExternalID: ai.ExternalID,
					}
					if ai.ExternalID != "" {
						if err := tx.Where("external_id = ?", ai.ExternalID).
							FirstOrCreate(artist).Error; err != nil {
							return err
						}
					} else {
						if err := tx.Where("name = ? AND external_id = ''", artist.Name).
							FirstOrCreate(artist).Error; err != nil {
							return err
						}
					}
					artistCache[key] = artist
				}
				track.Artists = append(track.Artists, *artist)
			}

			if err := tx.Create(track).Error; err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert, "曲包导入失败")
	}

	s.log.Info("曲包已导入",
		zap.Uint("pack_id", pack.ID),
		zap.String("name", pack.Name),
		zap.Int("tracks", len(req.Tracks)))

	return pack, nil
}

// Get 查询曲包
func (s *packService) Get(ctx context.Context, id uint) (*models.Pack, error) {
	pack, err := s.repos.Pack().FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.New(apperrors.ErrNotFound, "曲包不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return pack, nil
}

// List 曲包列表
func (s *packService) List(ctx context.Context, page, pageSize int) ([]*models.Pack, *repository.Pagination, error) {
	p := repository.NewPagination(page, pageSize)
	packs, err := s.repos.Pack().List(ctx, p)
	if err != nil {
		return nil, nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return packs, p, nil
}
