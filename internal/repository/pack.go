package repository

import (
	"context"

	"github.com/wfunc/music-quiz/internal/models"
	"gorm.io/gorm"
)

// PackRepository 曲包仓储接口
type PackRepository interface {
	BaseRepository
	Create(ctx context.Context, pack *models.Pack) error
	FindByID(ctx context.Context, id uint) (*models.Pack, error)
	List(ctx context.Context, p *Pagination) ([]*models.Pack, error)
	CountTracks(ctx context.Context, packID uint) (int64, error)
	// TracksByPopularity 曲包内热度落在 [min, max] 区间的曲目，预加载艺人
	TracksByPopularity(ctx context.Context, packID uint, min, max int) ([]*models.Track, error)
	AllTracks(ctx context.Context, packID uint) ([]*models.Track, error)
	FindTrack(ctx context.Context, trackID uint) (*models.Track, error)
	CreateTrack(ctx context.Context, track *models.Track) error
	FindOrCreateArtist(ctx context.Context, artist *models.Artist) error
}

// packRepo 曲包仓储实现
type packRepo struct {
	*BaseRepo
}

// NewPackRepository 创建曲包仓储
func NewPackRepository(db *gorm.DB) PackRepository {
	return &packRepo{
		BaseRepo: NewBaseRepo(db),
	}
}

// Create 创建曲包
func (r *packRepo) Create(ctx context.Context, pack *models.Pack) error {
	return r.db.WithContext(ctx).Create(pack).Error
}

// FindByID 根据ID查找曲包
func (r *packRepo) FindByID(ctx context.Context, id uint) (*models.Pack, error) {
	var pack models.Pack
	err := r.db.WithContext(ctx).First(&pack, id).Error
	if err != nil {
		return nil, err
	}
	return &pack, nil
}

// List 曲包列表（分页）
func (r *packRepo) List(ctx context.Context, p *Pagination) ([]*models.Pack, error) {
	var packs []*models.Pack

	r.db.WithContext(ctx).Model(&models.Pack{}).Count(&p.Total)

	err := r.db.WithContext(ctx).
		Order("created_at desc").
		Scopes(Paginate(p)).
		Find(&packs).Error

	return packs, err
}

// CountTracks 曲包内曲目数
func (r *packRepo) CountTracks(ctx context.Context, packID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Track{}).
		Where("pack_id = ?", packID).
		Count(&count).Error
	return count, err
}

// TracksByPopularity 按热度区间取曲目
func (r *packRepo) TracksByPopularity(ctx context.Context, packID uint, min, max int) ([]*models.Track, error) {
	var tracks []*models.Track
	err := r.db.WithContext(ctx).
		Preload("Artists").
		Where("pack_id = ? AND popularity >= ? AND popularity <= ?", packID, min, max).
		Find(&tracks).Error
	return tracks, err
}

// AllTracks 曲包内全部曲目
func (r *packRepo) AllTracks(ctx context.Context, packID uint) ([]*models.Track, error) {
	var tracks []*models.Track
	err := r.db.WithContext(ctx).
		Preload("Artists").
		Where("pack_id = ?", packID).
		Find(&tracks).Error
	return tracks, err
}

// FindTrack 根据ID查找曲目
func (r *packRepo) FindTrack(ctx context.Context, trackID uint) (*models.Track, error) {
	var track models.Track
	err := r.db.WithContext(ctx).
		Preload("Artists").
		First(&track, trackID).Error
	if err != nil {
		return nil, err
	}
	return &track, nil
}

// CreateTrack 创建曲目
func (r *packRepo) CreateTrack(ctx context.Context, track *models.Track) error {
	return r.db.WithContext(ctx).Create(track).Error
}

// FindOrCreateArtist 按外部ID查找或创建艺人
func (r *packRepo) FindOrCreateArtist(ctx context.Context, artist *models.Artist) error {
	return r.db.WithContext(ctx).
		Where("external_id = ?", artist.ExternalID).
		FirstOrCreate(artist).Error
}

// WithTx 使用事务
func (r *packRepo) WithTx(tx *gorm.DB) BaseRepository {
	return &packRepo{
		BaseRepo: NewBaseRepo(tx),
	}
}
