package models

// Pack 曲包表（由离线工具从歌单/频道抓取生成）
type Pack struct {
	BaseModel
	Name        string  `gorm:"size:100;not null" json:"name"`
	Description string  `gorm:"size:500" json:"description"`
	Source      string  `gorm:"size:50" json:"source"` // playlist, youtube, manual
	Status      string  `gorm:"size:20;default:'active'" json:"status"`
	Config      JSONMap `gorm:"type:json" json:"config"`

	// 关联
	Tracks []Track `gorm:"foreignKey:PackID" json:"tracks,omitempty"`
}

// Track 曲目表
type Track struct {
	BaseModel
	PackID          uint   `gorm:"not null;index" json:"pack_id"`
	Title           string `gorm:"size:255;not null" json:"title"`
	Popularity      int    `gorm:"default:50" json:"popularity"` // 0-100, 难度选择依据
	PreviewURL      string `gorm:"size:500" json:"preview_url"`
	ExternalID      string `gorm:"size:100;index" json:"external_id"`
	ReleaseYear     int    `json:"release_year"`
	DurationSeconds int    `gorm:"default:30" json:"duration_seconds"`

	// 关联
	Artists []Artist `gorm:"many2many:track_artists" json:"artists,omitempty"`
}

// Artist 艺人表（按稳定ID去重，不按展示名）
type Artist struct {
	BaseModel
	Name       string `gorm:"size:255;not null" json:"name"`
	ExternalID string `gorm:"uniqueIndex;size:100" json:"external_id"`
}
