package repository

import (
	"chatsy/internal/model"

	"gorm.io/gorm"
)

type profileRepository struct {
	db *gorm.DB
}

// NewProfileRepository 创建用户资料 Repository
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db}
}

// FindById 根据 id 查找用户资料
func (r *profileRepository) FindById(id string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.Where("id = ?", id).First(&profile).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户 id=%s", id)
	}
	return &profile, nil
}

// FindByUsername 根据用户名查找（登录用）
func (r *profileRepository) FindByUsername(username string) (*model.Profile, error) {
	var profile model.Profile
	if err := r.db.Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, wrapDBErrorf(err, "查询用户 username=%s", username)
	}
	return &profile, nil
}

// FindByIds 批量根据 id 查找
func (r *profileRepository) FindByIds(ids []string) ([]model.Profile, error) {
	if len(ids) == 0 {
		return []model.Profile{}, nil
	}
	var profiles []model.Profile
	if err := r.db.Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, wrapDBError(err, "批量查询用户")
	}
	return profiles, nil
}

// SearchByUsername 按用户名模糊搜索，排除指定用户，限制条数
func (r *profileRepository) SearchByUsername(query, excludeId string, limit int) ([]model.Profile, error) {
	var profiles []model.Profile
	if err := r.db.Where("username LIKE ? AND id <> ?", "%"+query+"%", excludeId).
		Limit(limit).Find(&profiles).Error; err != nil {
		return nil, wrapDBErrorf(err, "搜索用户 query=%s", query)
	}
	return profiles, nil
}

// Create 创建用户资料
func (r *profileRepository) Create(profile *model.Profile) error {
	if err := r.db.Create(profile).Error; err != nil {
		return wrapDBError(err, "创建用户资料")
	}
	return nil
}

// Update 更新用户资料
func (r *profileRepository) Update(profile *model.Profile) error {
	if err := r.db.Model(&model.Profile{}).Where("id = ?", profile.Id).
		Updates(map[string]interface{}{
			"username":   profile.Username,
			"avatar_url": profile.AvatarUrl,
		}).Error; err != nil {
		return wrapDBErrorf(err, "更新用户资料 id=%s", profile.Id)
	}
	return nil
}
