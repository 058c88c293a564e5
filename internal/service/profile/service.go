// Package profile 用户资料业务逻辑
package profile

import (
	"mime/multipart"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"chatsy/internal/dao/mysql"
	"chatsy/internal/dto/request"
	"chatsy/internal/dto/respond"
	"chatsy/internal/model"
	"chatsy/internal/storage"
	"chatsy/pkg/constants"
	"chatsy/pkg/errorx"
	"chatsy/pkg/util/random"
)

// profileService 用户资料业务逻辑实现
type profileService struct {
	repos *mysql.Repositories
	store storage.ObjectStorage
}

// NewProfileService 构造函数
func NewProfileService(repos *mysql.Repositories, store storage.ObjectStorage) *profileService {
	return &profileService{repos: repos, store: store}
}

// GetProfile 获取单个用户资料
func (p *profileService) GetProfile(userId string) (*respond.ProfileRespond, error) {
	profile, err := p.repos.Profile.FindById(userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "用户不存在")
		}
		zap.L().Error("find profile by id error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return toProfileRespond(profile), nil
}

// UpdateProfile 更新用户名/头像
// 改用户名时要重新检查唯一性
func (p *profileService) UpdateProfile(userId string, req request.UpdateProfileRequest) (*respond.ProfileRespond, error) {
	profile, err := p.repos.Profile.FindById(userId)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "用户不存在")
		}
		zap.L().Error("find profile by id error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	if req.Username != "" && req.Username != profile.Username {
		if _, err := p.repos.Profile.FindByUsername(req.Username); err == nil {
			return nil, errorx.New(errorx.CodeUserExist, "用户名已被占用")
		} else if !errorx.IsNotFound(err) {
			zap.L().Error("find profile by username error", zap.Error(err))
			return nil, errorx.ErrServerBusy
		}
		profile.Username = req.Username
	}
	if req.AvatarUrl != "" {
		profile.AvatarUrl = req.AvatarUrl
	}

	if err := p.repos.Profile.Update(profile); err != nil {
		zap.L().Error("update profile error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return toProfileRespond(profile), nil
}

// SearchUsers 按用户名模糊搜索，用于发起新会话前找人
// 排除自己，最多返回 USER_SEARCH_LIMIT 条
func (p *profileService) SearchUsers(query, currentUserId string) ([]respond.ProfileRespond, error) {
	profiles, err := p.repos.Profile.SearchByUsername(query, currentUserId, constants.USER_SEARCH_LIMIT)
	if err != nil {
		zap.L().Error("search profiles error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	rspList := make([]respond.ProfileRespond, 0, len(profiles))
	for i := range profiles {
		rspList = append(rspList, *toProfileRespond(&profiles[i]))
	}
	return rspList, nil
}

// UploadAvatar 上传头像并更新资料
// 仅允许图片类型，校验在对象存储的 Magic Bytes 探测里完成
func (p *profileService) UploadAvatar(c *gin.Context, userId string) (string, error) {
	if err := c.Request.ParseMultipartForm(constants.FILE_MAX_SIZE); err != nil {
		zap.L().Error("parse multipart form error", zap.Error(err))
		return "", errorx.ErrServerBusy
	}
	mForm := c.Request.MultipartForm
	if mForm == nil || len(mForm.File) == 0 {
		return "", errorx.New(errorx.CodeInvalidParam, "未上传文件")
	}

	// 头像只取第一个文件
	var fileHeader *multipart.FileHeader
	for _, headers := range mForm.File {
		if len(headers) > 0 {
			fileHeader = headers[0]
			break
		}
	}
	if fileHeader == nil {
		return "", errorx.New(errorx.CodeInvalidParam, "未上传文件")
	}

	src, err := fileHeader.Open()
	if err != nil {
		zap.L().Error("open uploaded file error", zap.Error(err))
		return "", errorx.ErrServerBusy
	}
	defer src.Close()

	objectName := userId + "/" + random.GetNowAndLenRandomString(10) + "." + storage.Ext(fileHeader.Filename)
	url, err := p.store.Upload(constants.BucketAvatars, objectName, src,
		"image/jpeg", "image/png", "image/gif")
	if err != nil {
		if errorx.GetCode(err) == errorx.CodeInvalidParam {
			return "", err
		}
		zap.L().Error("upload avatar error", zap.Error(err))
		return "", errorx.New(errorx.CodeUploadFailed, "头像上传失败")
	}

	profile, err := p.repos.Profile.FindById(userId)
	if err != nil {
		zap.L().Error("find profile by id error", zap.Error(err))
		return "", errorx.ErrServerBusy
	}
	profile.AvatarUrl = url
	if err := p.repos.Profile.Update(profile); err != nil {
		zap.L().Error("update profile avatar error", zap.Error(err))
		return "", errorx.ErrServerBusy
	}

	zap.L().Info("upload avatar success", zap.String("user_id", userId), zap.String("url", url))
	return url, nil
}

// toProfileRespond 模型转响应
func toProfileRespond(profile *model.Profile) *respond.ProfileRespond {
	return &respond.ProfileRespond{
		Id:        profile.Id,
		Username:  profile.Username,
		AvatarUrl: profile.AvatarUrl,
		CreatedAt: profile.CreatedAt.Format("2006-01-02 15:04:05"),
	}
}
