// Package auth 账号认证业务逻辑
// 注册即建档：账号和用户资料同一张表、同一次写入
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"chatsy/internal/config"
	"chatsy/internal/dao/mysql"
	myredis "chatsy/internal/dao/redis"
	"chatsy/internal/dto/request"
	"chatsy/internal/dto/respond"
	"chatsy/internal/model"
	"chatsy/pkg/errorx"
	"chatsy/pkg/util/jwt"
)

// authService 认证业务逻辑实现
type authService struct {
	repos *mysql.Repositories
}

// NewAuthService 构造函数
func NewAuthService(repos *mysql.Repositories) *authService {
	return &authService{repos: repos}
}

// syntheticEmail 由用户名推导的占位邮箱
// 登录凭据只有用户名，邮箱仅作为认证标识记录
func syntheticEmail(username string) string {
	return username + "@chatsy.placeholder.com"
}

// Register 用户注册
// 用户名唯一，密码在模型的 BeforeSave 钩子里做 bcrypt 加密
func (a *authService) Register(req request.RegisterRequest) (*respond.LoginRespond, error) {
	_, err := a.repos.Profile.FindByUsername(req.Username)
	if err == nil {
		return nil, errorx.New(errorx.CodeUserExist, "用户名已被注册")
	}
	if !errorx.IsNotFound(err) {
		zap.L().Error("find profile by username error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	profile := &model.Profile{
		Id:          uuid.NewString(),
		Username:    req.Username,
		RawPassword: req.Password,
		CreatedAt:   time.Now(),
	}
	if err := a.repos.Profile.Create(profile); err != nil {
		zap.L().Error("create profile error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	zap.L().Info("register success",
		zap.String("user_id", profile.Id),
		zap.String("email", syntheticEmail(profile.Username)))

	return a.buildLoginRespond(profile)
}

// Login 用户名密码登录
func (a *authService) Login(req request.LoginRequest) (*respond.LoginRespond, error) {
	profile, err := a.repos.Profile.FindByUsername(req.Username)
	if err != nil {
		if errorx.IsNotFound(err) {
			return nil, errorx.New(errorx.CodeUserNotExist, "用户不存在")
		}
		zap.L().Error("find profile by username error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !profile.CheckPassword(req.Password) {
		return nil, errorx.New(errorx.CodeInvalidPassword, "密码错误")
	}

	return a.buildLoginRespond(profile)
}

// RefreshToken 用 Refresh Token 换取新的 Access Token
// Token ID 和 Redis 中的比对，实现单点互踢：新设备登录后旧 Refresh Token 作废
func (a *authService) RefreshToken(refreshToken string) (*respond.RefreshTokenRespond, error) {
	claims, err := jwt.ParseToken(refreshToken)
	if err != nil || claims.Subject != "refresh_token" {
		return nil, errorx.New(errorx.CodeUnauthorized, "无效的刷新令牌")
	}

	validTokenID, err := myredis.GetKeyNilIsErr(context.Background(), tokenKey(claims.UserID))
	if err != nil {
		return nil, errorx.New(errorx.CodeUnauthorized, "登录状态已失效，请重新登录")
	}
	if claims.TokenID != validTokenID {
		return nil, errorx.New(errorx.CodeUnauthorized, "账号已在其他设备登录，请重新登录")
	}

	accessToken, err := jwt.GenerateAccessToken(claims.UserID)
	if err != nil {
		zap.L().Error("generate access token error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return &respond.RefreshTokenRespond{AccessToken: accessToken}, nil
}

// tokenKey 存放当前有效 Refresh Token ID 的 Redis Key
func tokenKey(userId string) string {
	return "user_token:" + userId
}

// buildLoginRespond 签发双 Token 并组装登录响应
// Token ID 写入 Redis，覆盖旧值即踢掉其他设备的登录态
func (a *authService) buildLoginRespond(profile *model.Profile) (*respond.LoginRespond, error) {
	accessToken, err := jwt.GenerateAccessToken(profile.Id)
	if err != nil {
		zap.L().Error("generate access token error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	refreshToken, tokenID, err := jwt.GenerateRefreshToken(profile.Id)
	if err != nil {
		zap.L().Error("generate refresh token error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	expiry := time.Duration(config.GetConfig().JWTConfig.RefreshTokenExpiry) * time.Hour
	if err := myredis.SetKeyEx(context.Background(), tokenKey(profile.Id), tokenID, expiry); err != nil {
		zap.L().Error("store refresh token id error", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	return &respond.LoginRespond{
		Id:           profile.Id,
		Username:     profile.Username,
		AvatarUrl:    profile.AvatarUrl,
		CreatedAt:    profile.CreatedAt.Format("2006-01-02 15:04:05"),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
