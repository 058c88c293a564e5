// Package model 定义数据库实体模型
// 本文件定义用户资料模型，账号创建时自动生成，与认证身份共用同一个 id
package model

import (
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Profile 用户资料模型
// 对应数据库 profiles 表
type Profile struct {
	// Id 用户唯一标识（UUID 字符串），与认证身份共享
	Id string `gorm:"column:id;primaryKey;type:char(36)" json:"id"`

	// Username 用户名，由用户选择，全局唯一
	// 登录用的合成邮箱 <username>@chatsy.placeholder.com 由它派生，不落库
	Username string `gorm:"column:username;uniqueIndex;type:varchar(32);not null" json:"username"`

	// AvatarUrl 头像公开 URL，可为空
	AvatarUrl string `gorm:"column:avatar_url;type:varchar(255)" json:"avatar_url"`

	// Password bcrypt 哈希后的密码，不存储明文
	Password string `gorm:"column:password;type:varchar(100);not null" json:"-"`

	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`

	// RawPassword 明文密码（不落库），在 BeforeSave 中加密
	RawPassword string `gorm:"-" json:"-"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// BeforeSave GORM Hook：把 RawPassword 加密后存入 Password 字段
// 调用方只需设置 RawPassword，无需手动加密
func (p *Profile) BeforeSave(tx *gorm.DB) (err error) {
	if p.RawPassword != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(p.RawPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		p.Password = string(hash)
		p.RawPassword = ""
	}
	return nil
}

// CheckPassword 校验密码是否正确，用于登录
func (p *Profile) CheckPassword(plaintext string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(plaintext))
	return err == nil
}
