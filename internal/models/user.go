// Package models содержит доменную модель пользователя: полную запись
// учётной записи, её публичную проекцию и пару токенов.
package models

import "time"

// User представляет полную запись пользователя в хранилище.
type User struct {
	ID           string
	FullName     string
	Username     string // всегда в нижнем регистре
	Email        string // всегда в нижнем регистре
	PasswordHash string
	Avatar       string  // URL аватара, обязателен
	CoverImage   string  // URL обложки, пустая строка если не загружена
	RefreshToken *string // nil после logout или до первого входа
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PublicUser — запись пользователя без хэша пароля и refresh-токена.
// Возвращается клиентам и кэшируется.
type PublicUser struct {
	ID         string    `json:"_id"`
	FullName   string    `json:"fullName"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Avatar     string    `json:"avatar"`
	CoverImage string    `json:"coverImage"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public копирует в PublicUser только разрешённые поля.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		FullName:   u.FullName,
		Username:   u.Username,
		Email:      u.Email,
		Avatar:     u.Avatar,
		CoverImage: u.CoverImage,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// TokenPair — пара access и refresh токенов.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// UserRegisteredEvent публикуется в брокер после успешной регистрации.
type UserRegisteredEvent struct {
	UserID       string    `json:"userId"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	RegisteredAt time.Time `json:"registeredAt"`
}
