// Package storage объявляет общие для всех реализаций хранилища ошибки.
package storage

import "errors"

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user with this username or email already exists")
)
