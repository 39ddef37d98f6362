package core

import "errors"

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidUserName = errors.New("user name is required")
	ErrUserExists      = errors.New("user already exists")
)
