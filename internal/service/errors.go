package service

import "errors"

var (
	// ErrEmailTaken indicates a registration with an email already in use.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials indicates a login with unknown email or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountInactive indicates the account has been deactivated by an administrator.
	ErrAccountInactive = errors.New("account is inactive")
	// ErrInvalidToken indicates a bearer token that is malformed, expired or revoked.
	ErrInvalidToken = errors.New("invalid or revoked token")
	// ErrForbidden indicates the actor may not perform the operation.
	ErrForbidden = errors.New("insufficient permissions")
	// ErrInvalidParent indicates a reply whose parent belongs to another thread.
	ErrInvalidParent = errors.New("parent does not belong to the same thread")
	// ErrEditWindowClosed indicates a forum message older than the edit window.
	ErrEditWindowClosed = errors.New("message can no longer be edited")
	// ErrEmptyContent indicates input that is empty once sanitised.
	ErrEmptyContent = errors.New("content empty after sanitization")
	// ErrInvalidStatusTransition indicates a publication lifecycle change that is not allowed.
	ErrInvalidStatusTransition = errors.New("invalid status transition")
)
