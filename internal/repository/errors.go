// Package repository contains the data access layer. Sentinel errors let
// handlers distinguish failure scenarios without inspecting driver
// internals; MySQL duplicate-key violations (error 1062) are translated
// here at the repository boundary.
package repository

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrEmailExists      = errors.New("email already exists")
	ErrPhoneExists      = errors.New("phone number already exists")
	ErrChatNotFound     = errors.New("chat not found")
	ErrChatExists       = errors.New("chat already exists")
	ErrMessageNotFound  = errors.New("message not found")
	ErrProductNotFound  = errors.New("product not found")
	ErrCategoryNotFound = errors.New("category not found")
	ErrLinkNotFound     = errors.New("product category link not found")
	ErrLinkExists       = errors.New("product category link already exists")
)

// isDuplicate reports whether err is a MySQL unique-constraint violation.
// When key is non-empty the violation must also name that index, which
// lets callers tell apart multiple unique columns on one table.
func isDuplicate(err error, key string) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "1062") {
		return false
	}
	return key == "" || strings.Contains(msg, strings.ToLower(key))
}
