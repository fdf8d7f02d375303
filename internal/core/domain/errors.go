package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrUserNotFound    = errors.New("User Not found.")
	ErrInvalidPassword = errors.New("Invalid Password!")
	ErrNoToken         = errors.New("No token provided!")
	ErrUnauthorized    = errors.New("Unauthorized!")
	ErrTooManyAttempts = errors.New("Too many signin attempts, try again later.")
)

// ValidationError carries per-field messages for a malformed payload.
type ValidationError struct {
	Fields map[string][]string
}

// Add appends msg to the messages of field.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string][]string)
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

// Empty reports whether no field failed.
func (e *ValidationError) Empty() bool {
	return len(e.Fields) == 0
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, strings.Join(e.Fields[k], ", "))
	}
	return strings.Join(parts, "; ")
}

// ConflictError reports which unique fields collide with an existing user.
type ConflictError struct {
	Username bool
	Email    bool
}

func (e *ConflictError) Error() string {
	switch {
	case e.Username && e.Email:
		return "Failed! Username and email already in use!"
	case e.Email:
		return "Failed! Email is already in use!"
	default:
		return "Failed! Username is already in use!"
	}
}

// UnknownRoleError names a requested role that is not in the fixed set.
type UnknownRoleError struct {
	Role string
}

func (e *UnknownRoleError) Error() string {
	return fmt.Sprintf("Failed! Role %s does not exist!", e.Role)
}

// ForbiddenError names the roles a route requires.
type ForbiddenError struct {
	Required []string
}

func (e *ForbiddenError) Error() string {
	names := make([]string, 0, len(e.Required))
	for _, r := range e.Required {
		if r == "" {
			continue
		}
		names = append(names, strings.ToUpper(r[:1])+r[1:])
	}
	return fmt.Sprintf("Require %s Role!", strings.Join(names, " or "))
}
