package storage

import (
	"errors"
	"strings"
)

const maxNameLength = 255

var (
	ErrEmptyName     = errors.New("filename is empty")
	ErrNameTooLong   = errors.New("filename too long (max 255 characters)")
	ErrPathTraversal = errors.New("filename must not contain path separators or '..'")
	ErrInvalidChars  = errors.New("filename contains invalid characters")
)

// ValidateName rejects client filenames that are unsafe to join onto a
// storage directory. Names are otherwise kept verbatim.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	if strings.Contains(name, "..") || strings.ContainsAny(name, `/\`) {
		return ErrPathTraversal
	}
	if strings.ContainsAny(name, "\x00\r\n") {
		return ErrInvalidChars
	}
	return nil
}
