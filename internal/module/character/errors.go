package character

import "errors"

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrInvalidName       = errors.New("character name is required")
	ErrTooManyCharacters = errors.New("too many characters")
)
