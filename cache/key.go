package cache

import (
	"errors"
	"fmt"
)

type Key struct {
	// Scope ties the key to a touchpoint data set, i.e snapshot fingerprint.
	Scope string
	// Prefix - Helps better grouping and searching
	// i.e journeys:list
	Prefix string
	// Suffix - optional
	Suffix string
}

var (
	ErrorInvalidScope  = errors.New("invalid key scope")
	ErrorInvalidPrefix = errors.New("invalid key prefix")
	ErrorInvalidKey    = errors.New("invalid cache key")
	ErrorInvalidValue  = errors.New("invalid value to set")
)

func NewKey(scope, prefix, suffix string) (*Key, error) {
	if scope == "" {
		return nil, ErrorInvalidScope
	}

	if prefix == "" {
		return nil, ErrorInvalidPrefix
	}

	return &Key{Scope: scope, Prefix: prefix, Suffix: suffix}, nil
}

func (key *Key) Key() (string, error) {
	if key.Scope == "" {
		return "", ErrorInvalidScope
	}

	if key.Prefix == "" {
		return "", ErrorInvalidPrefix
	}

	// key: i.e, journeys:list:fp:3b1f..:c="spring":m="":ct="":s=""
	return fmt.Sprintf("%s:fp:%s:%s", key.Prefix, key.Scope, key.Suffix), nil
}
