package vectorstore

import "errors"

var (
	errLimit       = errors.New("limit must be greater than 0")
	errEmptyVector = errors.New("empty query vector")
	errScope       = errors.New("tenant and model are required")
)
