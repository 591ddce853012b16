package portfolios

import "errors"

var (
	ErrNotFound       = errors.New("portfolio not found")
	ErrInvalidInput   = errors.New("invalid input")
	ErrSubdomainTaken = errors.New("subdomain taken")
)
