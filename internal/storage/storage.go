package storage

import "errors"

var (
	ErrNoService   = errors.New("no service found")
	ErrNoOrder     = errors.New("no order found")
	ErrNoWallet    = errors.New("no wallet found")
	ErrOrderPaid   = errors.New("order already paid")
	ErrLowBalance  = errors.New("insufficient balance")
	ErrNoPreview   = errors.New("no preview cached")
	ErrBadPassword = errors.New("wrong payment password")
)
