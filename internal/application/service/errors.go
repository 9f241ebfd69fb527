package service

import "errors"

var (
	ErrNoDocument         = errors.New("no document has been processed yet")
	ErrUnknownTable       = errors.New("unknown table")
	ErrUnknownNature      = errors.New("unknown nature")
	ErrUnknownProfile     = errors.New("unknown profile")
	ErrUnsupportedFormat  = errors.New("unsupported export format")
	ErrNotifierDisabled   = errors.New("notifications are disabled")
	ErrEmptyDocumentInput = errors.New("document is empty")
)
