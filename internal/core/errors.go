package core

import "errors"

var (
	// ErrConversationNotFound is returned by lookups for unknown sessions.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrClientNotRegistered is returned when a streaming chat references a
	// clientId with no live websocket behind it.
	ErrClientNotRegistered = errors.New("client is not registered for streaming")

	// ErrUnsupportedFileType is returned for non-PDF uploads.
	ErrUnsupportedFileType = errors.New("only PDF files are supported currently")

	// ErrNoRecentOrder is returned by the order lookup when the shopper has
	// no order on record.
	ErrNoRecentOrder = errors.New("no recent order found")
)
