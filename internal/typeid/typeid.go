package typeid

import (
	"fmt"

	"go.jetify.com/typeid/v2"
)

const (
	PrefixUser     = "user"
	PrefixBoard    = "board"
	PrefixSnapshot = "snap"
	PrefixShape    = "shape"
	PrefixSession  = "sess"
	PrefixExport   = "exp"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewUserID() string     { return New(PrefixUser) }
func NewBoardID() string    { return New(PrefixBoard) }
func NewSnapshotID() string { return New(PrefixSnapshot) }
func NewShapeID() string    { return New(PrefixShape) }
func NewSessionID() string  { return New(PrefixSession) }
func NewExportID() string   { return New(PrefixExport) }

func Validate(id, expectedPrefix string) error {
	parsed, err := typeid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid typeid %q: %w", id, err)
	}
	if parsed.Prefix() != expectedPrefix {
		return fmt.Errorf("expected prefix %q but got %q in id %q", expectedPrefix, parsed.Prefix(), id)
	}
	return nil
}
