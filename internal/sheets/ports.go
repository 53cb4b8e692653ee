package sheets

import "context"

// RowWriter is an outbound export target. ReplaceRows overwrites everything
// the target held with rows; the first row is the header.
type RowWriter interface {
	ReplaceRows(ctx context.Context, rows [][]string) error
}
