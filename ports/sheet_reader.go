package ports

import (
	"context"

	"dashsync/domain/grid"
)

// SheetReader reads one spreadsheet tab as a grid.
// A missing sheet or tab is an error; an existing but empty tab is an empty grid.
type SheetReader interface {
	ReadTab(ctx context.Context, sheetID, tab string) (grid.Grid, error)
}
