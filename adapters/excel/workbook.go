package excel

import (
	"context"
	"fmt"
	"os"
	"time"

	"dashsync/domain/grid"
	"dashsync/internal/errors"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// WorkbookReader serves spreadsheet tabs from a local .xlsx file whose
// sheets are named after the tabs. It stands in for Google Sheets in
// local runs; the sheet ID is only logged.
type WorkbookReader struct {
	filePath string
	logger   *zap.Logger
}

// NewWorkbookReader creates a reader over the workbook at filePath.
func NewWorkbookReader(filePath string, logger *zap.Logger) *WorkbookReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkbookReader{filePath: filePath, logger: logger}
}

// ReadTab returns every row of the named sheet.
func (r *WorkbookReader) ReadTab(ctx context.Context, sheetID, tab string) (grid.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(r.filePath); err != nil {
		return nil, errors.InvalidInput(fmt.Sprintf("workbook not found: %s", r.filePath))
	}

	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open workbook")
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(tab)
	if err != nil || idx < 0 {
		return nil, errors.NotFound(fmt.Sprintf("tab %q", tab))
	}

	rows, err := f.GetRows(tab)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read tab %q", tab)
	}

	r.logger.Debug("read workbook tab",
		zap.String("sheet_id", sheetID),
		zap.String("tab", tab),
		zap.Int("rows", len(rows)),
		zap.Duration("elapsed", time.Since(startTime)))
	return grid.Grid(rows), nil
}
