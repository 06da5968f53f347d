// Package sheets reads spreadsheet tabs through the Google Sheets v4 API
// with a service-account credential.
package sheets

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dashsync/domain/grid"
	"dashsync/internal/errors"

	"go.uber.org/zap"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheetsapi "google.golang.org/api/sheets/v4"
)

// Client implements ports.SheetReader.
type Client struct {
	service *sheetsapi.Service
	logger  *zap.Logger
}

// NewFromServiceAccountKey builds a read-only client from a base64-encoded
// service-account JSON key. Any failure here is a setup failure.
func NewFromServiceAccountKey(ctx context.Context, encodedKey string, logger *zap.Logger) (*Client, error) {
	keyJSON, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encodedKey))
	if err != nil {
		return nil, errors.SetupFailed("failed to decode service account key", err)
	}

	cfg, err := google.JWTConfigFromJSON(keyJSON, sheetsapi.SpreadsheetsReadonlyScope)
	if err != nil {
		return nil, errors.SetupFailed("failed to parse service account key", err)
	}

	service, err := sheetsapi.NewService(ctx, option.WithTokenSource(cfg.TokenSource(ctx)))
	if err != nil {
		return nil, errors.SetupFailed("failed to create sheets service", err)
	}
	return NewWithService(service, logger), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(service *sheetsapi.Service, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{service: service, logger: logger}
}

// ReadTab fetches every populated cell of a tab as formatted text.
func (c *Client) ReadTab(ctx context.Context, sheetID, tab string) (grid.Grid, error) {
	start := time.Now()
	resp, err := c.service.Spreadsheets.Values.Get(sheetID, quoteRange(tab)).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && isMissingRange(apiErr) {
			return nil, errors.NotFound(fmt.Sprintf("tab %q", tab))
		}
		return nil, errors.Wrapf(errors.ExternalServiceError("google sheets", err), "failed to read tab %q", tab)
	}

	g := make(grid.Grid, 0, len(resp.Values))
	for _, values := range resp.Values {
		row := make([]string, len(values))
		for i, v := range values {
			row[i] = cellText(v)
		}
		g = append(g, row)
	}

	c.logger.Info("read sheet tab",
		zap.String("tab", tab),
		zap.Int("rows", len(g)),
		zap.Duration("elapsed", time.Since(start)))
	return g, nil
}

// quoteRange turns a tab name into an A1 range covering the whole tab.
func quoteRange(tab string) string {
	return "'" + strings.ReplaceAll(tab, "'", "''") + "'"
}

func isMissingRange(err *googleapi.Error) bool {
	if err.Code == http.StatusNotFound {
		return true
	}
	return err.Code == http.StatusBadRequest && strings.Contains(err.Message, "Unable to parse range")
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
