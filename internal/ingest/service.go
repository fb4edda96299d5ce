package ingest

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/restocklab/replaysim/internal/history"
	"github.com/restocklab/replaysim/internal/repository"
	"github.com/rs/zerolog/log"
)

// Downloader is the piece of the Drive service ingestion depends on, kept
// narrow so the CSV path can be fed from local files too.
type Downloader interface {
	DownloadFile(fileID string, w io.Writer) error
}

// Service parses daily demand CSV exports into the historical store. Each
// row carries one (item, date) fact: units sold and, optionally, the
// observed stock on hand.
type Service struct {
	downloader Downloader
	repo       repository.IngestRepository
}

func NewService(downloader Downloader, repo repository.IngestRepository) *Service {
	return &Service{downloader: downloader, repo: repo}
}

// IngestFile downloads a Drive file and streams its rows into the store.
func (s *Service) IngestFile(ctx context.Context, tenantID, fileID string) (int, error) {
	pr, pw := io.Pipe()
	go func() {
		err := s.downloader.DownloadFile(fileID, pw)
		pw.CloseWithError(err)
	}()

	return s.IngestCSV(ctx, tenantID, pr)
}

// IngestCSV reads daily demand rows from any CSV stream. Required columns:
// item_id, date, units_sold. Optional: stock_on_hand.
func (s *Service) IngestCSV(ctx context.Context, tenantID string, r io.Reader) (int, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("failed to read CSV header: %w", err)
	}

	colMap := make(map[string]int)
	for i, col := range header {
		colMap[strings.TrimSpace(strings.ToLower(col))] = i
	}

	for _, col := range []string{"item_id", "date", "units_sold"} {
		if _, ok := colMap[col]; !ok {
			return 0, fmt.Errorf("missing required column: %s", col)
		}
	}

	rows := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rows, fmt.Errorf("failed to read CSV record: %w", err)
		}

		if err := s.processRow(ctx, tenantID, record, colMap); err != nil {
			return rows, fmt.Errorf("failed to process row %d: %w", rows+1, err)
		}
		rows++
	}

	log.Info().Str("tenant_id", tenantID).Int("rows", rows).Msg("history ingestion completed")
	return rows, nil
}

func (s *Service) processRow(ctx context.Context, tenantID string, record []string, colMap map[string]int) error {
	getValue := func(colName string) string {
		if idx, ok := colMap[colName]; ok && idx < len(record) {
			return strings.TrimSpace(record[idx])
		}
		return ""
	}

	itemID := getValue("item_id")
	if itemID == "" {
		return fmt.Errorf("empty item_id")
	}

	date, err := time.Parse("2006-01-02", getValue("date"))
	if err != nil {
		return fmt.Errorf("invalid date %q: %w", getValue("date"), err)
	}

	units, err := strconv.ParseFloat(getValue("units_sold"), 64)
	if err != nil {
		return fmt.Errorf("invalid units_sold %q: %w", getValue("units_sold"), err)
	}

	if err := s.repo.UpsertDailySales(ctx, tenantID, history.SalesRecord{
		ItemID: itemID,
		Date:   date,
		Units:  units,
	}); err != nil {
		return err
	}

	if raw := getValue("stock_on_hand"); raw != "" {
		stock, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid stock_on_hand %q: %w", raw, err)
		}
		if err := s.repo.UpsertStockSnapshot(ctx, tenantID, history.StockSnapshot{
			ItemID: itemID,
			Date:   date,
			Units:  stock,
		}); err != nil {
			return err
		}
	}

	return nil
}
