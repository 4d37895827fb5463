package writer

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gocarina/gocsv"

	"optionflow/logger"
	"optionflow/models"
)

// ChainRow is the flat export shape of one enriched record: the columns a
// downstream consumer needs to price a side of the chain.
type ChainRow struct {
	Strike        int     `csv:"strike"`
	DollarBid     float64 `csv:"dollar_bid"`
	DollarMid     float64 `csv:"dollar_mid"`
	DollarAsk     float64 `csv:"dollar_ask"`
	YearsToExpiry float64 `csv:"years_to_expiry"`
}

// ChainRows flattens enriched records into export rows, preserving order.
func ChainRows(records []models.EnrichedInstrumentRecord) []ChainRow {
	rows := make([]ChainRow, len(records))
	for i, rec := range records {
		rows[i] = ChainRow{
			Strike:        rec.Strike,
			DollarBid:     rec.DollarBid,
			DollarMid:     rec.DollarMid,
			DollarAsk:     rec.DollarAsk,
			YearsToExpiry: rec.YearsToExpiry,
		}
	}
	return rows
}

// WriteCSV writes the flat view of the records to w.
func WriteCSV(w io.Writer, records []models.EnrichedInstrumentRecord) error {
	rows := ChainRows(records)
	if err := gocsv.Marshal(&rows, w); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}

// ExportCSV writes the records to dir as options_<SYMBOL>_<SIDE>.csv and
// returns the file path.
func ExportCSV(dir, symbol string, side models.Side, records []models.EnrichedInstrumentRecord) (string, error) {
	log := logger.GetLogger().WithComponent("csv_writer").WithFields(logger.Fields{
		"symbol":  symbol,
		"side":    side.String(),
		"records": len(records),
	})

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	filename := fmt.Sprintf("options_%s_%s.csv", strings.ToUpper(symbol), strings.ToUpper(side.String()))
	path := filepath.Join(dir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, records); err != nil {
		return "", err
	}

	info, err := f.Stat()
	if err == nil {
		logger.IncrementExportWrite("csv_file", int(info.Size()))
	}

	log.WithFields(logger.Fields{"path": path}).Info("exported chain slice to csv")
	return path, nil
}
