// Package utils reads the trade history and Fear & Greed exports and writes trade CSVs.
package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

const (
	// TradeTimestampLayout is the day-first layout of the "Timestamp IST" column.
	TradeTimestampLayout = "02-01-2006 15:04"
	// DayLayout keys the sentiment table.
	DayLayout = "2006-01-02"
)

// Column names of the trade history export.
const (
	colAccount   = "Account"
	colCoin      = "Coin"
	colSide      = "Side"
	colTimestamp = "Timestamp IST"
	colSizeUSD   = "Size USD"
	colClosedPnL = "Closed PnL"
)

// Column names of the sentiment export.
const (
	colDate  = "date"
	colValue = "value"
)

var sentimentDayLayouts = []string{DayLayout, "02-01-2006", "2006/01/02"}

// TradeImport is the result of joining a trade export with the sentiment table.
type TradeImport struct {
	Trades  []domain.Trade
	Rows    int // Data rows read
	Skipped int // Rows without a sentiment value for their day
}

// ReadSentimentFromCSV loads a Fear & Greed export (date,value,classification).
func ReadSentimentFromCSV(filename string) (map[string]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	sentiment, err := ParseSentiment(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return sentiment, nil
}

// ParseSentiment reads a sentiment CSV into a map keyed by day ("2006-01-02").
// The classification column is ignored: regimes are always derived from the value.
func ParseSentiment(r io.Reader) (map[string]float64, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read sentiment header: %v: %w", err, ports.ErrMalformedRecord)
	}
	idx, err := columnIndex(header, colDate, colValue)
	if err != nil {
		return nil, err
	}

	sentiment := make(map[string]float64)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %v: %w", line, err, ports.ErrMalformedRecord)
		}

		day, err := parseDay(record[idx[colDate]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		value, err := strconv.ParseFloat(strings.TrimSpace(record[idx[colValue]]), 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid sentiment value %q: %w", line, record[idx[colValue]], ports.ErrMalformedRecord)
		}
		if value < domain.SentimentMin || value > domain.SentimentMax {
			return nil, fmt.Errorf("line %d: sentiment value %g not in [%g,%g]: %w",
				line, value, domain.SentimentMin, domain.SentimentMax, ports.ErrOutOfRange)
		}
		sentiment[day] = value
	}
	return sentiment, nil
}

// ReadTradesFromCSV loads a trade history export and tags every trade with the sentiment
// of its day. Timestamps are interpreted in loc.
func ReadTradesFromCSV(filename string, sentiment map[string]float64, loc *time.Location) (TradeImport, error) {
	file, err := os.Open(filename)
	if err != nil {
		return TradeImport{}, err
	}
	defer file.Close()

	res, err := ParseTrades(file, sentiment, loc)
	if err != nil {
		return TradeImport{}, fmt.Errorf("%s: %w", filename, err)
	}
	return res, nil
}

// ParseTrades reads trade rows and inner-joins them with the sentiment table by calendar
// day. Rows whose day has no sentiment value are counted in Skipped and dropped.
// Malformed rows fail the whole read with ErrMalformedRecord.
func ParseTrades(r io.Reader, sentiment map[string]float64, loc *time.Location) (TradeImport, error) {
	if loc == nil {
		loc = time.UTC
	}
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return TradeImport{}, fmt.Errorf("failed to read trade header: %v: %w", err, ports.ErrMalformedRecord)
	}
	idx, err := columnIndex(header, colCoin, colSide, colTimestamp, colSizeUSD, colClosedPnL)
	if err != nil {
		return TradeImport{}, err
	}
	accountIdx := -1
	if i, ok := findColumn(header, colAccount); ok {
		accountIdx = i
	}

	var res TradeImport
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return TradeImport{}, fmt.Errorf("line %d: %v: %w", line, err, ports.ErrMalformedRecord)
		}
		res.Rows++

		ts, err := time.ParseInLocation(TradeTimestampLayout, strings.TrimSpace(record[idx[colTimestamp]]), loc)
		if err != nil {
			return TradeImport{}, fmt.Errorf("line %d: invalid timestamp %q: %w", line, record[idx[colTimestamp]], ports.ErrMalformedRecord)
		}
		value, ok := sentiment[ts.Format(DayLayout)]
		if !ok {
			res.Skipped++
			continue
		}

		pnl, err := parseMoney(record[idx[colClosedPnL]])
		if err != nil {
			return TradeImport{}, fmt.Errorf("line %d: invalid %s: %w", line, colClosedPnL, err)
		}
		size, err := parseMoney(record[idx[colSizeUSD]])
		if err != nil {
			return TradeImport{}, fmt.Errorf("line %d: invalid %s: %w", line, colSizeUSD, err)
		}
		if size.IsNegative() {
			return TradeImport{}, fmt.Errorf("line %d: negative %s %s: %w", line, colSizeUSD, size, ports.ErrMalformedRecord)
		}

		t := domain.Trade{
			Symbol:    strings.TrimSpace(record[idx[colCoin]]),
			Side:      domain.ParseOrderSide(record[idx[colSide]]),
			Timestamp: ts,
			PnL:       pnl.InexactFloat64(),
			Size:      size.InexactFloat64(),
			Sentiment: value,
		}
		if accountIdx >= 0 {
			t.Account = strings.TrimSpace(record[accountIdx])
		}
		res.Trades = append(res.Trades, t)
	}
	return res, nil
}

// WriteTradesToCSV writes sentiment-tagged trades with their regime label.
func WriteTradesToCSV(trades []domain.Trade, regimes []domain.RegimeLabel, filename string) error {
	if len(regimes) != len(trades) {
		return fmt.Errorf("got %d regime labels for %d trades: %w", len(regimes), len(trades), ports.ErrInvalidRequest)
	}
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Write([]string{"timestamp", "account", "symbol", "side", "size_usd", "closed_pnl", "sentiment", "regime"})

	for i, t := range trades {
		writer.Write([]string{
			t.Timestamp.Format(time.RFC3339),
			t.Account,
			t.Symbol,
			string(t.Side),
			strconv.FormatFloat(t.Size, 'f', -1, 64),
			strconv.FormatFloat(t.PnL, 'f', -1, 64),
			strconv.FormatFloat(t.Sentiment, 'f', -1, 64),
			string(regimes[i]),
		})
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return err
	}
	return file.Close()
}

func parseDay(s string) (string, error) {
	s = strings.TrimSpace(s)
	for _, layout := range sentimentDayLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format(DayLayout), nil
		}
	}
	return "", fmt.Errorf("invalid date %q: %w", s, ports.ErrMalformedRecord)
}

// parseMoney accepts plain decimals with optional thousands separators.
func parseMoney(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%q: %w", s, ports.ErrMalformedRecord)
	}
	return d, nil
}

func columnIndex(header []string, names ...string) (map[string]int, error) {
	idx := make(map[string]int, len(names))
	for _, name := range names {
		i, ok := findColumn(header, name)
		if !ok {
			return nil, fmt.Errorf("missing column %q: %w", name, ports.ErrMalformedRecord)
		}
		idx[name] = i
	}
	return idx, nil
}

func findColumn(header []string, name string) (int, bool) {
	for i, h := range header {
		// Excel exports prefix the first header with a UTF-8 BOM.
		if strings.EqualFold(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")), name) {
			return i, true
		}
	}
	return 0, false
}
