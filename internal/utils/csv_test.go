package utils

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sentimentEdge/internal/domain"
	"sentimentEdge/internal/ports"
)

const sentimentCSV = `timestamp,value,classification,date
1709251200,22,Extreme Fear,2024-03-01
1709337600,81,Extreme Greed,2024-03-02
1709424000,50,Neutral,2024-03-03
`

const tradesCSV = `Account,Coin,Execution Price,Size Tokens,Size USD,Side,Timestamp IST,Start Position,Direction,Closed PnL
0xabc,BTC,62000,0.01,620.00,BUY,01-03-2024 09:15,0,Open Long,0
0xabc,BTC,63000,0.01,630.00,SELL,02-03-2024 23:59,0.01,Close Long,"1,234.56"
0xdef,ETH,3400,1,3400,sell,03-03-2024 00:01,0,Open Short,-12.5
0xdef,SOL,140,10,1400,BUY,05-03-2024 10:00,0,Open Long,3
`

var ist = time.FixedZone("IST", 5*3600+1800)

func TestParseSentiment(t *testing.T) {
	sentiment, err := ParseSentiment(strings.NewReader(sentimentCSV))
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{
		"2024-03-01": 22,
		"2024-03-02": 81,
		"2024-03-03": 50,
	}, sentiment)
}

func TestParseSentiment_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
	}{
		{"missing value column", "date,classification\n2024-03-01,Fear\n", ports.ErrMalformedRecord},
		{"bad date", "date,value\n03/01/24,40\n", ports.ErrMalformedRecord},
		{"bad value", "date,value\n2024-03-01,forty\n", ports.ErrMalformedRecord},
		{"out of range", "date,value\n2024-03-01,140\n", ports.ErrOutOfRange},
		{"empty", "", ports.ErrMalformedRecord},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSentiment(strings.NewReader(tt.input))
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestParseTrades(t *testing.T) {
	sentiment, err := ParseSentiment(strings.NewReader(sentimentCSV))
	require.NoError(t, err)

	res, err := ParseTrades(strings.NewReader(tradesCSV), sentiment, ist)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Rows)
	assert.Equal(t, 1, res.Skipped) // 05-03 has no sentiment
	require.Len(t, res.Trades, 3)

	first := res.Trades[0]
	assert.Equal(t, "0xabc", first.Account)
	assert.Equal(t, "BTC", first.Symbol)
	assert.Equal(t, domain.Buy, first.Side)
	assert.True(t, first.Timestamp.Equal(time.Date(2024, 3, 1, 9, 15, 0, 0, ist)))
	assert.Equal(t, 0.0, first.PnL)
	assert.Equal(t, 620.0, first.Size)
	assert.Equal(t, 22.0, first.Sentiment)

	// 23:59 IST still belongs to its own calendar day
	assert.Equal(t, 81.0, res.Trades[1].Sentiment)
	assert.InDelta(t, 1234.56, res.Trades[1].PnL, 1e-9)

	assert.Equal(t, domain.Sell, res.Trades[2].Side)
	assert.Equal(t, -12.5, res.Trades[2].PnL)
	assert.Equal(t, 50.0, res.Trades[2].Sentiment)
}

func TestParseTrades_Malformed(t *testing.T) {
	sentiment := map[string]float64{"2024-03-01": 40}
	tests := []struct {
		name  string
		input string
	}{
		{"missing column", "Coin,Side,Timestamp IST,Size USD\nBTC,BUY,01-03-2024 09:15,100\n"},
		{"bad timestamp", "Coin,Side,Timestamp IST,Size USD,Closed PnL\nBTC,BUY,2024-03-01 09:15,100,1\n"},
		{"bad pnl", "Coin,Side,Timestamp IST,Size USD,Closed PnL\nBTC,BUY,01-03-2024 09:15,100,abc\n"},
		{"negative size", "Coin,Side,Timestamp IST,Size USD,Closed PnL\nBTC,BUY,01-03-2024 09:15,-100,1\n"},
		{"ragged row", "Coin,Side,Timestamp IST,Size USD,Closed PnL\nBTC,BUY,01-03-2024 09:15,100\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseTrades(strings.NewReader(tt.input), sentiment, time.UTC)
			assert.ErrorIs(t, err, ports.ErrMalformedRecord)
		})
	}
}

func TestReadFromFiles(t *testing.T) {
	dir := t.TempDir()
	sentimentPath := filepath.Join(dir, "fear_greed_index.csv")
	tradesPath := filepath.Join(dir, "historical_data.csv")
	require.NoError(t, os.WriteFile(sentimentPath, []byte(sentimentCSV), 0o644))
	require.NoError(t, os.WriteFile(tradesPath, []byte(tradesCSV), 0o644))

	sentiment, err := ReadSentimentFromCSV(sentimentPath)
	require.NoError(t, err)
	res, err := ReadTradesFromCSV(tradesPath, sentiment, ist)
	require.NoError(t, err)
	assert.Len(t, res.Trades, 3)

	_, err = ReadSentimentFromCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestWriteTradesToCSV(t *testing.T) {
	trades := []domain.Trade{
		{Account: "0xabc", Symbol: "BTC", Side: domain.Buy, Timestamp: time.Date(2024, 3, 1, 9, 15, 0, 0, time.UTC), PnL: 1.5, Size: 100, Sentiment: 22},
	}
	path := filepath.Join(t.TempDir(), "out.csv")

	require.NoError(t, WriteTradesToCSV(trades, []domain.RegimeLabel{domain.ExtremeFear}, path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, []string{"2024-03-01T09:15:00Z", "0xabc", "BTC", "BUY", "100", "1.5", "22", "Extreme Fear"}, records[1])

	err = WriteTradesToCSV(trades, nil, path)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}
