package marketdata

import (
	"context"
	"fmt"
	"time"

	md "github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"github.com/cbeeswax/stock-alert/internal/bar"
)

// AlpacaFetcher downloads split-adjusted daily bars from the Alpaca data
// API.
type AlpacaFetcher struct {
	client *md.Client
}

// NewAlpacaFetcher creates a fetcher from API credentials.
func NewAlpacaFetcher(apiKey, apiSecret string) *AlpacaFetcher {
	return &AlpacaFetcher{
		client: md.NewClient(md.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
		}),
	}
}

func (f *AlpacaFetcher) FetchDaily(ctx context.Context, ticker string, from, to time.Time) ([]bar.Bar, error) {
	raw, err := f.client.GetBars(ticker, md.GetBarsRequest{
		TimeFrame:  md.OneDay,
		Adjustment: md.Split,
		Start:      from,
		End:        to,
	})
	if err != nil {
		return nil, fmt.Errorf("FetchDaily | alpaca bars request for %s: %w", ticker, err)
	}

	bars := make([]bar.Bar, 0, len(raw))
	for _, r := range raw {
		b := bar.Bar{
			Date:   r.Timestamp.UTC().Truncate(24 * time.Hour),
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: float64(r.Volume),
			Ticker: ticker,
		}
		if err := b.Validate(); err != nil {
			continue // Skip malformed vendor rows
		}
		bars = append(bars, b)
	}
	return bars, nil
}
