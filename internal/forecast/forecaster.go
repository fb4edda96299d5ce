package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Forecaster is the boundary to the external forecasting engine. The
// contract is that implementations must never use facts dated after cutoff.
type Forecaster interface {
	Generate(ctx context.Context, itemID string, cutoff time.Time, horizonDays int) ([]float64, error)
}

// HTTPForecaster calls the forecasting service over HTTP.
type HTTPForecaster struct {
	baseURL string
	client  *http.Client
}

func NewHTTPForecaster(baseURL string, timeout time.Duration) *HTTPForecaster {
	return &HTTPForecaster{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type forecastRequest struct {
	ItemID      string `json:"item_id"`
	CutoffDate  string `json:"cutoff_date"`
	HorizonDays int    `json:"horizon_days"`
}

type forecastResponse struct {
	Series []float64 `json:"series"`
}

func (f *HTTPForecaster) Generate(ctx context.Context, itemID string, cutoff time.Time, horizonDays int) ([]float64, error) {
	payload, err := json.Marshal(forecastRequest{
		ItemID:      itemID,
		CutoffDate:  cutoff.Format("2006-01-02"),
		HorizonDays: horizonDays,
	})
	if err != nil {
		return nil, fmt.Errorf("encode forecast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.baseURL+"/forecast", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build forecast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forecast service returned status %d", resp.StatusCode)
	}

	var out forecastResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	if len(out.Series) == 0 {
		return nil, fmt.Errorf("forecast service returned an empty series")
	}

	return out.Series, nil
}
