// Package pusher fetches one day of rates from the central bank and posts them to the ingest endpoint.
package pusher

import (
	"bytes"
	"cbr-rates/internal/cbr"
	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/models"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const ingestPath = "/api/ingest"

type TokenIssuer interface {
	GenerateToken(subject string) (string, error)
}

type Pusher struct {
	fetcher    cbr.Fetcher
	tokens     TokenIssuer
	subject    string
	apiURL     string
	httpClient *http.Client
	log        *slog.Logger
}

func New(fetcher cbr.Fetcher, tokens TokenIssuer, subject, apiURL string, timeout time.Duration, log *slog.Logger) *Pusher {
	return &Pusher{
		fetcher:    fetcher,
		tokens:     tokens,
		subject:    subject,
		apiURL:     strings.TrimRight(apiURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

func (p *Pusher) Push(ctx context.Context, day time.Time) (*models.IngestResponse, error) {
	const op = "pusher.Push"
	date := day.Format(models.DateLayout)

	rates, err := p.fetcher.Fetch(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("%s: fetch %s: %w", op, date, err)
	}
	if len(rates) == 0 {
		return nil, fmt.Errorf("%s: %w: no rates for %s", op, custom_err.ErrNotFound, date)
	}

	token, err := p.tokens.GenerateToken(p.subject)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	body, err := json.Marshal(models.IngestRequest{Date: date, Rates: rates})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL+ingestPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%s: ingest returned %d: %s", op, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out models.IngestResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}

	p.log.Info("курсы отправлены в сервис",
		slog.String("date", date),
		slog.Int("currencies", len(rates)),
		slog.Int("saved", out.Saved))
	return &out, nil
}
