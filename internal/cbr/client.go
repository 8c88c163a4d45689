// Package cbr fetches daily exchange rates from the Central Bank of Russia XML feed.
package cbr

import (
	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/models"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"
)

const (
	DefaultBaseURL = "https://www.cbr.ru/scripts/XML_daily.asp"

	// формат даты, который ожидает ЦБ в параметре date_req
	requestDateLayout = "02/01/2006"
)

type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) (map[string]float64, error)
}

type valCurs struct {
	XMLName xml.Name `xml:"ValCurs"`
	Date    string   `xml:"Date,attr"`
	Valutes []valute `xml:"Valute"`
}

type valute struct {
	CharCode string `xml:"CharCode"`
	Nominal  string `xml:"Nominal"`
	Value    string `xml:"Value"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// Fetch returns code→rate for the given date. The rate is per single unit of the
// foreign currency, rounded to 6 decimal places.
func (c *Client) Fetch(ctx context.Context, date time.Time) (map[string]float64, error) {
	const op = "cbr.Fetch"

	reqURL, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrSourceUnavailable, err)
	}
	q := reqURL.Query()
	q.Set("date_req", date.Format(requestDateLayout))
	reqURL.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrSourceUnavailable, err)
	}

	c.log.Debug("запрос курсов ЦБ", slog.String("op", op), slog.String("url", reqURL.String()))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, custom_err.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s: %w: unexpected status %d", op, custom_err.ErrSourceUnavailable, resp.StatusCode)
	}

	rates, err := Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.log.Debug("курсы ЦБ получены",
		slog.String("op", op),
		slog.String("date", date.Format("2006-01-02")),
		slog.Int("currencies", len(rates)))

	return rates, nil
}

// Parse decodes a ValCurs document. The feed is served in windows-1251.
func Parse(r io.Reader) (map[string]float64, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var doc valCurs
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", custom_err.ErrSourceMalformed, err)
	}

	if len(doc.Valutes) == 0 {
		return nil, fmt.Errorf("%w: no quotations in feed", custom_err.ErrNotFound)
	}

	rates := make(map[string]float64, len(doc.Valutes))
	for _, v := range doc.Valutes {
		code := strings.TrimSpace(v.CharCode)
		if code == "" {
			return nil, fmt.Errorf("%w: empty CharCode", custom_err.ErrSourceMalformed)
		}

		rate, err := unitRate(v.Value, v.Nominal)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", custom_err.ErrSourceMalformed, code, err)
		}
		rates[code] = rate
	}

	return rates, nil
}

func unitRate(value, nominal string) (float64, error) {
	v, err := parseDecimal(value)
	if err != nil {
		return 0, fmt.Errorf("value %q: %w", value, err)
	}
	n, err := parseDecimal(nominal)
	if err != nil {
		return 0, fmt.Errorf("nominal %q: %w", nominal, err)
	}
	if !n.IsPositive() {
		return 0, fmt.Errorf("nominal must be positive, got %s", n)
	}

	return models.RoundRate(v.Div(n)).InexactFloat64(), nil
}

func parseDecimal(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	return decimal.NewFromString(s)
}

func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1251", "cp1251":
		return charmap.Windows1251.NewDecoder().Reader(input), nil
	case "utf-8", "utf8", "":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported charset %q", label)
}
