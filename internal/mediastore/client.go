// Package mediastore получает байты ассетов из внешнего медиахранилища.
package mediastore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"delivery_portal/internal/domain/models"
	"delivery_portal/internal/lib/logger/sl"

	imrocreq "github.com/imroc/req/v3"
)

// Asset открытый поток ассета. Вызывающий обязан закрыть Body.
type Asset struct {
	Body          io.ReadCloser
	ContentType   string
	ContentLength int64
}

type Client struct {
	log *slog.Logger
	req *imrocreq.Client
}

// New настраивает клиента: baseURL применяется к относительным ссылкам,
// ответы 5xx и сетевые ошибки повторяются retries раз.
func New(log *slog.Logger, baseURL string, timeout time.Duration, retries int) *Client {
	c := imrocreq.C().
		SetTimeout(timeout).
		SetCommonRetryCount(retries).
		SetCommonRetryBackoffInterval(200*time.Millisecond, 2*time.Second).
		SetCommonRetryCondition(func(resp *imrocreq.Response, err error) bool {
			return err != nil || (resp != nil && resp.StatusCode >= http.StatusInternalServerError)
		})
	if baseURL != "" {
		c.SetBaseURL(baseURL)
	}

	return &Client{log: log, req: c}
}

// Fetch открывает поток ассета по url. Любая ошибка получения оборачивается в ErrUpstreamFetch.
func (c *Client) Fetch(ctx context.Context, url string) (*Asset, error) {
	const op = "mediastore.Client.Fetch"
	log := c.log.With(slog.String("op", op), slog.String("url", url))

	resp, err := c.req.R().
		SetContext(ctx).
		DisableAutoReadResponse().
		Get(url)
	if err != nil {
		log.Error("fetch failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w: %v", op, models.ErrUpstreamFetch, err)
	}

	if !resp.IsSuccessState() {
		_ = resp.Body.Close()
		log.Error("unexpected upstream status", slog.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%s: %w: status %d", op, models.ErrUpstreamFetch, resp.StatusCode)
	}

	return &Asset{
		Body:          resp.Body,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
	}, nil
}
