// Package tushare 封裝 tushare pro 的 HTTP 介面，含請求節流、重試與錯誤分類。
package tushare

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"sector-flow/internal/domain/taxonomy"
	"sector-flow/internal/infrastructure/config"
)

// ErrRateLimited 表示觸發 tushare 的呼叫頻率上限，重試後仍失敗。
var ErrRateLimited = errors.New("tushare rate limited")

const (
	maxRetries           = 3
	retryDelay           = 500 * time.Millisecond
	retryDelayRateLimit  = 5 * time.Second
	defaultClientTimeout = 15 * time.Second
)

// Client 對 tushare pro 發出 api_name + params 形式的 JSON 請求。
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient 建立 tushare 客戶端，依設定的每分鐘額度節流。
func NewClient(cfg config.ProviderConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClientTimeout
	}
	perMin := cfg.RatePerMinute
	if perMin <= 0 {
		perMin = 180
	}
	return &Client{
		token:      cfg.Token,
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
	}
}

// resultRows 為一次查詢的表格結果：data.fields 給欄位名，data.items 給資料列。
type resultRows struct {
	fields map[string]int
	items  []gjson.Result
}

func (r resultRows) len() int { return len(r.items) }

func (r resultRows) col(i int, field string) gjson.Result {
	idx, ok := r.fields[field]
	if !ok {
		return gjson.Result{}
	}
	cols := r.items[i].Array()
	if idx >= len(cols) {
		return gjson.Result{}
	}
	return cols[idx]
}

func (r resultRows) str(i int, field string) string  { return r.col(i, field).String() }
func (r resultRows) num(i int, field string) float64 { return r.col(i, field).Float() }

// call 送出單一查詢並解析回應，網路錯誤與頻率限制依序退避重試。
func (c *Client) call(ctx context.Context, apiName string, params map[string]string) (resultRows, error) {
	payload, err := json.Marshal(map[string]any{
		"api_name": apiName,
		"token":    c.token,
		"params":   params,
		"fields":   "",
	})
	if err != nil {
		return resultRows{}, fmt.Errorf("marshal %s request: %w", apiName, err)
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := retryDelay * time.Duration(attempt)
			if errors.Is(lastErr, ErrRateLimited) {
				backoff = retryDelayRateLimit
			}
			select {
			case <-ctx.Done():
				return resultRows{}, ctx.Err()
			case <-time.After(backoff):
			}
		}
		if err := c.limiter.Wait(ctx); err != nil {
			return resultRows{}, err
		}

		rows, err := c.doCall(ctx, apiName, payload)
		if err == nil {
			return rows, nil
		}
		// 權限不足重試無益，直接回報
		if errors.Is(err, taxonomy.ErrPermissionDenied) {
			return resultRows{}, err
		}
		lastErr = err
	}
	return resultRows{}, fmt.Errorf("%s after %d attempts: %w", apiName, maxRetries, lastErr)
}

func (c *Client) doCall(ctx context.Context, apiName string, payload []byte) (resultRows, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return resultRows{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return resultRows{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resultRows{}, fmt.Errorf("read %s body: %w", apiName, err)
	}
	if resp.StatusCode != http.StatusOK {
		return resultRows{}, fmt.Errorf("%s http %d", apiName, resp.StatusCode)
	}

	if code := gjson.GetBytes(body, "code").Int(); code != 0 {
		return resultRows{}, classifyAPIError(apiName, code, gjson.GetBytes(body, "msg").String())
	}

	fieldList := gjson.GetBytes(body, "data.fields")
	items := gjson.GetBytes(body, "data.items")
	if !fieldList.IsArray() {
		return resultRows{}, fmt.Errorf("%s: malformed response, no data.fields", apiName)
	}
	rows := resultRows{fields: make(map[string]int)}
	for i, f := range fieldList.Array() {
		rows.fields[f.String()] = i
	}
	rows.items = items.Array()
	return rows, nil
}

// classifyAPIError 依回應訊息歸類錯誤：積分或權限不足、頻率限制、其他。
func classifyAPIError(apiName string, code int64, msg string) error {
	switch {
	case strings.Contains(msg, "权限") || strings.Contains(msg, "积分") || code == 40203:
		return fmt.Errorf("%s: %s: %w", apiName, msg, taxonomy.ErrPermissionDenied)
	case strings.Contains(msg, "每分钟") || strings.Contains(msg, "频率") || code == 40101:
		return fmt.Errorf("%s: %s: %w", apiName, msg, ErrRateLimited)
	default:
		return fmt.Errorf("%s: api error code=%d msg=%s", apiName, code, msg)
	}
}
