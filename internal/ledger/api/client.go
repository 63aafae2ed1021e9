package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"sentinel-ledger/pkg/httpclient"
)

// 列表接口的默认与最大分页大小
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Client 后端 REST 资源的类型化封装
type Client struct {
	http *httpclient.HTTPClient
}

func NewClient(http *httpclient.HTTPClient) *Client {
	return &Client{http: http}
}

func (c *Client) HTTP() *httpclient.HTTPClient {
	return c.http
}

// getList 读取列表接口并做形状归一化
func getList[T any](ctx context.Context, c *Client, path string, params map[string]string) ([]T, error) {
	raw, err := c.http.GetRaw(ctx, path, params)
	if err != nil {
		return nil, err
	}
	items, err := DecodeList[T](raw)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", path, err)
	}
	return items, nil
}

func getOne[T any](ctx context.Context, c *Client, path string, params map[string]string) (*T, error) {
	var out T
	if err := c.http.Get(ctx, path, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func postList[T any](ctx context.Context, c *Client, path string, body any) ([]T, error) {
	var raw json.RawMessage
	if err := c.http.PostJSON(ctx, path, body, &raw); err != nil {
		return nil, err
	}
	items, err := DecodeList[T](raw)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	return items, nil
}

func segment(s string) string {
	return url.PathEscape(s)
}

// clampLimit 超出范围时回到默认值或上限
func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
