package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"hypnotools/internal/model"
)

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ",")
}

// ValidateForDeletion 校验待删除客户
func (c *Client) ValidateForDeletion(ctx context.Context, ids []int) (*model.DeletionValidation, error) {
	var resp model.DeletionValidation
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/clients/validate-for-deletion",
		query:  url.Values{"clientIds": {joinIDs(ids)}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to validate clients for deletion: %w", err)
	}
	return &resp, nil
}

// AffectedTablesStats 受影响表统计
func (c *Client) AffectedTablesStats(ctx context.Context, ids []int) ([]model.AffectedTableStat, error) {
	var resp []model.AffectedTableStat
	err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/clients/affected-tables-stats",
		query:  url.Values{"clientIds": {joinIDs(ids)}},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to load affected tables: %w", err)
	}
	return resp, nil
}

// bulkDeleteBody 后端只接收这三个字段
type bulkDeleteBody struct {
	ClientIDs []int  `json:"clientIds"`
	Reason    string `json:"reason"`
	UserEmail string `json:"userEmail"`
}

// BulkDelete 批量删除
func (c *Client) BulkDelete(ctx context.Context, req model.DeletionRequest) (*model.DeletionResponse, error) {
	var resp model.DeletionResponse
	err := c.do(ctx, request{
		method: http.MethodDelete,
		path:   "/clients/bulk-delete",
		body: bulkDeleteBody{
			ClientIDs: req.ClientIDs,
			Reason:    req.Reason,
			UserEmail: req.UserEmail,
		},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("failed to delete clients: %w", err)
	}
	return &resp, nil
}

// DeletionLogs 删除日志文件列表
func (c *Client) DeletionLogs(ctx context.Context) ([]string, error) {
	var resp []string
	if err := c.do(ctx, request{method: http.MethodGet, path: "/clients/deletion-logs"}, &resp); err != nil {
		return nil, fmt.Errorf("failed to list deletion logs: %w", err)
	}
	return resp, nil
}

// DownloadDeletionLog 下载删除日志原文
func (c *Client) DownloadDeletionLog(ctx context.Context, name string) ([]byte, string, error) {
	if strings.TrimSpace(name) == "" || strings.ContainsAny(name, `/\`) {
		return nil, "", fmt.Errorf("invalid log name: %q", name)
	}
	raw, contentType, err := c.doRaw(ctx, request{
		method: http.MethodGet,
		path:   "/clients/deletion-log/" + url.PathEscape(name),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to download deletion log: %w", err)
	}
	return raw, contentType, nil
}
