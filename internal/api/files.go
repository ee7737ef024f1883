package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"docforms/pkg/models"
)

// DownloadURL asks for a presigned URL of a stored file. templateID is
// required for converted files.
func (c *Client) DownloadURL(ctx context.Context, fileID string, fileType models.FileType, templateID string) (*models.DownloadURLResponse, error) {
	q := url.Values{"type": {string(fileType)}}
	if templateID != "" {
		q.Set("template_id", templateID)
	}
	var out models.DownloadURLResponse
	req := request{op: "DownloadURL", method: http.MethodGet, path: "/files/" + url.PathEscape(fileID) + "/download", query: q}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Download copies the file behind a presigned URL to w. No bearer token is sent.
func (c *Client) Download(ctx context.Context, presignedURL string, w io.Writer) (int64, error) {
	const op = "Download"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, presignedURL, nil)
	if err != nil {
		return 0, fmt.Errorf("%s: failed to build request: %w", op, err)
	}
	resp, err := c.download.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s: request failed: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, c.responseError(op, resp)
	}
	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("%s: failed to read file: %w", op, err)
	}
	return n, nil
}
