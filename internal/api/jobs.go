package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"docforms/pkg/models"
)

func (c *Client) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	var out models.Job
	req := request{op: "GetJob", method: http.MethodGet, path: "/jobs/" + url.PathEscape(jobID)}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PollJob long-polls a job. The backend holds the request for up to the
// configured poll timeout and answers with the current snapshot.
func (c *Client) PollJob(ctx context.Context, jobID string) (*models.Job, error) {
	var out models.Job
	req := request{
		op:      "PollJob",
		method:  http.MethodGet,
		path:    "/jobs/" + url.PathEscape(jobID) + "/poll",
		query:   url.Values{"timeout": {strconv.Itoa(c.pollTimeout)}},
		timeout: time.Duration(c.pollTimeout)*time.Second + pollGrace,
	}
	if err := c.do(ctx, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
