// Package everhour pushes meeting durations to the Everhour time tracker.
package everhour

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	appLog "weekhours/internal/log"
	"weekhours/internal/model"
)

// DefaultBaseURL is the public Everhour API.
const DefaultBaseURL = "https://api.everhour.com"

var (
	ErrNoToken   = errors.New("everhour: token is not configured")
	ErrNoProject = errors.New("everhour: meeting has no project")
	ErrNoTaskID  = errors.New("everhour: project has no task id")
	ErrNoEvents  = errors.New("everhour: no events with this title")
)

// Client talks to the Everhour REST API with a personal API token.
// Requests are paced to stay under the API's rate limit.
type Client struct {
	token   string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

// TimeEntry is one time record created by SendTitle.
type TimeEntry struct {
	ID      string `json:"id"`
	TaskID  string `json:"task_id"`
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}

// NewClient returns a client for baseURL (DefaultBaseURL when empty).
func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		token:   strings.TrimSpace(token),
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Second/2), 5),
	}
}

type timeEntryRequest struct {
	Task    string `json:"task"`
	Date    string `json:"date"`
	Time    int    `json:"time"`
	Comment string `json:"comment"`
}

type timeEntryResponse struct {
	ID json.RawMessage `json:"id"`
}

// AddTime records minutes on taskID for date (YYYY-MM-DD) and returns the
// created entry id, which may be empty if the API did not report one.
func (c *Client) AddTime(ctx context.Context, taskID, date string, minutes int, comment string) (string, error) {
	if c.token == "" {
		return "", ErrNoToken
	}
	body, err := json.Marshal(timeEntryRequest{
		Task:    taskID,
		Date:    date,
		Time:    minutes * 60,
		Comment: comment,
	})
	if err != nil {
		return "", err
	}

	endpoint := c.baseURL + "/tasks/" + url.PathEscape(taskID) + "/time"
	respBody, err := c.do(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return "", err
	}

	var out timeEntryResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		// The entry exists even if the body is not what we expect.
		appLog.Warn("everhour add time: unreadable response", "task", taskID, "date", date)
		return "", nil
	}
	return entryID(out.ID), nil
}

// DeleteTime removes a time entry previously returned by AddTime.
func (c *Client) DeleteTime(ctx context.Context, id string) error {
	if c.token == "" {
		return ErrNoToken
	}
	_, err := c.do(ctx, http.MethodDelete, c.baseURL+"/time/"+url.PathEscape(id), nil)
	return err
}

// SendTitle posts one time entry for each occurrence of title, charged to
// project's task. It stops at the first failed request and returns the
// entries created so far along with the error.
func (c *Client) SendTitle(ctx context.Context, title string, project model.Project, occurrences []model.ParsedEvent) ([]TimeEntry, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	if project.Name == "" {
		return nil, ErrNoProject
	}
	taskID := project.TaskID
	if taskID == "" {
		return nil, ErrNoTaskID
	}
	if len(occurrences) == 0 {
		return nil, ErrNoEvents
	}

	sent := make([]TimeEntry, 0, len(occurrences))
	for _, ev := range occurrences {
		id, err := c.AddTime(ctx, taskID, ev.Date, ev.Duration, ev.Comment)
		if err != nil {
			return sent, fmt.Errorf("everhour: send %q on %s: %w", title, ev.Date, err)
		}
		if id != "" {
			sent = append(sent, TimeEntry{ID: id, TaskID: taskID, Date: ev.Date, Minutes: ev.Duration})
		}
	}
	appLog.Info("everhour entries created", "title", title, "project", project.Name, "count", len(sent))
	return sent, nil
}

// RemoveEntries deletes every id, logging failures. It returns the ids that
// were removed and the first error.
func (c *Client) RemoveEntries(ctx context.Context, ids []string) ([]string, error) {
	if c.token == "" {
		return nil, ErrNoToken
	}
	removed := make([]string, 0, len(ids))
	var firstErr error
	for _, id := range ids {
		if err := c.DeleteTime(ctx, id); err != nil {
			appLog.Error("everhour delete failed", err, "id", id)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		removed = append(removed, id)
	}
	return removed, firstErr
}

func (c *Client) do(ctx context.Context, method, endpoint string, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("everhour: %s %s: unexpected status %d", method, endpoint, resp.StatusCode)
	}
	return data, nil
}

// entryID accepts both numeric and string ids.
func entryID(raw json.RawMessage) string {
	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return ""
	}
	if unq, err := strconv.Unquote(s); err == nil {
		return unq
	}
	return s
}
