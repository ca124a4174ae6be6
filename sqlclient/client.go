// Package sqlclient is a small synchronous client for the BongoDB wire
// protocol.
package sqlclient

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/tuannm99/bongodb/server/bongowire"
)

// Result is the decoded response of one statement. Data is nil for
// non-SELECT statements; for SELECT it holds rows of JSON-decoded values
// (float64 for INT, bool, string, nil for NULL).
type Result struct {
	Data [][]any
}

// wireResponse mirrors the server envelope with loosely typed cells.
type wireResponse struct {
	Successful int     `json:"successful"`
	Error      *string `json:"error"`
	Data       [][]any `json:"data"`
}

// Client is a simple synchronous client. It locks send/recv so you can
// call Exec concurrently but calls will serialize; the protocol answers
// requests strictly in order.
type Client struct {
	conn net.Conn
	mu   sync.Mutex

	// Optional per-request timeout (0 = no timeout).
	rwTimeout time.Duration
}

func Dial(addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.Dial("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: c}, nil
}

func DialContext(ctx context.Context, addr string, timeout time.Duration) (*Client, error) {
	d := net.Dialer{Timeout: timeout}
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Client{conn: c}, nil
}

// SetRWTimeout sets a per-Exec read/write deadline.
// Useful to avoid hanging forever if the server dies.
func (c *Client) SetRWTimeout(d time.Duration) {
	if c == nil {
		return
	}
	c.rwTimeout = d
}

func (c *Client) Close() error {
	if c == nil || c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func (c *Client) Exec(sql string) (*Result, error) {
	return c.ExecContext(context.Background(), sql)
}

func (c *Client) ExecContext(ctx context.Context, sql string) (*Result, error) {
	if c == nil || c.conn == nil {
		return nil, fmt.Errorf("sqlclient: nil client")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.applyDeadline(ctx); err != nil {
		return nil, err
	}
	defer func() {
		// Clear deadline after request so an idle connection doesn't expire.
		_ = c.conn.SetDeadline(time.Time{})
	}()

	req := bongowire.ExecuteRequest{SQL: sql}
	if err := bongowire.WriteFrame(c.conn, req); err != nil {
		return nil, err
	}

	var resp wireResponse
	if err := bongowire.ReadFrame(c.conn, &resp); err != nil {
		return nil, err
	}

	if resp.Successful != 0 {
		msg := "unknown server error"
		if resp.Error != nil {
			msg = *resp.Error
		}
		return nil, errors.New(msg)
	}
	return &Result{Data: resp.Data}, nil
}

func (c *Client) applyDeadline(ctx context.Context) error {
	// Prefer context deadline if present; otherwise use rwTimeout.
	if dl, ok := ctx.Deadline(); ok {
		return c.conn.SetDeadline(dl)
	}
	if c.rwTimeout > 0 {
		return c.conn.SetDeadline(time.Now().Add(c.rwTimeout))
	}
	return nil
}
