package cache

import (
	"bytes"
	"io"
	"net/http"
	"time"
)

// Entry is one captured response: body, headers, and status, plus the moment
// it was cached.
type Entry struct {
	Status   int         `json:"status"`
	Header   http.Header `json:"header"`
	Body     []byte      `json:"body"`
	CachedAt time.Time   `json:"cached_at"`
}

// Success reports whether the entry captured a success-status response; only
// these are storable.
func (e Entry) Success() bool {
	return e.Status >= 200 && e.Status < 300
}

// Response materializes the entry as an *http.Response for req.
func (e Entry) Response(req *http.Request) *http.Response {
	return &http.Response{
		StatusCode:    e.Status,
		Status:        http.StatusText(e.Status),
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        e.Header.Clone(),
		Body:          io.NopCloser(bytes.NewReader(e.Body)),
		ContentLength: int64(len(e.Body)),
		Request:       req,
	}
}

// Capture consumes resp.Body into an Entry and hands back an equivalent
// response the caller can still read. The captured body is a clone: storing
// the entry never leaves the in-flight response consumed.
func Capture(resp *http.Response, now time.Time) (Entry, *http.Response, error) {
	body, err := io.ReadAll(resp.Body)
	closeErr := resp.Body.Close()
	if err != nil {
		return Entry{}, nil, err
	}
	if closeErr != nil {
		return Entry{}, nil, closeErr
	}

	entry := Entry{
		Status:   resp.StatusCode,
		Header:   resp.Header.Clone(),
		Body:     body,
		CachedAt: now,
	}

	resp.Body = io.NopCloser(bytes.NewReader(body))
	return entry, resp, nil
}
