package swcache

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Snapshot is a stored response. Entries are immutable: callers that need to
// change a header work on Clone.
type Snapshot struct {
	Status     int         `json:"status" msgpack:"status" cbor:"status"`
	StatusText string      `json:"status_text" msgpack:"status_text" cbor:"status_text"`
	Header     http.Header `json:"header" msgpack:"header" cbor:"header"`
	Body       []byte      `json:"body" msgpack:"body" cbor:"body"`
}

func newSnapshot(resp *http.Response, body []byte) Snapshot {
	return Snapshot{
		Status:     resp.StatusCode,
		StatusText: resp.Status,
		Header:     resp.Header.Clone(),
		Body:       body,
	}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Header = s.Header.Clone()
	if out.Header == nil {
		out.Header = http.Header{}
	}
	out.Body = bytes.Clone(s.Body)
	return out
}

// Response materialises the snapshot as a fresh *http.Response for req.
// Each call returns an independent body reader.
func (s Snapshot) Response(req *http.Request) *http.Response {
	status := s.StatusText
	if status == "" {
		status = fmt.Sprintf("%d %s", s.Status, http.StatusText(s.Status))
	}
	header := s.Header.Clone()
	if header == nil {
		header = http.Header{}
	}
	if header.Get("Content-Length") == "" {
		header.Set("Content-Length", strconv.Itoa(len(s.Body)))
	}

	resp := &http.Response{
		Status:        status,
		StatusCode:    s.Status,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        header,
		ContentLength: int64(len(s.Body)),
		Request:       req,
	}
	if req != nil && req.Method == http.MethodHead {
		resp.Body = http.NoBody
	} else {
		resp.Body = io.NopCloser(bytes.NewReader(s.Body))
	}
	return resp
}
