// Package transport provides the transport-agnostic request and response
// value types produced and consumed by protocols.
package transport

import (
	"io"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Request is an outgoing request (value type). Body and Stream are
// mutually exclusive; Stream is used for streaming payloads.
type Request struct {
	Method   string
	Protocol string // "http" or "https"
	Hostname string
	Port     int
	Path     string
	Fragment string
	Username string
	Password string

	Headers map[string]string
	Query   map[string][]string

	Body   []byte
	Stream io.Reader
}

// NewRequest returns a GET request with initialized maps.
func NewRequest() *Request {
	return &Request{
		Method:   "GET",
		Protocol: "https",
		Path:     "/",
		Headers:  make(map[string]string),
		Query:    make(map[string][]string),
	}
}

// SetQuery replaces the values of a query parameter.
func (r *Request) SetQuery(key string, values ...string) {
	if r.Query == nil {
		r.Query = make(map[string][]string)
	}
	r.Query[key] = values
}

// AddQuery appends a value to a query parameter.
func (r *Request) AddQuery(key, value string) {
	if r.Query == nil {
		r.Query = make(map[string][]string)
	}
	r.Query[key] = append(r.Query[key], value)
}

// RawQuery encodes the query map with keys sorted.
func (r *Request) RawQuery() string {
	if len(r.Query) == 0 {
		return ""
	}
	keys := make([]string, 0, len(r.Query))
	for k := range r.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		vals := r.Query[k]
		if len(vals) == 0 {
			vals = []string{""}
		}
		for _, v := range vals {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

// URL renders the request target. Path is used as already escaped.
func (r *Request) URL() *url.URL {
	host := r.Hostname
	if r.Port != 0 {
		host += ":" + strconv.Itoa(r.Port)
	}
	u := &url.URL{
		Scheme:   strings.TrimSuffix(r.Protocol, ":"),
		Host:     host,
		RawQuery: r.RawQuery(),
		Fragment: r.Fragment,
	}
	if p, err := url.PathUnescape(r.Path); err == nil {
		u.Path = p
		u.RawPath = r.Path
	} else {
		u.Path = r.Path
	}
	if r.Username != "" || r.Password != "" {
		u.User = url.UserPassword(r.Username, r.Password)
	}
	return u
}

// ContentLength returns the length of an in-memory body, or -1 when the
// body is a stream.
func (r *Request) ContentLength() int64 {
	if r.Stream != nil {
		return -1
	}
	return int64(len(r.Body))
}

// Response is a received response (value type).
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       io.Reader
}

// Header looks a header up case-insensitively.
func (r *Response) Header(name string) (string, bool) {
	if v, ok := r.Headers[name]; ok {
		return v, true
	}
	for k, v := range r.Headers {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
