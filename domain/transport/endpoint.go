package transport

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Endpoint is a resolved service endpoint.
type Endpoint struct {
	URL EndpointURL
}

// EndpointURL is the decomposed endpoint URL.
type EndpointURL struct {
	Protocol string
	Hostname string
	Port     int
	Path     string
	Hash     string
	Username string
	Password string
	Query    map[string]string
}

// ParseEndpoint parses an absolute URL into an Endpoint.
func ParseEndpoint(raw string) (Endpoint, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Endpoint{}, fmt.Errorf("parse endpoint: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Endpoint{}, fmt.Errorf("parse endpoint: %q is not an absolute URL", raw)
	}

	e := EndpointURL{
		Protocol: u.Scheme,
		Hostname: u.Hostname(),
		Path:     u.EscapedPath(),
		Hash:     u.Fragment,
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return Endpoint{}, fmt.Errorf("parse endpoint port: %w", err)
		}
		e.Port = port
	}
	if u.User != nil {
		e.Username = u.User.Username()
		e.Password, _ = u.User.Password()
	}
	if q := u.Query(); len(q) > 0 {
		e.Query = make(map[string]string, len(q))
		for k, v := range q {
			e.Query[k] = strings.Join(v, ",")
		}
	}
	return Endpoint{URL: e}, nil
}

// String renders the endpoint URL.
func (e Endpoint) String() string {
	req := &Request{
		Protocol: e.URL.Protocol,
		Hostname: e.URL.Hostname,
		Port:     e.URL.Port,
		Path:     e.URL.Path,
		Fragment: e.URL.Hash,
		Username: e.URL.Username,
		Password: e.URL.Password,
	}
	for k, v := range e.URL.Query {
		req.SetQuery(k, v)
	}
	return req.URL().String()
}
