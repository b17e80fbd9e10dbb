package protocol

import (
	"net/url"
	"strings"

	"github.com/artpar/shapewire/domain/transport"
)

// applyEndpoint copies the endpoint location onto req, merging query
// parameters.
func applyEndpoint(req *transport.Request, e transport.Endpoint) {
	u := e.URL
	req.Protocol = u.Protocol
	req.Hostname = u.Hostname
	req.Port = u.Port
	req.Path = u.Path
	req.Fragment = u.Hash
	req.Username = u.Username
	req.Password = u.Password
	for k, v := range u.Query {
		req.SetQuery(k, v)
	}
}

// joinPath appends an operation path to the endpoint base path.
func joinPath(base, path string) string {
	base = strings.TrimRight(base, "/")
	if path == "" {
		if base == "" {
			return "/"
		}
		return base
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

// escapeLabel percent-escapes a label value. Greedy labels keep their
// slashes.
func escapeLabel(value string, greedy bool) string {
	if !greedy {
		return url.PathEscape(value)
	}
	segments := strings.Split(value, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// substituteLabel replaces {name} or {name+} in path. It reports whether a
// placeholder was found.
func substituteLabel(path, name, value string) (string, bool) {
	if p := "{" + name + "+}"; strings.Contains(path, p) {
		return strings.Replace(path, p, escapeLabel(value, true), 1), true
	}
	if p := "{" + name + "}"; strings.Contains(path, p) {
		return strings.Replace(path, p, escapeLabel(value, false), 1), true
	}
	return path, false
}
