package router

import (
	"maps"
	"net/http"
	"slices"
	"strings"
)

// Environment keys read by FromEnv. They follow the CGI naming the host
// environment uses for request metadata.
const (
	EnvRequestMethod  = "REQUEST_METHOD"
	EnvRequestURI     = "REQUEST_URI"
	EnvContentType    = "CONTENT_TYPE"
	EnvAuthorization  = "HTTP_AUTHORIZATION"
	EnvHost           = "HOST"
	EnvHTTPHost       = "HTTP_HOST"
	EnvAcceptEncoding = "HTTP_ACCEPT_ENCODING"
)

// RequestContext is a read-only snapshot of one inbound request. Nullable
// fields are pointers; use the accessors.
type RequestContext struct {
	Method         Method
	uri            *string
	contentType    *string
	authorization  *string
	host           *string
	acceptEncoding *string
}

// FromEnv builds a RequestContext from environment-style key/value pairs.
// Keys are matched case-insensitively; when several keys differ only in
// case the upper-case one wins, then the first in sorted order. It never
// fails: absent values stay nil and unknown methods become MethodUnknown.
func FromEnv(env map[string]string) RequestContext {
	upper := make(map[string]string, len(env))
	for _, k := range slices.Sorted(maps.Keys(env)) {
		key := strings.ToUpper(k)
		if _, seen := upper[key]; seen && k != key {
			continue
		}
		upper[key] = env[k]
	}

	rc := RequestContext{Method: MethodUnknown}
	if raw, ok := upper[EnvRequestMethod]; ok {
		rc.Method = ParseMethod(raw)
	}
	if raw, ok := upper[EnvRequestURI]; ok {
		rc.uri = &raw
	}
	if raw, ok := upper[EnvContentType]; ok {
		lowered := strings.ToLower(raw)
		rc.contentType = &lowered
	}
	if raw, ok := upper[EnvAuthorization]; ok {
		trimmed := strings.TrimSpace(raw)
		rc.authorization = &trimmed
	}
	if raw, ok := upper[EnvHost]; ok {
		rc.host = &raw
	} else if raw, ok := upper[EnvHTTPHost]; ok {
		rc.host = &raw
	}
	if raw, ok := upper[EnvAcceptEncoding]; ok {
		rc.acceptEncoding = &raw
	}
	return rc
}

// EnvFromRequest renders a net/http request into the CGI-style mapping
// consumed by FromEnv. Headers that are absent on the request are left out.
func EnvFromRequest(r *http.Request) map[string]string {
	env := map[string]string{
		EnvRequestMethod: r.Method,
		EnvRequestURI:    r.RequestURI,
	}
	if env[EnvRequestURI] == "" && r.URL != nil {
		env[EnvRequestURI] = r.URL.RequestURI()
	}
	if r.Host != "" {
		env[EnvHost] = r.Host
	}
	for name, values := range r.Header {
		if len(values) == 0 {
			continue
		}
		key := strings.ToUpper(strings.ReplaceAll(name, "-", "_"))
		if key == "CONTENT_TYPE" || key == "CONTENT_LENGTH" {
			env[key] = values[0]
			continue
		}
		env["HTTP_"+key] = strings.Join(values, ", ")
	}
	return env
}

func deref(p *string) (string, bool) {
	if p == nil {
		return "", false
	}
	return *p, true
}

// URI returns the raw request URI, if one was supplied.
func (rc RequestContext) URI() (string, bool) { return deref(rc.uri) }

// ContentType returns the lowercased content type, if one was supplied.
func (rc RequestContext) ContentType() (string, bool) { return deref(rc.contentType) }

// Authorization returns the trimmed Authorization header, if one was supplied.
func (rc RequestContext) Authorization() (string, bool) { return deref(rc.authorization) }

// Host returns the Host header, if one was supplied.
func (rc RequestContext) Host() (string, bool) { return deref(rc.host) }

// AcceptEncoding returns the raw Accept-Encoding header, if one was supplied.
func (rc RequestContext) AcceptEncoding() (string, bool) { return deref(rc.acceptEncoding) }

// Path is the URI with the query string stripped. A missing or empty URI
// is treated as "/".
func (rc RequestContext) Path() string {
	uri, ok := rc.URI()
	if !ok || uri == "" {
		return "/"
	}
	if i := strings.IndexAny(uri, "?#"); i >= 0 {
		uri = uri[:i]
	}
	if uri == "" {
		return "/"
	}
	return uri
}

// AcceptsGzip reports whether the client listed gzip in Accept-Encoding.
func (rc RequestContext) AcceptsGzip() bool {
	enc, ok := rc.AcceptEncoding()
	return ok && strings.Contains(enc, "gzip")
}
