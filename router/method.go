package router

import "strings"

// Method is the closed set of request methods the router understands.
type Method int

const (
	MethodUnknown Method = iota
	MethodGet
	MethodPost
	MethodPut
	MethodPatch
	MethodDelete
	MethodOptions
	MethodHead
)

var methodNames = map[Method]string{
	MethodGet:     "GET",
	MethodPost:    "POST",
	MethodPut:     "PUT",
	MethodPatch:   "PATCH",
	MethodDelete:  "DELETE",
	MethodOptions: "OPTIONS",
	MethodHead:    "HEAD",
	MethodUnknown: "UNKNOWN",
}

var methodsByName = map[string]Method{
	"GET":     MethodGet,
	"POST":    MethodPost,
	"PUT":     MethodPut,
	"PATCH":   MethodPatch,
	"DELETE":  MethodDelete,
	"OPTIONS": MethodOptions,
	"HEAD":    MethodHead,
}

// ParseMethod maps a raw method string onto the enum. The comparison is
// case-insensitive and anything outside the known set becomes MethodUnknown.
func ParseMethod(raw string) Method {
	if m, ok := methodsByName[strings.ToUpper(raw)]; ok {
		return m
	}
	return MethodUnknown
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}
