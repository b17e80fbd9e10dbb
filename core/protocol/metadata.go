package protocol

import "github.com/artpar/shapewire/domain/transport"

// ResponseMetadata is extracted from every response.
type ResponseMetadata struct {
	HTTPStatusCode    int
	RequestID         string
	ExtendedRequestID string
	CfID              string
}

var (
	requestIDHeaders         = []string{"x-amzn-requestid", "x-amzn-request-id", "x-amz-request-id"}
	extendedRequestIDHeaders = []string{"x-amz-id-2"}
	cfIDHeaders              = []string{"x-amz-cf-id"}
)

// Metadata reads the well-known metadata headers. Lookups are
// case-insensitive and the first header present wins.
func Metadata(resp *transport.Response) ResponseMetadata {
	return ResponseMetadata{
		HTTPStatusCode:    resp.StatusCode,
		RequestID:         firstHeader(resp, requestIDHeaders),
		ExtendedRequestID: firstHeader(resp, extendedRequestIDHeaders),
		CfID:              firstHeader(resp, cfIDHeaders),
	}
}

func firstHeader(resp *transport.Response, names []string) string {
	for _, name := range names {
		if v, ok := resp.Header(name); ok {
			return v
		}
	}
	return ""
}
