package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"golang.org/x/net/html/charset"
)

// Body is a request payload
type Body interface {
	apply(req *resty.Request)
}

type formBody url.Values

func (b formBody) apply(req *resty.Request) {
	req.SetFormDataFromValues(url.Values(b))
}

// FormBody encodes values as application/x-www-form-urlencoded
func FormBody(values url.Values) Body {
	return formBody(values)
}

type rawForm string

func (b rawForm) apply(req *resty.Request) {
	req.SetHeader("Content-Type", "application/x-www-form-urlencoded")
	req.SetBody(string(b))
}

// OrderedFormBody encodes key/value pairs in the order given. Some portals
// reject bodies whose fields arrive in a different order.
func OrderedFormBody(pairs ...string) Body {
	if len(pairs)%2 != 0 {
		panic("transport: OrderedFormBody needs key/value pairs")
	}
	var sb strings.Builder
	for i := 0; i < len(pairs); i += 2 {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(pairs[i]))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(pairs[i+1]))
	}
	return rawForm(sb.String())
}

// RequestOption customises a single request
type RequestOption func(req *resty.Request)

// WithHeader sets a request header
func WithHeader(key, value string) RequestOption {
	return func(req *resty.Request) {
		req.SetHeader(key, value)
	}
}

// WithReferer sets the Referer header
func WithReferer(ref string) RequestOption {
	return WithHeader("Referer", ref)
}

// WithQuery adds query parameters to the request URL
func WithQuery(values url.Values) RequestOption {
	return func(req *resty.Request) {
		req.SetQueryParamsFromValues(values)
	}
}

// Response is a fully read HTTP response
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	URL        string
}

func newResponse(resp *resty.Response) *Response {
	r := &Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
	if resp.RawResponse != nil && resp.RawResponse.Request != nil {
		r.URL = resp.RawResponse.Request.URL.String()
	}
	return r
}

// Text decodes the body using the declared or sniffed charset and drops a
// leading byte order mark
func (r *Response) Text() string {
	text := string(r.Body)
	if cr, err := charset.NewReader(bytes.NewReader(r.Body), r.Header.Get("Content-Type")); err == nil {
		if decoded, err := io.ReadAll(cr); err == nil {
			text = string(decoded)
		}
	}
	return strings.TrimPrefix(text, "\ufeff")
}

// JSON decodes the body into v
func (r *Response) JSON(v any) error {
	body := bytes.TrimPrefix(r.Body, []byte("\xef\xbb\xbf"))
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Error reports a request that failed after all retries
type Error struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s failed after %d attempt(s): %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// StatusError is the cause recorded for an HTTP error status
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	if e.Status != "" {
		return "unexpected status " + e.Status
	}
	return fmt.Sprintf("unexpected status %d", e.Code)
}
