package builtin

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"yqhp/stepflow/internal/plugin"
)

const defaultHTTPTimeout = 10.0

var (
	// 全局共享的 fasthttp 客户端，复用连接池
	httpClient         *fasthttp.Client
	httpClientOnce     sync.Once
	insecureClient     *fasthttp.Client
	insecureClientOnce sync.Once
)

func sharedHTTPClient(verifySSL bool) *fasthttp.Client {
	if verifySSL {
		httpClientOnce.Do(func() {
			httpClient = &fasthttp.Client{
				MaxConnsPerHost:     512,
				MaxIdleConnDuration: 90 * time.Second,
			}
		})
		return httpClient
	}
	insecureClientOnce.Do(func() {
		insecureClient = &fasthttp.Client{
			MaxConnsPerHost:     512,
			MaxIdleConnDuration: 90 * time.Second,
			TLSConfig:           &tls.Config{InsecureSkipVerify: true},
		}
	})
	return insecureClient
}

// HTTPRequest performs an HTTP request and exposes status, headers and
// body to the output mapping.
type HTTPRequest struct{}

// NewHTTPRequest creates the run_http_request plugin.
func NewHTTPRequest() *HTTPRequest { return &HTTPRequest{} }

func (p *HTTPRequest) Metadata() plugin.Metadata {
	return plugin.Metadata{
		Name:        "run_http_request",
		Version:     "1.0.0",
		Description: "Perform an HTTP request",
		Category:    "network",
		Tags:        []string{"http", "rest", "api"},
	}
}

func (p *HTTPRequest) Schema() plugin.Schema {
	return plugin.Schema{
		"url":        {Types: []plugin.ValueType{plugin.TypeString}, Required: true, Description: "request URL"},
		"method":     {Types: []plugin.ValueType{plugin.TypeString}, Description: "HTTP method (default GET)"},
		"data":       {Types: []plugin.ValueType{plugin.TypeMap}, Description: "request body, sent as JSON"},
		"headers":    {Types: []plugin.ValueType{plugin.TypeMap}, Description: "extra request headers"},
		"timeout":    {Types: []plugin.ValueType{plugin.TypeInt, plugin.TypeFloat}, Description: "request timeout in seconds"},
		"verify_ssl": {Types: []plugin.ValueType{plugin.TypeBool}, Description: "verify TLS certificates (default true)"},
		"fail_fast":  {Types: []plugin.ValueType{plugin.TypeBool}, Description: "treat status >= 400 as an error (default true)"},
	}
}

func (p *HTTPRequest) Execute(ctx context.Context, req *plugin.Request) (any, error) {
	url, err := plugin.RequiredParam[string](req.Params, "url")
	if err != nil {
		return nil, err
	}
	method := strings.ToUpper(plugin.OptionalParam(req.Params, "method", "GET"))
	timeout := seconds(req.Params, "timeout", defaultHTTPTimeout)
	verifySSL := plugin.OptionalParam(req.Params, "verify_ssl", true)
	headers := plugin.StringMap(req.Params, "headers")

	httpReq := fasthttp.AcquireRequest()
	httpResp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(httpReq)
	defer fasthttp.ReleaseResponse(httpResp)

	httpReq.SetRequestURI(url)
	httpReq.Header.SetMethod(method)
	for k, v := range headers {
		httpReq.Header.Set(k, v)
	}

	if data, ok := req.Params["data"].(map[string]any); ok {
		body, err := sonic.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		httpReq.SetBody(body)
		if len(httpReq.Header.ContentType()) == 0 {
			httpReq.Header.SetContentType("application/json")
		}
	}

	req.Logger.Debug("sending http request",
		zap.String("method", method), zap.String("url", url))

	start := time.Now()
	deadline := start.Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	if err := sharedHTTPClient(verifySSL).DoDeadline(httpReq, httpResp, deadline); err != nil {
		if err == fasthttp.ErrTimeout {
			return nil, fmt.Errorf("http request to %s timed out after %s", url, timeout)
		}
		return nil, fmt.Errorf("http request to %s failed: %w", url, err)
	}
	elapsed := time.Since(start)

	// 响应体是内部缓冲区的引用，必须复制
	body := make([]byte, len(httpResp.Body()))
	copy(body, httpResp.Body())

	respHeaders := make(map[string]string)
	httpResp.Header.VisitAll(func(key, value []byte) {
		k := string(key)
		if _, exists := respHeaders[k]; !exists {
			respHeaders[k] = string(value)
		}
	})

	statusCode := httpResp.StatusCode()
	status := "success"
	if statusCode >= fasthttp.StatusBadRequest {
		status = "failure"
		if failFast(req.Params) {
			return nil, fmt.Errorf("http %s %s returned %d %s",
				method, url, statusCode, fasthttp.StatusMessage(statusCode))
		}
	}

	return map[string]any{
		"url":         url,
		"method":      method,
		"status_code": statusCode,
		"headers":     respHeaders,
		"body":        string(body),
		"elapsed_ms":  elapsed.Milliseconds(),
		"status":      status,
	}, nil
}
