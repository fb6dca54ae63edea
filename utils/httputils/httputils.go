// Copyright 2025 The POIBench Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils provides the round trippers shared by the provider clients.
package httputils

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

/////////////////////////////////////////
/// RoundTrippers

// LoggingRoundTripper traces every HTTP transaction to a logger at debug level.
// Query parameters carrying API keys are redacted.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Logger    *zerolog.Logger
	DumpBody  bool
}

var secretParams = regexp.MustCompile(`((?:^|[?&\s])(?:key|apiKey|apikey)=)[^&\s]+`)

// Redact hides API keys embedded in URLs or request dumps.
func Redact(s string) string {
	return secretParams.ReplaceAllString(s, "${1}REDACTED")
}

// reduce the content of the lines.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		if len(line) > maxChars {
			line = line[0:maxChars] + "…"
		}

		lines[i] = fmt.Sprintf("%c %s", prefix, line)
	}

	return lines
}

func (t *LoggingRoundTripper) transport() http.RoundTripper {
	if t.Transport == nil {
		return http.DefaultTransport
	}

	return t.Transport
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Logger == nil {
		return t.transport().RoundTrip(req)
	}

	dump, err := httputil.DumpRequestOut(req, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP request: %w", err)
	}

	t.Logger.Debug().
		Str("method", req.Method).
		Str("url", Redact(req.URL.String())).
		Msg(Redact(strings.Join(abbreviate(strings.Split(string(dump), "\n"), '>'), "\n")))

	start := time.Now()

	resp, err := t.transport().RoundTrip(req)
	if err != nil {
		t.Logger.Debug().Err(err).Dur("elapsed", time.Since(start)).Msg("< RESPONSE FAILED")

		return nil, err
	}

	dump, err = httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return nil, fmt.Errorf("tracing HTTP response: %w", err)
	}

	t.Logger.Debug().
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg(strings.Join(abbreviate(strings.Split(string(dump), "\n"), '<'), "\n"))

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}

// RateLimitRoundTripper blocks until its limiter grants a token. The wait honours
// the request context, so a cancelled run stops queueing requests.
type RateLimitRoundTripper struct {
	Transport http.RoundTripper
	Limiter   *rate.Limiter
}

// NewRateLimitRoundTripper allows perSecond requests per second, with bursts of burst.
// A non-positive perSecond disables limiting.
func NewRateLimitRoundTripper(transport http.RoundTripper, perSecond float64, burst int) *RateLimitRoundTripper {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}

	return &RateLimitRoundTripper{
		Transport: transport,
		Limiter:   rate.NewLimiter(limit, max(burst, 1)),
	}
}

// RoundTrip implements the http.RoundTripper interface.
func (t *RateLimitRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.Limiter.Wait(req.Context()); err != nil {
		return nil, fmt.Errorf("waiting for rate limiter: %w", err)
	}

	return t.Transport.RoundTrip(req)
}

// ClientOptions configures NewClient.
type ClientOptions struct {
	UserAgent     string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Trace         *zerolog.Logger // nil disables HTTP tracing
	TraceBody     bool
}

// NewClient builds the http.Client used by provider adapters: rate limit, then
// headers, then tracing, then the pooled transport.
func NewClient(options ClientOptions) *http.Client {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          32,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
	}

	loggingTransport := &LoggingRoundTripper{
		Transport: transport,
		Logger:    options.Trace,
		DumpBody:  options.TraceBody,
	}

	userAgent := "poibench/unknown"
	if options.UserAgent != "" {
		userAgent = options.UserAgent
	}

	headerTransport := &AppendRequestHeadersRoundTripper{
		Headers: map[string]string{
			"User-Agent": userAgent,
			"Accept":     "application/json",
		},
		Transport: loggingTransport,
	}

	timeout := options.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: NewRateLimitRoundTripper(headerTransport, options.RatePerSecond, options.Burst),
	}
}
