package forumctl

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

type Config struct {
	BaseURL     string
	Profile     string
	Duration    time.Duration
	RPS         int
	Concurrency int
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status3xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	form   url.Values
}

// Run drives the configured traffic profile until the duration elapses.
// Redirects are not followed: the account endpoints answer 303 by design and
// those count as their own bucket.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}

	requests := requestsForProfile(cfg.Profile)
	if len(requests) == 0 {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	client := &http.Client{
		Timeout: 5 * time.Second,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var res Result
	jobs := make(chan request, cfg.Concurrency*2)

	g, workerCtx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.Concurrency; i++ {
		g.Go(func() error {
			for job := range jobs {
				doRequest(workerCtx, client, cfg.BaseURL, job, &res)
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	i := 0
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			select {
			case jobs <- requests[i%len(requests)]:
				i++
			default:
				// workers saturated, drop the tick
			}
		}
	}
	close(jobs)
	if err := g.Wait(); err != nil {
		return res, err
	}
	return res, nil
}

func doRequest(ctx context.Context, client *http.Client, baseURL string, job request, res *Result) {
	var req *http.Request
	var err error
	if job.form != nil {
		// account endpoints take multipart forms
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for key, values := range job.form {
			for _, v := range values {
				_ = w.WriteField(key, v)
			}
		}
		_ = w.Close()
		req, err = http.NewRequestWithContext(ctx, job.method, baseURL+job.path, &buf)
		if err == nil {
			req.Header.Set("Content-Type", w.FormDataContentType())
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, job.method, baseURL+job.path, nil)
	}
	if err != nil {
		atomic.AddInt64(&res.Failures, 1)
		return
	}
	resp, err := client.Do(req)
	if err != nil {
		atomic.AddInt64(&res.Failures, 1)
		return
	}
	_ = resp.Body.Close()
	atomic.AddInt64(&res.TotalRequests, 1)
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		atomic.AddInt64(&res.Status2xx, 1)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		atomic.AddInt64(&res.Status3xx, 1)
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		atomic.AddInt64(&res.Status4xx, 1)
	case resp.StatusCode >= 500:
		atomic.AddInt64(&res.Status5xx, 1)
	}
}

func requestsForProfile(profile string) []request {
	reads := []request{
		{method: http.MethodGet, path: "/posts"},
		{method: http.MethodGet, path: "/posts?q=go"},
		{method: http.MethodGet, path: "/health/live"},
		{method: http.MethodGet, path: "/me"},
	}
	logins := []request{
		{method: http.MethodPost, path: "/account", form: url.Values{
			"action": {"Login"}, "login": {"loadgen"}, "password": {"wrong"},
		}},
	}
	switch strings.ToLower(profile) {
	case "read":
		return reads
	case "login":
		return logins
	case "", "mixed":
		return append(append([]request{}, reads...), logins...)
	default:
		return nil
	}
}
