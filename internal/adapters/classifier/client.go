// Package classifier talks to the external rice-leaf disease model service.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strings"
	"time"

	"github.com/valyala/fasthttp"

	"github.com/paddymap/paddymap/internal/core/domain"
	"github.com/paddymap/paddymap/internal/pkg/metrics"
)

// Client implements ports.Classifier against <baseURL>/api/predict.
type Client struct {
	http    *fasthttp.Client
	url     string
	timeout time.Duration
}

// New creates a classifier client.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		http:    &fasthttp.Client{Name: "paddymap", MaxResponseBodySize: 1 << 20},
		url:     strings.TrimRight(baseURL, "/") + "/api/predict",
		timeout: timeout,
	}
}

// prediction accepts both the compact {prediction, confidence, is_healthy}
// reply and the model server's {status, disease, disease_key, confidence} one.
type prediction struct {
	Prediction string  `json:"prediction"`
	DiseaseKey string  `json:"disease_key"`
	Disease    string  `json:"disease"`
	Status     string  `json:"status"`
	IsHealthy  *bool   `json:"is_healthy"`
	Confidence float64 `json:"confidence"`
	Error      string  `json:"error"`
}

// Classify uploads image as the multipart "image" field and returns the verdict.
// Confidence is normalised to [0, 1].
func (c *Client) Classify(ctx context.Context, filename string, image io.Reader) (verdict *domain.Classification, err error) {
	defer metrics.ObserveExternal("classifier", time.Now(), &err)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("image", filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, image); err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(c.url)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType(mw.FormDataContentType())
	req.SetBody(body.Bytes())

	deadline := time.Now().Add(c.timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.http.DoDeadline(req, resp, deadline); err != nil {
		return nil, fmt.Errorf("classifier request: %w", err)
	}

	var p prediction
	if err := json.Unmarshal(resp.Body(), &p); err != nil {
		return nil, fmt.Errorf("decode classifier response (HTTP %d): %w", resp.StatusCode(), err)
	}

	switch {
	case resp.StatusCode() == fasthttp.StatusBadRequest:
		return nil, fmt.Errorf("%s: %w", p.Error, domain.ErrUnsupportedImage)
	case resp.StatusCode() != fasthttp.StatusOK:
		return nil, fmt.Errorf("classifier: HTTP %d: %s", resp.StatusCode(), p.Error)
	}

	return p.verdict(), nil
}

func (p prediction) verdict() *domain.Classification {
	v := &domain.Classification{Confidence: p.Confidence}
	if v.Confidence > 1 {
		v.Confidence /= 100
	}

	switch {
	case p.IsHealthy != nil:
		v.Healthy = *p.IsHealthy
	default:
		v.Healthy = strings.EqualFold(p.Status, "healthy")
	}

	for _, name := range []string{p.Prediction, p.DiseaseKey, p.Disease} {
		if name != "" {
			v.Disease = name
			break
		}
	}
	if v.Disease == "" && v.Healthy {
		v.Disease = "Healthy"
	}
	return v
}
