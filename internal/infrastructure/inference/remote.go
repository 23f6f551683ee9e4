package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

const maxResponseBytes = 64 << 20

// Remote calls an HTTP model server. The scan is sent as the raw request body
// and the server answers with JSON; overlay is base64 encoded PNG.
type Remote struct {
	url    string
	client *http.Client
}

type remoteResponse struct {
	TumorType string             `json:"tumor_type"`
	Scores    map[string]float64 `json:"scores"`
	Overlay   []byte             `json:"overlay"`
}

type remoteError struct {
	Error string `json:"error"`
}

func NewRemote(url string, timeout time.Duration) *Remote {
	return &Remote{url: url, client: &http.Client{Timeout: timeout}}
}

func (r *Remote) Score(ctx context.Context, in ports.ScoreInput) (*ports.ScoreResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(in.Data))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", domain.ErrInference, err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Scan-Id", strconv.FormatUint(uint64(in.ScanID), 10))
	req.Header.Set("X-Scan-Filename", in.Filename)

	resp, err := r.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: model server: %v", domain.ErrInference, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrInference, err)
	}

	if resp.StatusCode != http.StatusOK {
		var e remoteError
		if json.Unmarshal(body, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%w: model server %d: %s", domain.ErrInference, resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("%w: model server returned %d", domain.ErrInference, resp.StatusCode)
	}

	var out remoteResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrInference, err)
	}
	if len(out.Overlay) == 0 {
		return nil, fmt.Errorf("%w: model server returned no overlay", domain.ErrInference)
	}
	return &ports.ScoreResult{Overlay: out.Overlay, TumorType: out.TumorType, Scores: out.Scores}, nil
}
