package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kanchangiri67/OncoCist/internal/core/domain"
	"github.com/kanchangiri67/OncoCist/internal/core/ports"
)

// brightSquare is a dark 32x32 image with a bright 8x8 block.
func brightSquare(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			v := uint8(20)
			if x >= 12 && x < 20 && y >= 16 && y < 24 {
				v = 240
			}
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode fixture: %v", err)
	}
	return buf.Bytes()
}

func TestBuiltin_ProducesOverlayAndLabel(t *testing.T) {
	in := ports.ScoreInput{ScanID: 1, Filename: "brain.png", Data: brightSquare(t)}

	res, err := NewBuiltin().Score(context.Background(), in)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !domain.IsTumorLabel(res.TumorType) {
		t.Fatalf("label %q not in vocabulary", res.TumorType)
	}

	var sum float64
	for _, label := range domain.TumorLabels {
		sum += res.Scores[label]
	}
	if math.Abs(sum-1) > 0.001 {
		t.Fatalf("scores should sum to 1, got %v", sum)
	}

	overlay, err := png.Decode(bytes.NewReader(res.Overlay))
	if err != nil {
		t.Fatalf("overlay is not a PNG: %v", err)
	}
	if overlay.Bounds().Dx() != 32 || overlay.Bounds().Dy() != 32 {
		t.Fatalf("overlay size %v", overlay.Bounds())
	}
	r, g, _, _ := overlay.At(15, 20).RGBA()
	if r <= g {
		t.Fatalf("masked pixel should be tinted red")
	}
	r, g, _, _ = overlay.At(0, 0).RGBA()
	if r != g {
		t.Fatalf("background pixel should stay gray")
	}
}

func TestBuiltin_Deterministic(t *testing.T) {
	in := ports.ScoreInput{ScanID: 1, Filename: "brain.png", Data: brightSquare(t)}
	a, err := NewBuiltin().Score(context.Background(), in)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	b, err := NewBuiltin().Score(context.Background(), in)
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if a.TumorType != b.TumorType || !bytes.Equal(a.Overlay, b.Overlay) {
		t.Fatalf("same input produced different results")
	}
}

func TestBuiltin_FlatImage(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)

	res, err := NewBuiltin().Score(context.Background(), ports.ScoreInput{Filename: "flat.png", Data: buf.Bytes()})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if !domain.IsTumorLabel(res.TumorType) {
		t.Fatalf("label %q not in vocabulary", res.TumorType)
	}
}

func TestBuiltin_Rejects(t *testing.T) {
	cases := map[string]ports.ScoreInput{
		"nifti":           {Filename: "head.nii.gz", Data: []byte{0x1f, 0x8b}},
		"garbage":         {Filename: "scan.png", Data: []byte("not an image")},
		// decodable pixels still fail on a volume name
		"nifti named png": {Filename: "head.nii", Data: brightSquare(t)},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := NewBuiltin().Score(context.Background(), in); !errors.Is(err, domain.ErrInference) {
				t.Fatalf("expected ErrInference, got %v", err)
			}
		})
	}
}

func TestRemote_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Scan-Id") != "7" || r.Header.Get("X-Scan-Filename") != "a.png" {
			http.Error(w, "missing headers", http.StatusBadRequest)
			return
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.NewEncoder(w).Encode(remoteResponse{
			TumorType: domain.TumorGlioma,
			Scores:    map[string]float64{domain.TumorGlioma: 0.9},
			Overlay:   body,
		})
	}))
	defer srv.Close()

	res, err := NewRemote(srv.URL, time.Second).Score(context.Background(), ports.ScoreInput{ScanID: 7, Filename: "a.png", Data: []byte("px")})
	if err != nil {
		t.Fatalf("Score: %v", err)
	}
	if res.TumorType != domain.TumorGlioma || string(res.Overlay) != "px" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRemote_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"model not loaded"}`))
	}))
	defer srv.Close()

	_, err := NewRemote(srv.URL, time.Second).Score(context.Background(), ports.ScoreInput{Filename: "a.png", Data: []byte("px")})
	if !errors.Is(err, domain.ErrInference) {
		t.Fatalf("expected ErrInference, got %v", err)
	}
}

func TestRemote_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewRemote(srv.URL, time.Second).Score(ctx, ports.ScoreInput{Filename: "a.png", Data: []byte("px")})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
