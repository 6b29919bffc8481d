package embedder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/semaphore"

	"github.com/kozaktomas/face-registry/internal/index"
)

// Extractor turns image bytes into a unit-norm face embedding. Extractions
// run through a bounded semaphore so a burst of slow requests cannot occupy
// the whole process; the underlying model instance on the face server is
// shared and read-only per call.
type Extractor struct {
	client   *Client
	dim      int
	minScore float64
	timeout  time.Duration // 0 disables the deadline
	sem      *semaphore.Weighted
}

// NewExtractor creates an extractor for embeddings of the given dimension.
// maxConcurrent bounds the number of in-flight extractions.
func NewExtractor(client *Client, dim int, minScore float64, timeout time.Duration, maxConcurrent int) *Extractor {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Extractor{
		client:   client,
		dim:      dim,
		minScore: minScore,
		timeout:  timeout,
		sem:      semaphore.NewWeighted(int64(maxConcurrent)),
	}
}

// Extract detects faces in the image and returns the embedding of the most
// prominent one, L2-normalized.
//
// When the detector reports multiple faces the one with the largest
// bounding-box area wins; ties keep the lowest face index. This keeps
// extraction deterministic: identical input bytes always yield the same
// embedding.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	// Reject undecodable input before any network call.
	if _, _, err := image.Decode(bytes.NewReader(imageData)); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrImageDecode, err)
	}

	if err := e.sem.Acquire(ctx, 1); err != nil {
		return nil, wrapTimeout(err)
	}
	defer e.sem.Release(1)

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	resp, err := e.client.DetectFaces(ctx, imageData)
	if err != nil {
		return nil, wrapTimeout(err)
	}

	best, ok := mostProminentFace(resp.Faces, e.minScore)
	if !ok {
		return nil, ErrNoFaceDetected
	}

	if len(best.Embedding) != e.dim {
		return nil, &index.DimensionMismatchError{Expected: e.dim, Actual: len(best.Embedding)}
	}

	return index.Normalize(best.Embedding), nil
}

// Dimension returns the embedding dimension this extractor is configured for.
func (e *Extractor) Dimension() int {
	return e.dim
}

// mostProminentFace returns the face with the largest bounding-box area among
// those passing the confidence threshold.
func mostProminentFace(faces []FaceDetection, minScore float64) (FaceDetection, bool) {
	var best FaceDetection
	bestArea := -1.0
	for _, f := range faces {
		if f.DetScore < minScore {
			continue
		}
		area := bboxArea(f.BBox)
		if area > bestArea {
			best = f
			bestArea = area
		}
	}
	return best, bestArea >= 0
}

// bboxArea computes the area of a [x1, y1, x2, y2] box.
func bboxArea(bbox []float64) float64 {
	if len(bbox) != 4 {
		return 0
	}
	w := bbox[2] - bbox[0]
	h := bbox[3] - bbox[1]
	if w < 0 || h < 0 {
		return 0
	}
	return w * h
}

// wrapTimeout maps a context deadline hit to ErrExtractionTimeout so no
// partial embedding ever surfaces past a timeout.
func wrapTimeout(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrExtractionTimeout, err)
	}
	return err
}
