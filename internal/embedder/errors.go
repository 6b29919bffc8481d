package embedder

import "errors"

var (
	// ErrImageDecode indicates the input bytes are not a decodable image.
	// Caller must fix the input; not retryable.
	ErrImageDecode = errors.New("image could not be decoded")

	// ErrNoFaceDetected indicates no face passed the detector's confidence
	// threshold. Not retryable with the same image.
	ErrNoFaceDetected = errors.New("no face detected in image")

	// ErrExtractionTimeout indicates the extraction deadline was exceeded.
	// Retryable; no partial embedding is ever returned.
	ErrExtractionTimeout = errors.New("face extraction timed out")
)
