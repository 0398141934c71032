package synthesis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Default values.
const defaultLanguage = "en"

// Error messages.
const (
	errUnexpectedContentType   = "unexpected content type: expected audio/wav, got %s"
	errFmtServiceErrorWithCode = "synthesis service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus   = "synthesis service returned non-OK status: %s, body: %s"
)

// Static errors.
var (
	// ErrTextEmpty indicates a request without synthesizable text.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrEmptyAudio indicates the service returned a zero-length body.
	ErrEmptyAudio = errors.New("received empty audio data")
)

// Request defines the JSON payload for one speech generation call. The
// embedded Params flatten into the payload, so the wire format carries the
// full bundle used to produce the artifact.
type Request struct {
	// Text contains the input text to convert to speech. It is truncated
	// to MaxChars before submission as a final safety measure; callers are
	// expected to chunk text within the limit beforehand.
	Text string `json:"text"`

	// Language specifies the target language code (e.g., "en", "de").
	// Defaults to "en" if not specified.
	Language string `json:"language"`

	// SpeakerRefPath is a server-side path to the reference voice clip
	// that conditions synthesis toward the target voice.
	SpeakerRefPath string `json:"speaker_ref_path,omitempty"`

	Params
}

// ErrorResponse represents a structured error payload from the service.
type ErrorResponse struct {
	// Detail contains a human-readable error description.
	Detail string `json:"detail"`

	// ErrorCode provides a machine-readable error classification.
	ErrorCode string `json:"error_code,omitempty"`
}

// Client is an HTTP client for the standalone synthesis service.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates and configures a client for the synthesis service. The
// baseURL should include protocol and port (e.g., "http://localhost:8000").
// The timeout applies to all HTTP requests made by this client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// GenerateSpeech sends a generation request and returns the raw WAV audio
// produced by the model. Any service failure is returned as an error for the
// caller to treat as a per-line failure, never as process-fatal.
func (c *Client) GenerateSpeech(ctx context.Context, req Request) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	// Final safety truncation at the service boundary. The limit counts
	// runes, matching the model's character cap.
	if utf8.RuneCountInString(req.Text) > MaxChars {
		req.Text = string([]rune(req.Text)[:MaxChars])
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	requestBody, marshalErr := json.Marshal(req)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
	}

	url := c.baseURL + apiGenerateSpeech

	httpReq, reqErr := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request: %w", reqErr)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, sendErr := c.httpClient.Do(httpReq)
	if sendErr != nil {
		return nil, fmt.Errorf(
			"failed to send request to synthesis service at %s: %w",
			c.baseURL,
			sendErr,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(errUnexpectedContentType, contentType)
	}

	audioData, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", readErr)
	}

	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	return audioData, nil
}

// HealthCheck verifies that the synthesis service is running. It should be
// performed before bulk workloads to fail fast when the service is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if reqErr != nil {
		return fmt.Errorf("failed to create health check request: %w", reqErr)
	}

	resp, sendErr := c.httpClient.Do(req)
	if sendErr != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			sendErr,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// service, falling back to the raw response body so diagnostics are never
// lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp ErrorResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&errorResp)
	if decodeErr == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}
