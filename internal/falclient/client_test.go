package falclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue is an in-process stand-in for the fal queue API. It serves a
// scripted sequence of statuses and counts requests per endpoint.
type fakeQueue struct {
	t *testing.T

	mu          sync.Mutex
	statuses    []string // served in order; the last entry repeats
	statusPolls int
	resultBody  string
	resultGets  int
	submitBody  string // overrides the default submission response when set
	submits     int
	asset       []byte
	assetGets   int

	server *httptest.Server
}

func newFakeQueue(t *testing.T) *fakeQueue {
	fq := &fakeQueue{t: t}

	mux := http.NewServeMux()
	mux.HandleFunc("/", fq.handleSubmit)
	mux.HandleFunc("/status", fq.handleStatus)
	mux.HandleFunc("/response", fq.handleResult)
	mux.HandleFunc("/asset", fq.handleAsset)

	fq.server = httptest.NewServer(mux)
	t.Cleanup(fq.server.Close)

	return fq
}

func (fq *fakeQueue) handleSubmit(w http.ResponseWriter, r *http.Request) {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	fq.submits++

	assert.Equal(fq.t, http.MethodPost, r.Method)
	assert.Equal(fq.t, "Key test-key", r.Header.Get("authorization"))

	body := fq.submitBody
	if body == "" {
		body = fmt.Sprintf(`{"status_url":%q,"response_url":%q}`,
			fq.server.URL+"/status", fq.server.URL+"/response")
	}
	w.Write([]byte(body))
}

func (fq *fakeQueue) handleStatus(w http.ResponseWriter, r *http.Request) {
	fq.mu.Lock()
	defer fq.mu.Unlock()

	require.NotEmpty(fq.t, fq.statuses, "status poll with no scripted statuses")

	idx := fq.statusPolls
	if idx >= len(fq.statuses) {
		idx = len(fq.statuses) - 1
	}
	fq.statusPolls++

	json.NewEncoder(w).Encode(map[string]string{"status": fq.statuses[idx]})
}

func (fq *fakeQueue) handleResult(w http.ResponseWriter, r *http.Request) {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	fq.resultGets++

	w.Write([]byte(fq.resultBody))
}

func (fq *fakeQueue) handleAsset(w http.ResponseWriter, r *http.Request) {
	fq.mu.Lock()
	defer fq.mu.Unlock()
	fq.assetGets++

	w.Write(fq.asset)
}

func (fq *fakeQueue) client(t *testing.T, maxAttempts int) *Client {
	c, err := NewClient(&Config{
		QueueEndpoint: fq.server.URL,
		APIKey:        "test-key",
		PollInterval:  time.Millisecond,
		MaxAttempts:   maxAttempts,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresAPIKey(t *testing.T) {
	c, err := NewClient(&Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.Nil(t, c)
}

func TestSubmit_MissingLocators(t *testing.T) {
	tests := []struct {
		name       string
		submitBody string
	}{
		{
			name:       "missing status_url",
			submitBody: `{"response_url":"https://queue.fal.run/r"}`,
		},
		{
			name:       "missing response_url",
			submitBody: `{"status_url":"https://queue.fal.run/s"}`,
		},
		{
			name:       "missing both locators",
			submitBody: `{"request_id":"abc"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fq := newFakeQueue(t)
			fq.submitBody = tt.submitBody

			c := fq.client(t, DefaultMaxAttempts)
			_, err := c.GenerateVideo(context.Background(), &VideoRequest{
				Prompt:    "a sunrise",
				SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
				ModelName: "fal-ai/ltx-video",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProtocol)

			var jobErr *JobError
			require.ErrorAs(t, err, &jobErr)
			assert.Equal(t, "generating video", jobErr.Op)
			assert.Equal(t, 0, fq.statusPolls, "no poll should happen after a bad submission")
		})
	}
}

func TestGenerateVideo_EndToEnd(t *testing.T) {
	fq := newFakeQueue(t)
	fq.statuses = []string{"IN_PROGRESS", "COMPLETED"}
	fq.asset = []byte{0x00, 0x01}

	// The result body points back at the fake asset endpoint
	fq.resultBody = fmt.Sprintf(`{"video":{"url":%q}}`, fq.server.URL+"/asset")

	saveAt := filepath.Join(t.TempDir(), "vid.mp4")
	c := fq.client(t, DefaultMaxAttempts)

	result, err := c.GenerateVideo(context.Background(), &VideoRequest{
		Prompt:    "a rabbit in a lab",
		Duration:  4,
		SaveAt:    saveAt,
		ModelName: "fal-ai/ltx-video",
	})
	require.NoError(t, err)

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, saveAt, result.VideoPath)

	data, err := os.ReadFile(saveAt)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x01}, data)

	assert.Equal(t, 1, fq.submits)
	assert.Equal(t, 2, fq.statusPolls)
	assert.Equal(t, 1, fq.resultGets, "exactly one result fetch after the first COMPLETED")
	assert.Equal(t, 1, fq.assetGets)
}

func TestGenerateImage_EndToEnd(t *testing.T) {
	fq := newFakeQueue(t)
	fq.statuses = []string{"IN_QUEUE", "IN_PROGRESS", "COMPLETED"}
	fq.asset = []byte("png-bytes")
	fq.resultBody = fmt.Sprintf(`{"images":[{"url":%q},{"url":"https://x/ignored.png"}]}`, fq.server.URL+"/asset")

	saveAt := filepath.Join(t.TempDir(), "img.png")
	c := fq.client(t, DefaultMaxAttempts)

	result, err := c.GenerateImage(context.Background(), &ImageRequest{
		ImageURL:  "https://example.com/in.png",
		Prompt:    "make it cinematic",
		SaveAt:    saveAt,
		ModelName: "fal-ai/flux-lora-canny",
	})
	require.NoError(t, err)

	assert.Equal(t, "success", result.Status)
	assert.Equal(t, fq.server.URL+"/asset", result.ImageURL)
	assert.Equal(t, saveAt, result.ImagePath)

	data, err := os.ReadFile(saveAt)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)
	assert.Equal(t, 1, fq.resultGets)
}

func TestPollUntilDone_TimeoutAfterExactlyMaxAttempts(t *testing.T) {
	fq := newFakeQueue(t)
	fq.statuses = []string{"IN_QUEUE"}

	c := fq.client(t, 3)
	_, err := c.GenerateVideo(context.Background(), &VideoRequest{
		Prompt:    "never finishes",
		SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
		ModelName: "fal-ai/ltx-video",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, 3, fq.statusPolls, "loop must poll exactly maxAttempts times")
	assert.Equal(t, 0, fq.resultGets)
}

func TestPollUntilDone_UnknownStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses []string
	}{
		{name: "failed status", statuses: []string{"FAILED"}},
		{name: "unknown after pending", statuses: []string{"IN_PROGRESS", "EXPLODED"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fq := newFakeQueue(t)
			fq.statuses = tt.statuses

			c := fq.client(t, DefaultMaxAttempts)
			_, err := c.GenerateVideo(context.Background(), &VideoRequest{
				Prompt:    "x",
				SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
				ModelName: "fal-ai/ltx-video",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrProtocol)
			assert.Equal(t, 0, fq.resultGets)
		})
	}
}

func TestPollUntilDone_MissingStatusField(t *testing.T) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"queue_position":3}`))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"status_url":%q,"response_url":%q}`, server.URL+"/status", server.URL+"/response")
	})

	c, err := NewClient(&Config{
		QueueEndpoint: server.URL,
		APIKey:        "test-key",
		PollInterval:  time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.GenerateVideo(context.Background(), &VideoRequest{
		Prompt:    "x",
		SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
		ModelName: "fal-ai/ltx-video",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestGenerateImage_EmptyResult(t *testing.T) {
	tests := []struct {
		name       string
		resultBody string
	}{
		{name: "empty images list", resultBody: `{"images":[]}`},
		{name: "missing images field", resultBody: `{}`},
		{name: "image entry without url", resultBody: `{"images":[{"width":512}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fq := newFakeQueue(t)
			fq.statuses = []string{"COMPLETED"}
			fq.resultBody = tt.resultBody

			c := fq.client(t, DefaultMaxAttempts)
			_, err := c.GenerateImage(context.Background(), &ImageRequest{
				ImageURL:  "https://example.com/in.png",
				Prompt:    "x",
				SaveAt:    filepath.Join(t.TempDir(), "img.png"),
				ModelName: "fal-ai/flux-lora-canny",
			})

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrEmptyResult)
			assert.Equal(t, 0, fq.assetGets)
		})
	}
}

func TestGenerateVideo_EmptyResult(t *testing.T) {
	fq := newFakeQueue(t)
	fq.statuses = []string{"COMPLETED"}
	fq.resultBody = `{"video":{}}`

	c := fq.client(t, DefaultMaxAttempts)
	_, err := c.GenerateVideo(context.Background(), &VideoRequest{
		Prompt:    "x",
		SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
		ModelName: "fal-ai/ltx-video",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyResult)
}

func TestGenerateImage_ValidationBeforeNetwork(t *testing.T) {
	tests := []struct {
		name string
		req  *ImageRequest
	}{
		{
			name: "empty image_url",
			req:  &ImageRequest{Prompt: "x", SaveAt: "/tmp/img.png"},
		},
		{
			name: "empty save_at",
			req:  &ImageRequest{ImageURL: "https://example.com/in.png", Prompt: "x"},
		},
		{
			name: "empty prompt",
			req:  &ImageRequest{ImageURL: "https://example.com/in.png", SaveAt: "/tmp/img.png"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fq := newFakeQueue(t)
			c := fq.client(t, DefaultMaxAttempts)

			_, err := c.GenerateImage(context.Background(), tt.req)

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)

			var jobErr *JobError
			require.ErrorAs(t, err, &jobErr)
			assert.Equal(t, "generating image", jobErr.Op)

			assert.Equal(t, 0, fq.submits, "validation must fail before any network call")
			assert.Equal(t, 0, fq.statusPolls)
		})
	}
}

func TestGenerateVideo_CanceledBetweenPolls(t *testing.T) {
	fq := newFakeQueue(t)
	fq.statuses = []string{"IN_QUEUE"}

	c, err := NewClient(&Config{
		QueueEndpoint: fq.server.URL,
		APIKey:        "test-key",
		PollInterval:  time.Hour, // cancellation must not wait out the interval
		MaxAttempts:   0,         // unbounded
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = c.GenerateVideo(ctx, &VideoRequest{
		Prompt:    "x",
		SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
		ModelName: "fal-ai/ltx-video",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestFetchAndStore_Failures(t *testing.T) {
	fq := newFakeQueue(t)
	fq.statuses = []string{"COMPLETED"}
	fq.asset = []byte("bytes")
	fq.resultBody = fmt.Sprintf(`{"video":{"url":%q}}`, fq.server.URL+"/asset")

	t.Run("write failure maps to storage error", func(t *testing.T) {
		c := fq.client(t, DefaultMaxAttempts)
		_, err := c.GenerateVideo(context.Background(), &VideoRequest{
			Prompt:    "x",
			SaveAt:    filepath.Join(t.TempDir(), "missing-dir", "out.mp4"),
			ModelName: "fal-ai/ltx-video",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrStorage)
	})

	t.Run("fetch failure maps to network error", func(t *testing.T) {
		fq2 := newFakeQueue(t)
		fq2.statuses = []string{"COMPLETED"}

		// Asset URL points at a server that is already gone
		dead := httptest.NewServer(http.NotFoundHandler())
		deadURL := dead.URL
		dead.Close()
		fq2.resultBody = fmt.Sprintf(`{"video":{"url":%q}}`, deadURL+"/asset")

		c := fq2.client(t, DefaultMaxAttempts)
		_, err := c.GenerateVideo(context.Background(), &VideoRequest{
			Prompt:    "x",
			SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
			ModelName: "fal-ai/ltx-video",
		})

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrNetwork)
	})
}

func TestSubmit_HTTPErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	c, err := NewClient(&Config{
		QueueEndpoint: server.URL,
		APIKey:        "test-key",
		PollInterval:  time.Millisecond,
	})
	require.NoError(t, err)

	_, err = c.GenerateVideo(context.Background(), &VideoRequest{
		Prompt:    "x",
		SaveAt:    filepath.Join(t.TempDir(), "out.mp4"),
		ModelName: "fal-ai/does-not-exist",
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestJobError_PreservesCause(t *testing.T) {
	cause := fmt.Errorf("%w: submission response missing 'status_url' or 'response_url'", ErrProtocol)
	err := newJobError("generating video", cause)

	assert.EqualError(t, err, "error generating video: "+cause.Error())
	assert.ErrorIs(t, err, ErrProtocol)

	var jobErr *JobError
	require.ErrorAs(t, err, &jobErr)
	assert.Same(t, cause, jobErr.Unwrap())
}
