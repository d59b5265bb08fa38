package captions

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/a11y-remediator/internal/llm"
)

// MockLLMClient implements llm.Client for testing
type MockLLMClient struct {
	GenerateContentFunc    func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateJSONFunc       func(ctx context.Context, prompt string, tier llm.ModelTier) (string, error)
	GenerateWithImagesFunc func(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error)
}

func (m *MockLLMClient) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateContentFunc != nil {
		return m.GenerateContentFunc(ctx, prompt, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	if m.GenerateJSONFunc != nil {
		return m.GenerateJSONFunc(ctx, prompt, tier)
	}
	return "{}", nil
}

func (m *MockLLMClient) GenerateWithImages(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
	if m.GenerateWithImagesFunc != nil {
		return m.GenerateWithImagesFunc(ctx, prompt, images, tier)
	}
	return "", nil
}

func (m *MockLLMClient) GetModel(tier llm.ModelTier) string { return "mock-model" }

func (m *MockLLMClient) Close() error { return nil }

func shortRetryDelay(t *testing.T) {
	t.Helper()
	previous := retryDelay
	retryDelay = 5 * time.Millisecond
	t.Cleanup(func() { retryDelay = previous })
}

func newTestDescriber(t *testing.T, client llm.Client) (*Describer, *Cache) {
	t.Helper()
	cache, err := OpenCache(t.TempDir())
	require.NoError(t, err)
	return NewDescriber(client, cache), cache
}

var pngBytes = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

func TestDescribe_DownloadsDescribesAndCaches(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer server.Close()

	var gotTier llm.ModelTier
	var gotImages []llm.Image
	var gotPrompt string
	mock := &MockLLMClient{
		GenerateWithImagesFunc: func(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
			gotPrompt = prompt
			gotImages = images
			gotTier = tier
			return "A company logo.\n", nil
		},
	}
	describer, cache := newTestDescriber(t, mock)

	descriptions := describer.Describe(context.Background(), server.URL, []string{"/logo.png"})
	require.Len(t, descriptions, 1)
	assert.Equal(t, "A company logo.", descriptions["/logo.png"])

	assert.Contains(t, gotUA, "Chrome")
	assert.Equal(t, llm.TierVision, gotTier)
	assert.Contains(t, gotPrompt, "alternative text")
	require.Len(t, gotImages, 1)
	assert.Equal(t, "png", gotImages[0].Format)
	assert.Equal(t, pngBytes, gotImages[0].Data)

	entry, ok := cache.Get(server.URL + "/logo.png")
	require.True(t, ok)
	assert.Equal(t, "A company logo.", entry.Description)
	assert.FileExists(t, entry.LocalPath)
	assert.True(t, strings.HasSuffix(entry.LocalPath, ".png"), "got %s", entry.LocalPath)

	onDisk, err := os.ReadFile(entry.LocalPath)
	require.NoError(t, err)
	assert.Equal(t, pngBytes, onDisk)
}

func TestDescribe_CacheHitSkipsDownloadAndVision(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer server.Close()

	visionCalls := 0
	mock := &MockLLMClient{
		GenerateWithImagesFunc: func(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
			visionCalls++
			return "A chart.", nil
		},
	}
	describer, cache := newTestDescriber(t, mock)

	first := describer.Describe(context.Background(), server.URL, []string{"/chart.png"})
	require.Equal(t, "A chart.", first["/chart.png"])
	require.Equal(t, 1, calls)
	require.Equal(t, 1, visionCalls)

	// A fresh describer over the same cache reuses the stored description.
	again := NewDescriber(mock, cache).Describe(context.Background(), server.URL, []string{"/chart.png"})
	assert.Equal(t, "A chart.", again["/chart.png"])
	assert.Equal(t, 1, calls, "image must not be downloaded twice")
	assert.Equal(t, 1, visionCalls, "vision must not be called twice")
}

func TestDescribe_SkipsBlacklistedDomains(t *testing.T) {
	mock := &MockLLMClient{
		GenerateWithImagesFunc: func(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
			t.Fatal("no vision call expected")
			return "", nil
		},
	}
	describer, _ := newTestDescriber(t, mock)

	descriptions := describer.Describe(context.Background(), "https://example.com",
		[]string{"https://tile.openstreetmap.org/1/2/3.png"})
	assert.Empty(t, descriptions)
}

func TestDescribe_SkipsDataAndEmptySources(t *testing.T) {
	describer, _ := newTestDescriber(t, &MockLLMClient{})

	descriptions := describer.Describe(context.Background(), "https://example.com",
		[]string{"", "data:image/png;base64,iVBORw0KGgo="})
	assert.Empty(t, descriptions)
}

func TestDescribe_VisionFailureStillCaches(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8, 0xFF})
	}))
	defer server.Close()

	mock := &MockLLMClient{
		GenerateWithImagesFunc: func(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
			return "", errors.New("vision quota exceeded")
		},
	}
	describer, cache := newTestDescriber(t, mock)

	descriptions := describer.Describe(context.Background(), server.URL, []string{"/photo.jpg"})
	assert.Equal(t, "Description not available.", descriptions["/photo.jpg"])

	entry, ok := cache.Get(server.URL + "/photo.jpg")
	require.True(t, ok)
	assert.Equal(t, "Description not available.", entry.Description)
}

func TestDescribe_ServerErrorRetriesThenSkips(t *testing.T) {
	shortRetryDelay(t)

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	describer, cache := newTestDescriber(t, &MockLLMClient{})

	descriptions := describer.Describe(context.Background(), server.URL, []string{"/flaky.png"})
	assert.Empty(t, descriptions)
	assert.Equal(t, maxRetries, attempts)
	assert.Equal(t, 0, cache.Len())
}

func TestDescribe_RecoversOnRetry(t *testing.T) {
	shortRetryDelay(t)

	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(pngBytes)
	}))
	defer server.Close()

	mock := &MockLLMClient{
		GenerateWithImagesFunc: func(ctx context.Context, prompt string, images []llm.Image, tier llm.ModelTier) (string, error) {
			return "Recovered.", nil
		},
	}
	describer, _ := newTestDescriber(t, mock)

	descriptions := describer.Describe(context.Background(), server.URL, []string{"/slow.png"})
	assert.Equal(t, "Recovered.", descriptions["/slow.png"])
	assert.Equal(t, 2, attempts)
}

func TestBlacklisted(t *testing.T) {
	assert.True(t, Blacklisted("https://tile.openstreetmap.org/1/2/3.png"))
	assert.True(t, Blacklisted("https://openstreetmap.org/logo.png"))
	assert.False(t, Blacklisted("https://example.com/map.png"))
	assert.False(t, Blacklisted("://bad"))
}

func TestExtensionFor(t *testing.T) {
	assert.Equal(t, ".png", extensionFor("image/png"))
	assert.Equal(t, ".jpeg", extensionFor("image/jpeg"))
	assert.Equal(t, ".webp", extensionFor("image/webp; charset=binary"))
	assert.Equal(t, ".jpg", extensionFor("text/html"))
	assert.Equal(t, ".jpg", extensionFor(""))
}

func TestImageFormat(t *testing.T) {
	assert.Equal(t, "jpeg", imageFormat("photo.jpg"))
	assert.Equal(t, "jpeg", imageFormat("photo.JPG"))
	assert.Equal(t, "png", imageFormat("logo.png"))
	assert.Equal(t, "jpeg", imageFormat("noext"))
}
