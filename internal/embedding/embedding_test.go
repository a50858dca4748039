package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"resumatch/internal/errors"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func testLogger() *errors.Logger {
	return errors.NewLoggerWithWriter(io.Discard, 0)
}

type fakeEmbedder struct {
	vectors map[string][]float64
	err     error
	calls   atomic.Int32
}

func (f *fakeEmbedder) Name() string { return "fake" }

func (f *fakeEmbedder) Embed(_ context.Context, texts []string) ([][]float64, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float64, len(texts))
	for i, t := range texts {
		v, ok := f.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name    string
		a, b    []float64
		want    float64
		wantErr bool
	}{
		{name: "identical", a: []float64{1, 2, 3}, b: []float64{1, 2, 3}, want: 1},
		{name: "orthogonal", a: []float64{1, 0}, b: []float64{0, 1}, want: 0},
		{name: "opposite", a: []float64{1, 1}, b: []float64{-1, -1}, want: -1},
		{name: "length mismatch", a: []float64{1}, b: []float64{1, 2}, wantErr: true},
		{name: "zero vector", a: []float64{0, 0}, b: []float64{1, 2}, wantErr: true},
		{name: "empty", a: nil, b: nil, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Cosine(tt.a, tt.b)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProviderSimilarity(t *testing.T) {
	fake := &fakeEmbedder{vectors: map[string][]float64{
		"resume": {1, 0},
		"jd":     {1, 1},
		"neg":    {-1, 0},
	}}
	p := NewProvider(fake, time.Second, testLogger())

	sim := p.Similarity(context.Background(), "resume", "jd")
	if sim.Fallback {
		t.Fatalf("unexpected fallback: %v", sim.Err)
	}
	if math.Abs(sim.Cosine-1/math.Sqrt2) > 1e-9 {
		t.Errorf("cosine = %v", sim.Cosine)
	}
	if math.Abs(sim.Score-100/math.Sqrt2) > 1e-9 {
		t.Errorf("score = %v", sim.Score)
	}

	negative := p.Similarity(context.Background(), "resume", "neg")
	if negative.Score != 0 {
		t.Errorf("negative cosine should clamp to 0, got %v", negative.Score)
	}
	if negative.Cosine != -1 {
		t.Errorf("raw cosine should be kept, got %v", negative.Cosine)
	}
}

func TestProviderSimilarityFallback(t *testing.T) {
	tests := []struct {
		name     string
		embedder Embedder
	}{
		{name: "embedder error", embedder: &fakeEmbedder{err: fmt.Errorf("model exploded")}},
		{name: "zero vector", embedder: &fakeEmbedder{vectors: map[string][]float64{"a": {0, 0}, "b": {1, 0}}}},
		{name: "dimension mismatch", embedder: &fakeEmbedder{vectors: map[string][]float64{"a": {1}, "b": {1, 0}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := NewProvider(tt.embedder, 0, testLogger()).Similarity(context.Background(), "a", "b")
			if !sim.Fallback || sim.Err == nil {
				t.Fatalf("expected fallback with error, got %+v", sim)
			}
			if sim.Score != FallbackScore || sim.Cosine != FallbackCosine {
				t.Errorf("expected neutral values, got %+v", sim)
			}
		})
	}
}

func TestLocalEmbedder(t *testing.T) {
	e := NewLocalEmbedder(0)
	ctx := context.Background()

	vecs, err := e.Embed(ctx, []string{
		"Senior Go engineer with Kubernetes and PostgreSQL",
		"Senior Go engineer with Kubernetes and PostgreSQL",
		"Pastry chef specialising in French desserts",
	})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs[0]) != DefaultLocalDimensions {
		t.Fatalf("expected %d dimensions, got %d", DefaultLocalDimensions, len(vecs[0]))
	}

	same, err := Cosine(vecs[0], vecs[1])
	if err != nil || math.Abs(same-1) > 1e-9 {
		t.Errorf("identical texts should have cosine 1, got %v (%v)", same, err)
	}
	different, err := Cosine(vecs[0], vecs[2])
	if err != nil {
		t.Fatalf("Cosine failed: %v", err)
	}
	if different >= same {
		t.Errorf("unrelated texts should be less similar: %v >= %v", different, same)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := e.Embed(cancelled, []string{"x"}); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestOpenAIEmbedder(t *testing.T) {
	var got openAIEmbeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error"}}`))
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		// Reply out of order to check index handling.
		_, _ = w.Write([]byte(`{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}],"model":"m"}`))
	}))
	defer srv.Close()

	e, err := NewOpenAIEmbedder("sk-test", "", srv.URL, 2, time.Second)
	if err != nil {
		t.Fatalf("NewOpenAIEmbedder failed: %v", err)
	}

	vecs, err := e.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not placed by index: %v", vecs)
	}
	if got.Model != DefaultOpenAIModel || got.Dimensions != 2 || got.EncodingFormat != "float" {
		t.Errorf("unexpected request: %+v", got)
	}

	bad, _ := NewOpenAIEmbedder("wrong", "m", srv.URL, 0, time.Second)
	if _, err := bad.Embed(context.Background(), []string{"a"}); err == nil {
		t.Error("expected error on 401")
	}

	if _, err := NewOpenAIEmbedder("", "m", srv.URL, 0, time.Second); err == nil {
		t.Error("expected error for empty API key")
	}
}

func TestCachedEmbedder(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	fake := &fakeEmbedder{vectors: map[string][]float64{"a": {1, 0}, "b": {0, 1}}}
	cached, err := NewCachedEmbedder(context.Background(), fake, client, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("NewCachedEmbedder failed: %v", err)
	}

	first, err := cached.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	second, err := cached.Embed(context.Background(), []string{"b", "a"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}

	if fake.calls.Load() != 1 {
		t.Errorf("expected 1 inner call, got %d", fake.calls.Load())
	}
	if second[0][1] != first[1][1] || second[1][0] != first[0][0] {
		t.Errorf("cached vectors differ: %v vs %v", first, second)
	}

	key := cached.key("a")
	if !mr.Exists(key) {
		t.Fatalf("expected key %s in redis", key)
	}
	if ttl := mr.TTL(key); ttl != time.Hour {
		t.Errorf("expected TTL 1h, got %v", ttl)
	}
}

func TestCachedEmbedderBypassOnRedisFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer client.Close()

	fake := &fakeEmbedder{vectors: map[string][]float64{"a": {1, 0}}}
	cached, err := NewCachedEmbedder(context.Background(), fake, client, time.Minute, testLogger())
	if err != nil {
		t.Fatalf("NewCachedEmbedder failed: %v", err)
	}

	mr.Close()

	vecs, err := cached.Embed(context.Background(), []string{"a"})
	if err != nil {
		t.Fatalf("expected bypass, got error: %v", err)
	}
	if len(vecs) != 1 || vecs[0][0] != 1 {
		t.Errorf("unexpected vectors: %v", vecs)
	}
}

func TestCachedEmbedderKeysIncludeDimensions(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	small, err := NewCachedEmbedder(context.Background(), NewLocalEmbedder(8), client, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("NewCachedEmbedder failed: %v", err)
	}
	large, err := NewCachedEmbedder(context.Background(), NewLocalEmbedder(16), client, time.Hour, testLogger())
	if err != nil {
		t.Fatalf("NewCachedEmbedder failed: %v", err)
	}
	if small.key("go") == large.key("go") {
		t.Fatalf("expected distinct keys per vector size, both were %s", small.key("go"))
	}

	if _, err := small.Embed(context.Background(), []string{"go developer"}); err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	vecs, err := large.Embed(context.Background(), []string{"go developer"})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vecs[0]) != 16 {
		t.Errorf("expected a 16-dimension vector after a resize, got %d", len(vecs[0]))
	}
}

func TestTruncateKeepsRunesWhole(t *testing.T) {
	body := strings.Repeat("é", 5)
	got := truncate(body, 3)
	if !utf8.ValidString(got) {
		t.Fatalf("truncate split a rune: %q", got)
	}
	if got != "ééé..." {
		t.Errorf("truncate = %q, want %q", got, "ééé...")
	}
	if truncate("short", 10) != "short" {
		t.Error("short strings must pass through")
	}
}

func TestNewCachedEmbedderPingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, MaxRetries: -1})
	defer client.Close()

	if _, err := NewCachedEmbedder(context.Background(), NewLocalEmbedder(8), client, time.Minute, testLogger()); err == nil {
		t.Error("expected ping failure")
	}
}
