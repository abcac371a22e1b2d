package rewrite

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/cache"
	"github.com/unai-app/unai/internal/catalog"
	"github.com/unai-app/unai/internal/detector"
)

const sample = "It's worth noting that the plan works. Moreover, costs fell."

type memoryRecorder struct {
	mu      sync.Mutex
	reports []Report
	err     error
}

func (m *memoryRecorder) Record(_ context.Context, r Report) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return m.err
}

type memoryNotifier struct {
	reports []Report
}

func (m *memoryNotifier) NotifyRewrite(_ context.Context, r Report) {
	m.reports = append(m.reports, r)
}

func newTestService(rw Rewriter, opts ...ServiceOption) *Service {
	return NewService(detector.New(catalog.Default(), zap.NewNop()), rw, zap.NewNop(), opts...)
}

func TestService_Process(t *testing.T) {
	rw := RewriterFunc(func(_ context.Context, text string, mode Mode) (string, error) {
		assert.Equal(t, ModeLight, mode)
		return "The plan works and costs fell.", nil
	})
	rec := &memoryRecorder{}
	notif := &memoryNotifier{}
	svc := newTestService(rw, WithRecorder(rec), WithNotifier(notif))

	report := svc.Process(context.Background(), sample, ModeLight)

	assert.Equal(t, sample, report.Original)
	assert.Equal(t, "The plan works and costs fell.", report.Rewritten)
	assert.Equal(t, 100, report.OriginalScore)
	assert.Equal(t, 0, report.NewScore)
	assert.Equal(t, 0, report.PatternsRemaining)
	assert.Equal(t, len(report.Patterns), report.PatternsFound)
	assert.Equal(t, ModeLight, report.Mode)
	assert.False(t, report.RewriteFailed)

	ids := make([]string, 0, len(report.Patterns))
	for _, f := range report.Patterns {
		ids = append(ids, f.ID)
	}
	assert.Contains(t, ids, "en001")
	assert.Contains(t, ids, "en006")

	require.Len(t, rec.reports, 1)
	require.Len(t, notif.reports, 1)
	assert.Equal(t, report.NewScore, rec.reports[0].NewScore)
}

func TestService_ProcessFallsBackOnFailure(t *testing.T) {
	tests := []struct {
		name string
		rw   Rewriter
	}{
		{"nil rewriter", nil},
		{"error", RewriterFunc(func(context.Context, string, Mode) (string, error) {
			return "", ErrRewriteFailed
		})},
		{"panic", RewriterFunc(func(context.Context, string, Mode) (string, error) {
			panic("boom")
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newTestService(tt.rw)
			report := svc.Process(context.Background(), sample, ModeBalanced)

			assert.True(t, report.RewriteFailed)
			assert.Equal(t, sample, report.Rewritten)
			assert.Equal(t, report.OriginalScore, report.NewScore)
			assert.Equal(t, report.PatternsFound, report.PatternsRemaining)
		})
	}
}

func TestService_RecorderErrorIgnored(t *testing.T) {
	rec := &memoryRecorder{err: errors.New("db down")}
	svc := newTestService(RewriterFunc(func(_ context.Context, text string, _ Mode) (string, error) {
		return text, nil
	}), WithRecorder(rec))

	report := svc.Process(context.Background(), "plain text", ModeBalanced)
	assert.Equal(t, 0, report.OriginalScore)
	assert.NotNil(t, report.Patterns)
	assert.Len(t, rec.reports, 1)
}

func TestService_CanRewrite(t *testing.T) {
	assert.False(t, newTestService(nil).CanRewrite())
	assert.False(t, newTestService(NewOpenAIClient(OpenAIConfig{}, nil)).CanRewrite())
	assert.True(t, newTestService(NewOpenAIClient(OpenAIConfig{APIKey: "sk"}, nil)).CanRewrite())
	assert.True(t, newTestService(RewriterFunc(func(context.Context, string, Mode) (string, error) {
		return "", nil
	})).CanRewrite())
}

func TestCachedRewriter(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRewriteCache(&cache.Config{
		RedisURL:   "redis://" + mr.Addr() + "/0",
		DefaultTTL: time.Hour,
		KeyPrefix:  "test",
	}, zap.NewNop())
	require.NoError(t, err)
	defer rc.Close()

	calls := 0
	next := RewriterFunc(func(_ context.Context, text string, _ Mode) (string, error) {
		calls++
		return strings.ToUpper(text), nil
	})
	rw := NewCachedRewriter(next, rc, "gpt-4o-mini", zap.NewNop())
	ctx := context.Background()

	out, err := rw.Rewrite(ctx, "hello", ModeBalanced)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)

	out, err = rw.Rewrite(ctx, "hello", ModeBalanced)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", out)
	assert.Equal(t, 1, calls)

	_, err = rw.Rewrite(ctx, "hello", ModeLight)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedRewriter_ErrorsNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRewriteCache(&cache.Config{
		RedisURL:   "redis://" + mr.Addr() + "/0",
		DefaultTTL: time.Hour,
		KeyPrefix:  "test",
	}, zap.NewNop())
	require.NoError(t, err)
	defer rc.Close()

	calls := 0
	rw := NewCachedRewriter(RewriterFunc(func(context.Context, string, Mode) (string, error) {
		calls++
		return "", ErrRewriteFailed
	}), rc, "", nil)

	for i := 0; i < 2; i++ {
		_, err := rw.Rewrite(context.Background(), "hello", ModeBalanced)
		assert.ErrorIs(t, err, ErrRewriteFailed)
	}
	assert.Equal(t, 2, calls)
}

func TestCachedRewriter_KeyedByModel(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRewriteCache(&cache.Config{
		RedisURL:   "redis://" + mr.Addr() + "/0",
		DefaultTTL: time.Hour,
		KeyPrefix:  "test",
	}, zap.NewNop())
	require.NoError(t, err)
	defer rc.Close()

	calls := 0
	next := RewriterFunc(func(_ context.Context, text string, _ Mode) (string, error) {
		calls++
		return strings.ToUpper(text), nil
	})
	ctx := context.Background()

	_, err = NewCachedRewriter(next, rc, "gpt-4o-mini", nil).Rewrite(ctx, "hello", ModeBalanced)
	require.NoError(t, err)
	_, err = NewCachedRewriter(next, rc, "gpt-4o", nil).Rewrite(ctx, "hello", ModeBalanced)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestCachedRewriter_UnchangedTextNotCached(t *testing.T) {
	mr := miniredis.RunT(t)
	rc, err := cache.NewRewriteCache(&cache.Config{
		RedisURL:   "redis://" + mr.Addr() + "/0",
		DefaultTTL: time.Hour,
		KeyPrefix:  "test",
	}, zap.NewNop())
	require.NoError(t, err)
	defer rc.Close()

	calls := 0
	rw := NewCachedRewriter(RewriterFunc(func(_ context.Context, text string, _ Mode) (string, error) {
		calls++
		return text, nil
	}), rc, "gpt-4o-mini", nil)

	for i := 0; i < 2; i++ {
		out, err := rw.Rewrite(context.Background(), "hello", ModeBalanced)
		require.NoError(t, err)
		assert.Equal(t, "hello", out)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, mr.Keys())
}
