package rewrite

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/unai-app/unai/internal/detector"
)

// Report is the before/after comparison returned to callers
type Report struct {
	Original          string             `json:"original"`
	Rewritten         string             `json:"rewritten"`
	OriginalScore     int                `json:"originalScore"`
	NewScore          int                `json:"newScore"`
	PatternsFound     int                `json:"patternsFound"`
	PatternsRemaining int                `json:"patternsRemaining"`
	Patterns          []detector.Finding `json:"patterns"`
	Mode              Mode               `json:"mode"`

	Characters    int           `json:"-"`
	RewriteFailed bool          `json:"-"`
	Duration      time.Duration `json:"-"`
}

// Recorder persists processed reports
type Recorder interface {
	Record(ctx context.Context, report Report) error
}

// Notifier is told about every processed report
type Notifier interface {
	NotifyRewrite(ctx context.Context, report Report)
}

// Service scores text, rewrites it and scores the result
type Service struct {
	detector *detector.Detector
	rewriter Rewriter
	recorder Recorder
	notifier Notifier
	logger   *zap.Logger
}

// ServiceOption configures optional Service hooks
type ServiceOption func(*Service)

// WithRecorder stores every report
func WithRecorder(r Recorder) ServiceOption {
	return func(s *Service) { s.recorder = r }
}

// WithNotifier publishes every report
func WithNotifier(n Notifier) ServiceOption {
	return func(s *Service) { s.notifier = n }
}

// NewService creates a service. rewriter may be nil, in which case every
// rewrite falls back to the original text.
func NewService(d *detector.Detector, rewriter Rewriter, logger *zap.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{detector: d, rewriter: rewriter, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CanRewrite reports whether a rewriter is available
func (s *Service) CanRewrite() bool {
	if s.rewriter == nil {
		return false
	}
	if c, ok := s.rewriter.(interface{ Configured() bool }); ok {
		return c.Configured()
	}
	return true
}

// Detector returns the detector used for scoring
func (s *Service) Detector() *detector.Detector {
	return s.detector
}

// Process runs detection, the rewrite and detection again. It always
// returns a report: a failed rewrite leaves the text unchanged.
func (s *Service) Process(ctx context.Context, text string, mode Mode) Report {
	start := time.Now()

	before := s.detector.Detect(text)
	report := Report{
		Original:      text,
		OriginalScore: detector.Normalize(detector.RawScore(before), detector.CharCount(text)),
		PatternsFound: len(before),
		Patterns:      detector.Summarize(before),
		Mode:          mode,
		Characters:    detector.CharCount(text),
	}

	rewritten, err := s.rewrite(ctx, text, mode)
	if err != nil {
		s.logger.Warn("Rewrite failed, keeping original text",
			zap.String("mode", mode.String()),
			zap.Bool("not_configured", errors.Is(err, ErrNotConfigured)),
			zap.Error(err))
		rewritten = text
		report.RewriteFailed = true
	}

	after := s.detector.Detect(rewritten)
	report.Rewritten = rewritten
	report.NewScore = detector.Normalize(detector.RawScore(after), detector.CharCount(rewritten))
	report.PatternsRemaining = len(after)
	report.Duration = time.Since(start)

	s.logger.Info("Rewrite processed",
		zap.String("mode", mode.String()),
		zap.Int("characters", report.Characters),
		zap.Int("original_score", report.OriginalScore),
		zap.Int("new_score", report.NewScore),
		zap.Int("patterns_found", report.PatternsFound),
		zap.Int("patterns_remaining", report.PatternsRemaining),
		zap.Duration("duration", report.Duration))

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, report); err != nil {
			s.logger.Warn("Failed to record rewrite", zap.Error(err))
		}
	}
	if s.notifier != nil {
		s.notifier.NotifyRewrite(ctx, report)
	}

	return report
}

func (s *Service) rewrite(ctx context.Context, text string, mode Mode) (out string, err error) {
	if s.rewriter == nil {
		return "", ErrNotConfigured
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Join(ErrRewriteFailed, errors.New("rewriter panicked"))
		}
	}()
	return s.rewriter.Rewrite(ctx, text, mode)
}
