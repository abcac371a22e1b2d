package server

import (
	"context"

	"github.com/unai-app/unai/internal/history"
	"github.com/unai-app/unai/internal/rewrite"
	"github.com/unai-app/unai/internal/websocket"
)

// historyRecorder stores rewrite reports in the history database
type historyRecorder struct {
	store     *history.Store
	storeText bool
}

func (h *historyRecorder) Record(ctx context.Context, report rewrite.Report) error {
	rec := &history.Record{
		RequestID:         getRequestID(ctx),
		Mode:              report.Mode.String(),
		TextHash:          history.HashText(report.Original),
		Characters:        report.Characters,
		OriginalScore:     report.OriginalScore,
		NewScore:          report.NewScore,
		PatternsFound:     report.PatternsFound,
		PatternsRemaining: report.PatternsRemaining,
		RewriteFailed:     report.RewriteFailed,
	}
	if h.storeText {
		rec.OriginalText = report.Original
		rec.RewrittenText = report.Rewritten
	}
	return h.store.Insert(ctx, rec)
}

// hubNotifier publishes rewrite reports to dashboard clients
type hubNotifier struct {
	hub *websocket.Hub
}

func (n *hubNotifier) NotifyRewrite(ctx context.Context, report rewrite.Report) {
	n.hub.BroadcastRewrite(websocket.RewriteEvent{
		RequestID:         getRequestID(ctx),
		Mode:              report.Mode.String(),
		Characters:        report.Characters,
		OriginalScore:     report.OriginalScore,
		NewScore:          report.NewScore,
		PatternsFound:     report.PatternsFound,
		PatternsRemaining: report.PatternsRemaining,
		PatternIDs:        findingIDs(report.Patterns),
		RewriteFailed:     report.RewriteFailed,
		ProcessingMS:      float64(report.Duration.Microseconds()) / 1000,
	})
}
