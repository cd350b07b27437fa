package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/session"
)

// EditDraft replaces the comparison input with text typed by the auditor.
func (o *Orchestrator) EditDraft(text string) PanelView {
	o.panel.Edit(text)
	return o.panel.View()
}

// Compare scores the panel draft against userAnalysis. An empty draft is
// sent as is. On success the result is shown on the panel, userAnalysis is
// stored verbatim in the session and the comparison is recorded in the
// history. On failure nothing but the panel changes.
//
// A response is discarded with ErrStale when the draft was replaced while
// the request was in flight, or when a newer comparison was dispatched and
// stale responses are dropped.
func (o *Orchestrator) Compare(ctx context.Context, userAnalysis string) (*model.ComparisonResult, error) {
	seq := o.tracker.Begin(KindCompare)
	draft, source, epoch := o.panel.begin()
	log := o.logger(KindCompare, seq)
	log.Info("workflow: comparing analyses",
		zap.Int("ai_chars", len(draft)),
		zap.Int("user_chars", len(userAnalysis)),
	)

	res, err := guard(ctx, o, breakerScorer, func(ctx context.Context) (*model.ComparisonResult, error) {
		return o.svc.Scorer.Compare(ctx, draft, userAnalysis)
	})
	if err == nil && res == nil {
		err = eris.New("workflow: compare returned no result")
	}

	applies := o.current(KindCompare, seq) && o.panel.current(epoch)
	if err != nil {
		f := o.fail(KindCompare, seq, MsgCompare, err)
		if !applies {
			return nil, o.stale(KindCompare, seq)
		}
		o.panel.fail(epoch, MsgCompare)
		return nil, f
	}
	if !applies || !o.panel.succeed(epoch, *res) {
		return nil, o.stale(KindCompare, seq)
	}

	o.session.Patch(session.Patch{}.WithUserAnalysis(userAnalysis))
	o.tracker.Finish(KindCompare, seq, Success, "")
	log.Info("workflow: comparison stored",
		zap.String("effectiveness", res.Effectiveness),
		zap.Float64("risk", res.Risk),
		zap.String("level", res.Level),
	)

	if o.svc.History != nil {
		rec := &model.ComparisonRecord{
			SessionID:      o.session.ID(),
			SourceAnalysis: source,
			AIAnalysis:     draft,
			UserAnalysis:   userAnalysis,
			Result:         *res,
		}
		if herr := o.svc.History.AddComparison(ctx, rec); herr != nil {
			log.Warn("workflow: failed to record comparison", zap.Error(herr))
		}
	}
	return res, nil
}

// RestoreComparison shows a persisted comparison on the panel when it was
// made against the session's current AI analysis.
func (o *Orchestrator) RestoreComparison(rec *model.ComparisonRecord) bool {
	return o.panel.Restore(rec)
}
