package workflow

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/session"
)

// Send asks the assistant about a free-form message and stores the reply as
// the AI analysis. The case study is left as is. On transport failure the
// send failure marker is stored instead and returned with a *Failure.
func (o *Orchestrator) Send(ctx context.Context, message string) (string, error) {
	return o.analyze(ctx, message, MsgSend, 0)
}

// Analyze requests an analysis of text and stores it as the AI analysis.
// Failures are converted into the generation failure marker.
func (o *Orchestrator) Analyze(ctx context.Context, text string) (string, error) {
	return o.analyze(ctx, text, MsgGenerate, 0)
}

// analyze runs the analysis step. A non-zero genSeq ties the step to a
// generation dispatch so that a newer generation also supersedes it.
func (o *Orchestrator) analyze(ctx context.Context, text, failMsg string, genSeq uint64) (string, error) {
	seq := o.tracker.Begin(KindAnalyze)
	log := o.logger(KindAnalyze, seq)
	log.Debug("workflow: analysis requested")

	reply, err := guard(ctx, o, breakerAssistant, func(ctx context.Context) (string, error) {
		return o.svc.Assistant.SendMessage(ctx, text)
	})

	applies := func() bool {
		return o.current(KindAnalyze, seq) && (genSeq == 0 || o.current(KindGenerate, genSeq))
	}

	if err != nil {
		f := o.fail(KindAnalyze, seq, failMsg, err)
		if !applies() {
			return failMsg, o.stale(KindAnalyze, seq)
		}
		o.session.Patch(session.Patch{}.WithAIAnalysis(failMsg))
		return failMsg, f
	}

	if !applies() {
		return reply, o.stale(KindAnalyze, seq)
	}
	o.session.Patch(session.Patch{}.WithAIAnalysis(reply))
	o.tracker.Finish(KindAnalyze, seq, Success, "")
	log.Info("workflow: analysis stored", zap.Int("chars", len(reply)))
	return reply, nil
}
