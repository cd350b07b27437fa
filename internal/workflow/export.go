package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
)

// Report assembles the export fields from the session and the panel.
func (o *Orchestrator) Report() model.Report {
	s := o.session.Snapshot()
	return model.Report{
		CaseStudy:    s.CaseStudy,
		AIAnalysis:   s.AIAnalysis,
		UserAnalysis: s.UserAnalysis,
		Comparison:   o.panel.Summary(),
	}
}

// Artifact is an exported report.
type Artifact struct {
	Data []byte
	// Location is where the sink stored the artifact; empty without a sink.
	Location string
}

// Export renders the report, saves the artifact and then resets the session
// and the panel. On failure the session is left unchanged and export may be
// retried.
func (o *Orchestrator) Export(ctx context.Context) (*Artifact, error) {
	return o.ExportTo(ctx, o.svc.Sink)
}

// ExportTo is Export with sink in place of the configured one. A nil sink
// returns the artifact without saving it.
func (o *Orchestrator) ExportTo(ctx context.Context, sink Sink) (*Artifact, error) {
	seq := o.tracker.Begin(KindExport)
	log := o.logger(KindExport, seq)
	report := o.Report()

	data, err := guard(ctx, o, breakerRenderer, func(ctx context.Context) ([]byte, error) {
		return o.svc.Renderer.RenderReport(ctx, report)
	})
	if err == nil && len(data) == 0 {
		err = eris.New("workflow: empty report artifact")
	}
	if err != nil {
		return nil, o.fail(KindExport, seq, MsgExport, err)
	}

	art := &Artifact{Data: data}
	if sink != nil {
		art.Location, err = sink.Save(ctx, data)
		if err != nil {
			return nil, o.fail(KindExport, seq, MsgExport, eris.Wrap(err, "workflow: save report"))
		}
	}

	o.session.Reset()
	o.panel.Clear()
	o.tracker.Finish(KindExport, seq, Success, "")
	log.Info("workflow: report exported", zap.String("location", art.Location), zap.Int("bytes", len(data)))
	return art, nil
}
