package workflow

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/audit-cli/internal/model"
	"github.com/sells-group/audit-cli/internal/session"
)

// GenerateResult is the outcome of a generate-then-analyze chain.
type GenerateResult struct {
	CaseStudy string `json:"case_study"`
	Analysis  string `json:"analysis"`
	// Analyzed is false when the chain stopped before the analysis step.
	Analyzed bool `json:"analyzed"`
}

// Generate requests a case study for filter, stores it, and then requests
// its analysis. A blank or sentinel-marked case is stored as both the case
// and the analysis and no analysis is requested. A transport failure stores
// the generation failure marker as the analysis and leaves the case as is.
func (o *Orchestrator) Generate(ctx context.Context, filter model.GenerationFilter) (*GenerateResult, error) {
	if err := filter.Validate(); err != nil {
		return nil, eris.Wrap(err, "workflow: generate")
	}

	seq := o.tracker.Begin(KindGenerate)
	log := o.logger(KindGenerate, seq)
	log.Info("workflow: generating case",
		zap.String("country", filter.Country),
		zap.String("sector", filter.Sector),
		zap.String("company_type", filter.CompanyType),
		zap.String("company_size", filter.CompanySize),
	)

	caseText, err := guard(ctx, o, breakerAssistant, func(ctx context.Context) (string, error) {
		return o.svc.Assistant.GenerateCase(ctx, filter)
	})
	if err != nil {
		f := o.fail(KindGenerate, seq, MsgGenerate, err)
		if !o.current(KindGenerate, seq) {
			return nil, o.stale(KindGenerate, seq)
		}
		o.session.Patch(session.Patch{}.WithAIAnalysis(MsgGenerate))
		return &GenerateResult{Analysis: MsgGenerate}, f
	}
	if !o.current(KindGenerate, seq) {
		return nil, o.stale(KindGenerate, seq)
	}

	if shortCircuits(caseText) {
		o.session.Patch(session.Patch{}.WithCaseStudy(caseText).WithAIAnalysis(caseText))
		o.tracker.Finish(KindGenerate, seq, Failed, caseText)
		log.Warn("workflow: generation reported an error, skipping analysis")
		return &GenerateResult{CaseStudy: caseText, Analysis: caseText}, nil
	}

	o.session.Patch(session.Patch{}.WithCaseStudy(caseText))
	o.tracker.Finish(KindGenerate, seq, Success, "")

	analysis, err := o.analyze(ctx, caseText, MsgGenerate, seq)
	return &GenerateResult{CaseStudy: caseText, Analysis: analysis, Analyzed: true}, err
}

// Ingest sends doc for extraction and stores the extracted case and its
// analysis in one patch. A nil or empty document is a no-op. Failures leave
// the session untouched.
func (o *Orchestrator) Ingest(ctx context.Context, doc *model.Document) (*model.Extraction, error) {
	if doc.Empty() {
		zap.L().Debug("workflow: ingest without document, ignoring", zap.String("session", o.session.ID()))
		return nil, nil
	}

	seq := o.tracker.Begin(KindIngest)
	log := o.logger(KindIngest, seq)
	log.Info("workflow: ingesting document", zap.String("name", doc.Name), zap.Int("bytes", len(doc.Data)))

	ext, err := guard(ctx, o, breakerIngest, func(ctx context.Context) (*model.Extraction, error) {
		return o.svc.Ingester.Ingest(ctx, *doc)
	})
	if err == nil && ext == nil {
		err = eris.New("workflow: ingest returned no extraction")
	}
	if err != nil {
		return nil, o.fail(KindIngest, seq, MsgIngest, err)
	}
	if !o.current(KindIngest, seq) {
		return nil, o.stale(KindIngest, seq)
	}

	o.session.Patch(session.Patch{}.WithCaseStudy(ext.Text).WithAIAnalysis(ext.Analysis))
	o.tracker.Finish(KindIngest, seq, Success, "")
	return ext, nil
}

// EnterCase stores a case study typed by the auditor.
func (o *Orchestrator) EnterCase(text string) model.Session {
	return o.session.Patch(session.Patch{}.WithCaseStudy(text))
}
