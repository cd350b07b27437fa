package model

import "time"

// Session is the shared record every workflow step reads from and patches.
type Session struct {
	CaseStudy    string `json:"case_study" yaml:"case_study"`
	AIAnalysis   string `json:"ai_analysis" yaml:"ai_analysis"`
	UserAnalysis string `json:"user_analysis" yaml:"user_analysis"`
}

// IsEmpty reports whether every field is blank.
func (s Session) IsEmpty() bool {
	return s == Session{}
}

// SessionRecord is a persisted session with bookkeeping timestamps.
type SessionRecord struct {
	ID        string    `json:"id" yaml:"id"`
	State     Session   `json:"state" yaml:"state"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Document is an uploaded file to be sent for text extraction.
type Document struct {
	Name        string
	ContentType string
	Data        []byte
}

// Empty reports whether no document was selected.
func (d *Document) Empty() bool {
	return d == nil || len(d.Data) == 0
}

// Extraction is the joint result of document ingestion: the extracted case
// text and a first-pass analysis of it.
type Extraction struct {
	Text     string `json:"text"`
	Analysis string `json:"analysis"`
}

// Report holds the four text fields sent to the report renderer.
type Report struct {
	CaseStudy    string `json:"case_study"`
	AIAnalysis   string `json:"ai_analysis"`
	UserAnalysis string `json:"user_analysis"`
	Comparison   string `json:"comparison"`
}
