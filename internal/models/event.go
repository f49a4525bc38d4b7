package models

// TimelineEvent is a structured factual assertion extracted from a document or
// entered manually.
//
// SourceDocumentID references the originating document by identifier. The
// reference may dangle: deleting a document orphans its events on purpose
// instead of cascading.
type TimelineEvent struct {
	ID     string `db:"id"`
	CaseID string `db:"case_id"`
	// Date is YYYY-MM-DD, or empty while it needs clarification.
	Date   string `db:"date"`
	Title  string `db:"title"`
	Actor  string `db:"actor"`
	Cause  string `db:"cause"`
	Effect string `db:"effect"`
	Claim  string `db:"claim"`
	Relief string `db:"relief"`
	// SourceQuote is the exact phrase in the source content that supports the
	// event, used for highlighting.
	SourceQuote           string `db:"source_quote"`
	SourceDocumentID      string `db:"source_document_id"`
	NeedsClarification    bool   `db:"needs_clarification"`
	ClarificationQuestion string `db:"clarification_question"`
}
