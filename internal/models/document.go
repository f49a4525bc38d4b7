package models

import "time"

type MediaKind string

const (
	MediaKindText  MediaKind = "text"
	MediaKindPDF   MediaKind = "pdf"
	MediaKindImage MediaKind = "image"
	MediaKindAudio MediaKind = "audio"
	MediaKindVideo MediaKind = "video"
)

// DefaultReliabilityScore is assigned to every document at ingestion and only
// lowered by explicit user action.
const DefaultReliabilityScore = 100

// DocumentMeta is the small, always-resident half of a document. Listing a
// case loads only these records, never the content blobs.
//
// Digest is the chain-of-custody fingerprint. It is computed once over the raw
// bytes at ingestion and never recomputed; a mismatch on re-verification
// signals tampering.
type DocumentMeta struct {
	ID               string    `db:"id"`
	Title            string    `db:"title"`
	SequenceLabel    string    `db:"sequence_label"`
	Kind             MediaKind `db:"kind"`
	Digest           string    `db:"digest"`
	AddedAt          time.Time `db:"added_at"`
	ReliabilityScore int       `db:"reliability_score"`
	CaseID           string    `db:"case_id"`
}

// DocumentContent is the heavy half of a document, loaded on demand by ID.
// Text holds the transcript or OCR text; MediaPayload holds the raw embedded
// media bytes for image/audio/video evidence.
type DocumentContent struct {
	ID           string `db:"id"`
	Text         string `db:"text"`
	MediaPayload string `db:"media_payload"`
}

// Document combines both halves for writes. Reads go through the split
// accessors so listings stay cheap.
type Document struct {
	DocumentMeta
	Content DocumentContent
}
