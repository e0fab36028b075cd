package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a content-derived identifier.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Method identifies how a document's text was obtained.
type Method string

const (
	MethodNone   Method = "none"
	MethodDirect Method = "direct"
	MethodOCR    Method = "ocr"
)

// Reason is the outcome code attached to every extraction.
type Reason string

const (
	ReasonOK                Reason = "ok"
	ReasonTimeout           Reason = "timeout"
	ReasonEngineUnavailable Reason = "engine_unavailable"
	ReasonNoTextRecognized  Reason = "no_text_recognized"
	ReasonReadError         Reason = "read_error"
	ReasonUnsupportedType   Reason = "unsupported_type"
)

// ExtractionResult is the text obtained from one document.
type ExtractionResult struct {
	Text      string
	PageCount int
	Method    Method
	Reason    Reason
}

// Success reports whether the extraction produced usable text.
func (r ExtractionResult) Success() bool {
	return r.Reason == ReasonOK
}

// FailedExtraction builds an empty result carrying the given reason.
func FailedExtraction(reason Reason) ExtractionResult {
	return ExtractionResult{Method: MethodNone, Reason: reason}
}

// FactField names one of the business facts.
type FactField string

const (
	FactDate       FactField = "date"
	FactAmount     FactField = "amount"
	FactDepartment FactField = "department"
	FactDrafter    FactField = "drafter"
)

// AllFactFields lists the fact fields in a stable order.
var AllFactFields = []FactField{FactDate, FactAmount, FactDepartment, FactDrafter}

// Fact is a single extracted value with the confidence of the rule that produced it.
// Confidence is on a 0-100 scale.
type Fact struct {
	Value      string
	Confidence int
	Rule       string
}

// IsSet reports whether the fact holds a value.
func (f Fact) IsSet() bool {
	return f.Value != ""
}

// BusinessFacts holds structured fields extracted from document content.
type BusinessFacts struct {
	Date       Fact
	Amount     Fact
	Department Fact
	Drafter    Fact
}

// Get returns the fact stored for field.
func (b *BusinessFacts) Get(field FactField) Fact {
	switch field {
	case FactDate:
		return b.Date
	case FactAmount:
		return b.Amount
	case FactDepartment:
		return b.Department
	case FactDrafter:
		return b.Drafter
	}
	return Fact{}
}

// Merge stores fact under field unless a fact with equal or higher confidence
// is already present. Returns true if the stored value changed.
func (b *BusinessFacts) Merge(field FactField, fact Fact) bool {
	if !fact.IsSet() {
		return false
	}
	current := b.Get(field)
	if current.IsSet() && current.Confidence >= fact.Confidence {
		return false
	}
	switch field {
	case FactDate:
		b.Date = fact
	case FactAmount:
		b.Amount = fact
	case FactDepartment:
		b.Department = fact
	case FactDrafter:
		b.Drafter = fact
	default:
		return false
	}
	return true
}

// MergeAll merges every set fact from other.
func (b *BusinessFacts) MergeAll(other BusinessFacts) bool {
	changed := false
	for _, field := range AllFactFields {
		if b.Merge(field, other.Get(field)) {
			changed = true
		}
	}
	return changed
}

// Empty reports whether no fact has been populated.
func (b BusinessFacts) Empty() bool {
	return !b.Date.IsSet() && !b.Amount.IsSet() && !b.Department.IsSet() && !b.Drafter.IsSet()
}

// DocumentRecord is the indexed metadata for one corpus file.
// Path, relative to the corpus root, is the identity.
type DocumentRecord struct {
	Path         string
	Filename     string
	DateToken    string
	Year         int
	Month        int
	Title        string
	Keywords     []string
	Drafter      string
	Excerpt      string
	HasText      bool
	ImageOnly    bool
	Facts        BusinessFacts
	ExtractError Reason // empty when extraction succeeded or was not attempted
	IndexedAt    time.Time
}

// ID returns the content-derived ID of the record's path.
func (d *DocumentRecord) ID() ID {
	return IDFromContent(d.Path)
}

// Clone returns a deep copy of the record.
func (d *DocumentRecord) Clone() *DocumentRecord {
	c := *d
	c.Keywords = append([]string(nil), d.Keywords...)
	return &c
}

// DocumentFeatures are the query-independent tokens of a document used by
// the scorer. They are derived once per document and cached.
type DocumentFeatures struct {
	Path       string
	Filename   string
	Normalized string   // lowercased filename with delimiters collapsed to spaces
	Tokens     []string // filename tokens, ≥2 runes, in order of appearance
	Keywords   []string
	Year       int
	Month      int
}

// Answer is the engine's response to a query.
type Answer struct {
	Query     string
	Text      string
	Source    *DocumentRecord // nil when Found is false
	Found     bool
	Cached    bool
	CreatedAt time.Time
}
