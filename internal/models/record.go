package models

// Severity levels assigned to extracted clinical events.
const (
	SeverityMild     = "mild"
	SeverityModerate = "moderate"
	SeveritySevere   = "severe"
)

// Source points a fact back into the full extracted text it came from.
type Source struct {
	Offset  int    `json:"offset"`
	Context string `json:"context"`
}

// Injury is an extracted injury fact.
type Injury struct {
	BodyPart string `json:"body_part"`
	Severity string `json:"severity"`
	Date     string `json:"date"`
	Source   Source `json:"source"`
}

// Diagnosis is an extracted diagnosis fact with an optional numeric code.
type Diagnosis struct {
	Name   string `json:"name"`
	Code   string `json:"code"`
	Source Source `json:"source"`
}

// Procedure is an extracted procedure or treatment fact.
type Procedure struct {
	Name   string `json:"name"`
	Date   string `json:"date"`
	Source Source `json:"source"`
}

// Medication is an extracted medication entry with dosage and frequency tokens.
type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Source    Source `json:"source"`
}

// TimelineEvent is a dated event with the sentence that mentions it.
type TimelineEvent struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Source      Source `json:"source"`
}

// MedicalCode is an ICD- or CPT-style code token found in the text.
type MedicalCode struct {
	System string `json:"system"` // "icd" or "cpt"
	Code   string `json:"code"`
	Source Source `json:"source"`
}

// Clinician identifies the author of a note when one is found.
type Clinician struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// SectionTexts holds the SOAP sections of a note. Absent sections carry the
// NotAvailable sentinel.
type SectionTexts struct {
	Subjective string `json:"subjective"`
	Objective  string `json:"objective"`
	Assessment string `json:"assessment"`
	Plan       string `json:"plan"`
}

// NarrativeTexts holds free-text narrative regions of a note.
type NarrativeTexts struct {
	Feedback         string `json:"feedback"`
	RecoveryProgress string `json:"recovery_progress"`
	History          string `json:"history"`
}

// ClinicalRecord is the canonical structured record derived from one
// document. The document store holds the authoritative copy; graph and
// vector backends hold derived views.
type ClinicalRecord struct {
	PatientID      string            `json:"patient_id"`
	DocumentID     string            `json:"document_id"`
	DocumentTitle  string            `json:"document_title"`
	DocumentDate   string            `json:"document_date"`
	Clinician      Clinician         `json:"clinician"`
	Injuries       []Injury          `json:"injuries"`
	Diagnoses      []Diagnosis       `json:"diagnoses"`
	Procedures     []Procedure       `json:"procedures"`
	Medications    []Medication      `json:"medications"`
	Timeline       []TimelineEvent   `json:"timeline"`
	MedicalCodes   []MedicalCode     `json:"medical_codes"`
	SectionTexts   SectionTexts      `json:"section_texts"`
	NarrativeTexts NarrativeTexts    `json:"narrative_texts"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// NewClinicalRecord returns a record with every fact field initialized so the
// shape is always complete: empty slices, sentinel strings, empty clinician.
func NewClinicalRecord(patientID, documentID string) *ClinicalRecord {
	return &ClinicalRecord{
		PatientID:     patientID,
		DocumentID:    documentID,
		DocumentTitle: NotAvailable,
		DocumentDate:  NotAvailable,
		Clinician:     Clinician{Name: NotAvailable, Role: NotAvailable},
		Injuries:      []Injury{},
		Diagnoses:     []Diagnosis{},
		Procedures:    []Procedure{},
		Medications:   []Medication{},
		Timeline:      []TimelineEvent{},
		MedicalCodes:  []MedicalCode{},
		SectionTexts: SectionTexts{
			Subjective: NotAvailable,
			Objective:  NotAvailable,
			Assessment: NotAvailable,
			Plan:       NotAvailable,
		},
		NarrativeTexts: NarrativeTexts{
			Feedback:         NotAvailable,
			RecoveryProgress: NotAvailable,
			History:          NotAvailable,
		},
	}
}
