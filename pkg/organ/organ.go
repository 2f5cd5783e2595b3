// Package organ infers the examined body part or organ from the
// descriptive DICOM attributes of a study.
package organ

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"mriorient/pkg/dicomio"
)

// Confidence levels of the individual rules.
const (
	ConfidenceExact       = 0.95
	ConfidencePartial     = 0.85
	ConfidenceSeries      = 0.75
	ConfidenceStudy       = 0.65
	ConfidenceRaw         = 0.5
	ConfidenceUnknownArea = 0.3
)

const (
	// UnknownRegion is reported when the attributes were read but nothing
	// could be resolved.
	UnknownRegion = "Unknown Region"

	// UnknownOrgan is reported when the dataset could not be read at all.
	UnknownOrgan = "Unknown"

	unknownIcon = "❓"
	rawIcon     = "🔍"

	notAvailable = "N/A"
)

// Field is one line of the metadata snapshot.
type Field struct {
	Name  string
	Value string
}

// Result is the outcome of an organ lookup.
type Result struct {
	Organ      string
	Icon       string
	Confidence float64

	// Source is the attribute that decided the result, empty when nothing did
	Source string

	// Metadata is the human-readable snapshot, empty for an unreadable dataset
	Metadata []Field
}

// Unreadable is the result for a dataset that could not be decoded.
func Unreadable() Result {
	return Result{Organ: UnknownOrgan, Icon: unknownIcon, Confidence: 0}
}

// Detect resolves the organ from BodyPartExamined, then SeriesDescription,
// then StudyDescription, keeping the most confident answer. A nil md is an
// unreadable dataset. Blank attribute values count as absent.
func Detect(md dicomio.Metadata) Result {
	if md == nil {
		return Unreadable()
	}

	res := fromBodyPart(md)
	if res.Confidence < 0.8 {
		if r := fromDescription(md, "SeriesDescription", ConfidenceSeries); r.Confidence > res.Confidence {
			res = r
		}
	}
	if res.Confidence < 0.6 {
		if r := fromDescription(md, "StudyDescription", ConfidenceStudy); r.Confidence > res.Confidence {
			res = r
		}
	}
	if res.Confidence < 0.5 {
		res = Result{Organ: UnknownRegion, Icon: unknownIcon, Confidence: ConfidenceUnknownArea}
	}
	res.Metadata = Snapshot(md)
	return res
}

// DetectFile reads path and runs Detect. An unreadable file yields the
// Unreadable result together with the decode error.
func DetectFile(path string) (Result, error) {
	md, err := dicomio.ReadMetadata(path)
	if err != nil {
		return Unreadable(), fmt.Errorf("detect organ: %w", err)
	}
	return Detect(md), nil
}

func present(md dicomio.Metadata, keyword string) (string, bool) {
	v, ok := md.Lookup(keyword)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

func fromBodyPart(md dicomio.Metadata) Result {
	v, ok := present(md, "BodyPartExamined")
	if !ok {
		return Result{Organ: UnknownOrgan, Icon: unknownIcon}
	}
	part := strings.ToUpper(strings.TrimSpace(v))
	for _, e := range bodyPartTable {
		if e.key == part {
			return Result{Organ: e.organ, Icon: e.icon, Confidence: ConfidenceExact, Source: "BodyPartExamined"}
		}
	}
	for _, e := range bodyPartTable {
		if strings.Contains(part, e.key) || strings.Contains(e.key, part) {
			return Result{Organ: e.organ, Icon: e.icon, Confidence: ConfidencePartial, Source: "BodyPartExamined"}
		}
	}
	return Result{Organ: titleWords(part), Icon: rawIcon, Confidence: ConfidenceRaw, Source: "BodyPartExamined"}
}

// titleWords capitalises every run of letters on its own, so that any
// non-letter starts a new word: "LEFT_ARM" becomes "Left_Arm".
func titleWords(s string) string {
	caser := cases.Title(language.Und)
	var b strings.Builder
	start := -1
	for i, r := range s {
		if unicode.IsLetter(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			b.WriteString(caser.String(s[start:i]))
			start = -1
		}
		b.WriteRune(r)
	}
	if start >= 0 {
		b.WriteString(caser.String(s[start:]))
	}
	return b.String()
}

func fromDescription(md dicomio.Metadata, keyword string, confidence float64) Result {
	v, ok := present(md, keyword)
	if !ok {
		return Result{Organ: UnknownOrgan, Icon: unknownIcon}
	}
	desc := strings.ToLower(v)
	for _, e := range descriptionKeywords {
		if strings.Contains(desc, e.key) {
			return Result{Organ: e.organ, Icon: e.icon, Confidence: confidence, Source: keyword}
		}
	}
	return Result{Organ: UnknownOrgan, Icon: unknownIcon}
}

// Snapshot renders the report fields of md, with "N/A" for absent ones.
func Snapshot(md dicomio.Metadata) []Field {
	out := make([]Field, len(snapshotFields))
	for i, f := range snapshotFields {
		out[i] = Field{Name: f.label, Value: md.Get(f.keyword, notAvailable)}
	}
	return out
}

// FormatReport renders the fixed-layout text report. Fields that are "N/A"
// or blank are left out.
func FormatReport(r Result) string {
	rule := strings.Repeat("=", 50)
	dash := strings.Repeat("-", 50)

	lines := []string{
		rule,
		"ORGAN DETECTION REPORT",
		rule,
		fmt.Sprintf("\n%s Detected Organ: %s", r.Icon, r.Organ),
		fmt.Sprintf("📊 Confidence: %.1f%%", r.Confidence*100),
		"\n" + dash,
		"METADATA:",
		dash,
	}
	for _, f := range r.Metadata {
		if f.Value == notAvailable || strings.TrimSpace(f.Value) == "" {
			continue
		}
		lines = append(lines, fmt.Sprintf("%s %s", padDots(f.Name, 30), f.Value))
	}
	lines = append(lines, rule)
	return strings.Join(lines, "\n")
}

func padDots(s string, width int) string {
	if n := width - len([]rune(s)); n > 0 {
		return s + strings.Repeat(".", n)
	}
	return s
}
