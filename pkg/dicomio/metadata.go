// Package dicomio reads and writes the DICOM data used by the orientation
// and organ detectors: tag metadata, pixel volumes, and the derived files
// produced by the conversion utilities.
package dicomio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

var (
	// ErrDecode marks a file that could not be parsed as DICOM.
	ErrDecode = errors.New("dicom decode failed")

	// ErrNoDICOMFiles is returned when a folder holds no .dcm files.
	ErrNoDICOMFiles = errors.New("no .dcm files found")
)

// Metadata holds string renderings of selected DICOM attributes keyed by
// keyword (e.g. "BodyPartExamined"). A key is present only when the attribute
// exists in the source dataset. A nil Metadata stands for a dataset that
// could not be decoded at all.
type Metadata map[string]string

// Lookup returns the attribute value and whether it was present.
func (m Metadata) Lookup(keyword string) (string, bool) {
	v, ok := m[keyword]
	return v, ok
}

// Get returns the attribute value or def when absent.
func (m Metadata) Get(keyword, def string) string {
	if v, ok := m[keyword]; ok {
		return v
	}
	return def
}

// Floats parses a numeric, possibly multi-valued ("a\b\c") attribute.
func (m Metadata) Floats(keyword string) ([]float64, bool) {
	v, ok := m[keyword]
	if !ok {
		return nil, false
	}
	out, err := parseDecimals(strings.Split(v, `\`))
	if err != nil {
		return nil, false
	}
	return out, true
}

// metadataTags are the attributes collected by ReadMetadata.
var metadataTags = []struct {
	keyword string
	tag     tag.Tag
}{
	{"PatientName", tag.PatientName},
	{"PatientID", tag.PatientID},
	{"PatientSex", tag.PatientSex},
	{"PatientAge", tag.PatientAge},
	{"StudyDate", tag.StudyDate},
	{"StudyDescription", tag.StudyDescription},
	{"SeriesDescription", tag.SeriesDescription},
	{"BodyPartExamined", tag.BodyPartExamined},
	{"Modality", tag.Modality},
	{"Manufacturer", tag.Manufacturer},
	{"StationName", tag.StationName},
	{"ProtocolName", tag.ProtocolName},
	{"SequenceName", tag.SequenceName},
	{"ImageOrientationPatient", tag.ImageOrientationPatient},
	{"ImagePositionPatient", tag.ImagePositionPatient},
	{"InstanceNumber", tag.InstanceNumber},
	{"RescaleSlope", tag.RescaleSlope},
	{"RescaleIntercept", tag.RescaleIntercept},
	{"PixelRepresentation", tag.PixelRepresentation},
	{"BitsAllocated", tag.BitsAllocated},
	{"BitsStored", tag.BitsStored},
	{"SeriesInstanceUID", tag.SeriesInstanceUID},
	{"SliceThickness", tag.SliceThickness},
	{"PixelSpacing", tag.PixelSpacing},
}

// ReadMetadata parses the header of a DICOM file, without pixel data.
func ReadMetadata(path string) (Metadata, error) {
	ds, err := dicom.ParseFile(path, nil, dicom.SkipPixelData())
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return MetadataFromDataset(ds), nil
}

// MetadataFromDataset renders the collected attributes of ds. Multi-valued
// attributes are joined with the DICOM value separator.
func MetadataFromDataset(ds dicom.Dataset) Metadata {
	md := Metadata{}
	for _, mt := range metadataTags {
		elem, err := ds.FindElementByTag(mt.tag)
		if err != nil {
			continue
		}
		if s, ok := elementString(elem); ok {
			md[mt.keyword] = s
		}
	}
	return md
}

// OrientationPatient returns the six ImageOrientationPatient values, or
// false when the attribute is absent or malformed.
func (m Metadata) OrientationPatient() ([]float64, bool) {
	iop, ok := m.Floats("ImageOrientationPatient")
	if !ok || len(iop) != 6 {
		return nil, false
	}
	return iop, true
}

func elementString(elem *dicom.Element) (string, bool) {
	if elem == nil || elem.Value == nil {
		return "", false
	}
	switch elem.Value.ValueType() {
	case dicom.Strings:
		values := dicom.MustGetStrings(elem.Value)
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = strings.TrimRight(v, " \x00")
		}
		return strings.Join(parts, `\`), true
	case dicom.Ints:
		ints := dicom.MustGetInts(elem.Value)
		parts := make([]string, len(ints))
		for i, v := range ints {
			parts[i] = strconv.Itoa(v)
		}
		return strings.Join(parts, `\`), true
	case dicom.Floats:
		floats := dicom.MustGetFloats(elem.Value)
		parts := make([]string, len(floats))
		for i, v := range floats {
			parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		return strings.Join(parts, `\`), true
	}
	return "", false
}

func parseDecimals(values []string) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, s := range values {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse decimal %q: %w", s, err)
		}
		out = append(out, f)
	}
	return out, nil
}
