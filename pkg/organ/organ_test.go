package organ

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mriorient/pkg/dicomio"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		md         dicomio.Metadata
		organ      string
		icon       string
		confidence float64
		source     string
	}{
		{"exact body part", dicomio.Metadata{"BodyPartExamined": "LIVER"}, "Liver", "🟤", 0.95, "BodyPartExamined"},
		{"body part case and blanks", dicomio.Metadata{"BodyPartExamined": " knee "}, "Knee", "🦵", 0.95, "BodyPartExamined"},
		{"partial body part", dicomio.Metadata{"BodyPartExamined": "ABDOMEN PELVIS"}, "Abdomen", "🔶", 0.85, "BodyPartExamined"},
		{"series keyword", dicomio.Metadata{"SeriesDescription": "renal mass protocol"}, "Kidney", "🫘", 0.75, "SeriesDescription"},
		{"study keyword", dicomio.Metadata{"StudyDescription": "MRI Prostate w/o"}, "Prostate", "🔵", 0.65, "StudyDescription"},
		{"raw body part", dicomio.Metadata{"BodyPartExamined": "XYZZY"}, "Xyzzy", "🔍", 0.5, "BodyPartExamined"},
		{"raw body part with separator", dicomio.Metadata{"BodyPartExamined": "left_arm"}, "Left_Arm", "🔍", 0.5, "BodyPartExamined"},
		{"series beats raw body part", dicomio.Metadata{"BodyPartExamined": "XYZZY", "SeriesDescription": "T1 brain"}, "Brain", "🧠", 0.75, "SeriesDescription"},
		{"exact body part beats series", dicomio.Metadata{"BodyPartExamined": "CHEST", "SeriesDescription": "cardiac"}, "Chest", "🫁", 0.95, "BodyPartExamined"},
		{"series keyword order", dicomio.Metadata{"SeriesDescription": "head and neck cerebral"}, "Head/Brain", "🧠", 0.75, "SeriesDescription"},
		{"blank body part is absent", dicomio.Metadata{"BodyPartExamined": "  "}, UnknownRegion, "❓", 0.3, ""},
		{"no usable attributes", dicomio.Metadata{"Modality": "MR"}, UnknownRegion, "❓", 0.3, ""},
		{"empty metadata", dicomio.Metadata{}, UnknownRegion, "❓", 0.3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Detect(tt.md)
			assert.Equal(t, tt.organ, res.Organ)
			assert.Equal(t, tt.icon, res.Icon)
			assert.InDelta(t, tt.confidence, res.Confidence, 1e-12)
			assert.Equal(t, tt.source, res.Source)
			assert.Len(t, res.Metadata, len(snapshotFields))
		})
	}
}

func TestTitleWords(t *testing.T) {
	tests := map[string]string{
		"LEFT_ARM":   "Left_Arm",
		"ARM2ND":     "Arm2Nd",
		"LOWER LIMB": "Lower Limb",
		"C-SPINE":    "C-Spine",
		"123":        "123",
		"":           "",
	}
	for in, want := range tests {
		assert.Equal(t, want, titleWords(in), in)
	}
}

func TestDetectUnreadable(t *testing.T) {
	res := Detect(nil)
	assert.Equal(t, "Unknown", res.Organ)
	assert.Equal(t, "❓", res.Icon)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Metadata)
}

func TestDetectFileUndecodable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.dcm")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0644))

	res, err := DetectFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, dicomio.ErrDecode))
	assert.Equal(t, Unreadable(), res)
}

func TestSnapshotUsesNA(t *testing.T) {
	snap := Snapshot(dicomio.Metadata{"Modality": "MR", "PatientName": ""})
	values := map[string]string{}
	for _, f := range snap {
		values[f.Name] = f.Value
	}
	assert.Equal(t, "MR", values["Modality"])
	assert.Equal(t, "", values["Patient Name"])
	assert.Equal(t, "N/A", values["Study Date"])
	assert.Equal(t, "Patient Name", snap[0].Name)
	assert.Equal(t, "Sequence Name", snap[len(snap)-1].Name)
}

func TestFormatReport(t *testing.T) {
	res := Detect(dicomio.Metadata{
		"BodyPartExamined": "LIVER",
		"Modality":         "MR",
		"PatientName":      "",
	})
	report := FormatReport(res)

	expected := strings.Join([]string{
		strings.Repeat("=", 50),
		"ORGAN DETECTION REPORT",
		strings.Repeat("=", 50),
		"",
		"🟤 Detected Organ: Liver",
		"📊 Confidence: 95.0%",
		"",
		strings.Repeat("-", 50),
		"METADATA:",
		strings.Repeat("-", 50),
		"Body Part Examined............ LIVER",
		"Modality...................... MR",
		strings.Repeat("=", 50),
	}, "\n")
	assert.Equal(t, expected, report)
}

func TestTablesHaveNoDuplicateKeys(t *testing.T) {
	for _, table := range [][]entry{bodyPartTable, descriptionKeywords} {
		seen := map[string]bool{}
		for _, e := range table {
			assert.False(t, seen[e.key], "duplicate key %s", e.key)
			seen[e.key] = true
		}
	}
}
