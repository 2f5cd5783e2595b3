package dicomio

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"math/big"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
)

const (
	secondaryCaptureImageStorage = "1.2.840.10008.5.1.4.1.1.7"
	explicitVRLittleEndian       = "1.2.840.10008.1.2.1"
)

// NewUID returns a UUID-derived DICOM UID under the 2.25 root.
func NewUID() string {
	u := uuid.New()
	return "2.25." + new(big.Int).SetBytes(u[:]).String()
}

// Luminance converts img to 8-bit grayscale rows using the
// 0.299/0.587/0.114 weights, truncating toward zero.
func Luminance(img image.Image) [][]uint8 {
	b := img.Bounds()
	rows := make([][]uint8, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := make([]uint8, b.Dx())
		for x := 0; x < b.Dx(); x++ {
			if g, ok := img.(*image.Gray); ok {
				row[x] = g.GrayAt(b.Min.X+x, b.Min.Y+y).Y
				continue
			}
			r, gg, bb, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			row[x] = uint8(0.299*float64(r>>8) + 0.587*float64(gg>>8) + 0.114*float64(bb>>8))
		}
		rows[y] = row
	}
	return rows
}

// SecondaryCapture wraps img as an anonymous MONOCHROME2 Secondary Capture
// dataset with freshly generated study, series and instance UIDs.
func SecondaryCapture(img image.Image, now time.Time) (dicom.Dataset, error) {
	gray := Luminance(img)
	height := len(gray)
	if height == 0 || len(gray[0]) == 0 {
		return dicom.Dataset{}, fmt.Errorf("image has no pixels")
	}
	width := len(gray[0])

	native := frame.NewNativeFrame[uint8](8, height, width, width*height, 1)
	for y, row := range gray {
		copy(native.RawData[y*width:(y+1)*width], row)
	}
	pixels := dicom.PixelDataInfo{
		Frames: []*frame.Frame{{Encapsulated: false, NativeData: native}},
	}

	sopInstance := NewUID()
	date, clock := now.Format("20060102"), now.Format("150405")
	values := []struct {
		tag   tag.Tag
		value any
	}{
		{tag.FileMetaInformationVersion, []byte{0x00, 0x01}},
		{tag.MediaStorageSOPClassUID, []string{secondaryCaptureImageStorage}},
		{tag.MediaStorageSOPInstanceUID, []string{sopInstance}},
		{tag.TransferSyntaxUID, []string{explicitVRLittleEndian}},
		{tag.ImplementationClassUID, []string{NewUID()}},
		{tag.SOPClassUID, []string{secondaryCaptureImageStorage}},
		{tag.SOPInstanceUID, []string{sopInstance}},
		{tag.StudyDate, []string{date}},
		{tag.ContentDate, []string{date}},
		{tag.StudyTime, []string{clock}},
		{tag.ContentTime, []string{clock}},
		{tag.Modality, []string{"OT"}},
		{tag.PatientName, []string{"ANON^PATIENT"}},
		{tag.PatientID, []string{"000000"}},
		{tag.StudyInstanceUID, []string{NewUID()}},
		{tag.SeriesInstanceUID, []string{NewUID()}},
		{tag.SamplesPerPixel, []int{1}},
		{tag.PhotometricInterpretation, []string{"MONOCHROME2"}},
		{tag.Rows, []int{height}},
		{tag.Columns, []int{width}},
		{tag.BitsAllocated, []int{8}},
		{tag.BitsStored, []int{8}},
		{tag.HighBit, []int{7}},
		{tag.PixelRepresentation, []int{0}},
		{tag.PixelData, pixels},
	}

	ds := dicom.Dataset{}
	for _, v := range values {
		elem, err := dicom.NewElement(v.tag, v.value)
		if err != nil {
			return dicom.Dataset{}, fmt.Errorf("build element %s: %w", v.tag, err)
		}
		ds.Elements = append(ds.Elements, elem)
	}
	sort.SliceStable(ds.Elements, func(i, j int) bool {
		a, b := ds.Elements[i].Tag, ds.Elements[j].Tag
		if a.Group != b.Group {
			return a.Group < b.Group
		}
		return a.Element < b.Element
	})
	return ds, nil
}

// ConvertImage reads a JPEG or PNG file and writes it as a Secondary Capture DICOM.
func ConvertImage(in, out string) error {
	f, err := os.Open(in)
	if err != nil {
		return err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return fmt.Errorf("decode image %s: %w", in, err)
	}
	ds, err := SecondaryCapture(img, time.Now())
	if err != nil {
		return err
	}
	return WriteFile(out, ds)
}
