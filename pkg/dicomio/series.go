package dicomio

import (
	"fmt"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/frame"
	"github.com/suyashkumar/dicom/pkg/tag"
	"gonum.org/v1/gonum/spatial/r3"

	"mriorient/internal/models"
)

// Series is a DICOM acquisition stacked into a volume.
type Series struct {
	// Volume holds the rescaled samples, slices in acquisition order
	Volume *models.Volume

	// Files lists the source files in slice order
	Files []string

	// Metadata is taken from the first file of the sorted series
	Metadata Metadata

	// Pixels is the first frame of the first file, before rescaling, as
	// handed to the learned classifier
	Pixels *Frame

	// Skipped lists files of the folder that belong to another series
	Skipped []string
}

// Frame is one stored frame with its raw sample values, row-major.
type Frame struct {
	Width, Height int
	Samples       []float64
}

// Load reads either a folder of .dcm files or a single .dcm file.
func Load(path string) (*Series, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return LoadSeries(path)
	}
	if strings.EqualFold(filepath.Ext(path), ".dcm") {
		return LoadFile(path)
	}
	return nil, fmt.Errorf("input must be a folder of DICOMs or a .dcm file: %s", path)
}

// ListDICOMFiles returns the .dcm files in dir in natural filename order.
func ListDICOMFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".dcm") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w in folder: %s", ErrNoDICOMFiles, dir)
	}
	sort.SliceStable(files, func(i, j int) bool {
		ni, nj := extractNumber(files[i]), extractNumber(files[j])
		if ni != nj {
			return ni < nj
		}
		return files[i] < files[j]
	})
	return files, nil
}

type parsedFile struct {
	path     string
	md       Metadata
	slices   []models.Slice
	raw      *Frame
	position float64
	hasPos   bool
}

// LoadSeries reads the .dcm files in dir. When the folder mixes several
// series, only the one with the SeriesInstanceUID of the first file in
// filename order is loaded and the rest are reported in Skipped. Slices are
// ordered by their position along the plane normal when every file carries
// geometry, then by InstanceNumber, then by the number embedded in the
// filename.
func LoadSeries(dir string) (*Series, error) {
	files, err := ListDICOMFiles(dir)
	if err != nil {
		return nil, err
	}

	parsed := make([]parsedFile, 0, len(files))
	var skipped []string
	for _, f := range files {
		pf, err := parseFile(f)
		if err != nil {
			return nil, err
		}
		if len(parsed) > 0 && seriesUID(pf.md) != seriesUID(parsed[0].md) {
			skipped = append(skipped, f)
			continue
		}
		parsed = append(parsed, pf)
	}
	sortParsed(parsed)
	series, err := assemble(parsed)
	if err != nil {
		return nil, err
	}
	series.Skipped = skipped
	return series, nil
}

func seriesUID(md Metadata) string {
	return strings.TrimSpace(md.Get("SeriesInstanceUID", ""))
}

// LoadFile reads one .dcm file as a volume of one slice per frame.
func LoadFile(path string) (*Series, error) {
	pf, err := parseFile(path)
	if err != nil {
		return nil, err
	}
	return assemble([]parsedFile{pf})
}

func assemble(parsed []parsedFile) (*Series, error) {
	var slices []models.Slice
	files := make([]string, 0, len(parsed))
	for _, pf := range parsed {
		files = append(files, pf.path)
		for _, s := range pf.slices {
			s.Index = len(slices)
			slices = append(slices, s)
		}
	}
	vol, err := models.NewVolumeFromSlices(slices)
	if err != nil {
		return nil, fmt.Errorf("stack series: %w", err)
	}
	if spacing, ok := parsed[0].md.Floats("PixelSpacing"); ok && len(spacing) == 2 {
		vol.VoxelSize.Y, vol.VoxelSize.X = spacing[0], spacing[1]
	}
	if thick, ok := parsed[0].md.Floats("SliceThickness"); ok && len(thick) == 1 {
		vol.VoxelSize.Z = thick[0]
	}
	return &Series{
		Volume:   vol,
		Files:    files,
		Metadata: parsed[0].md,
		Pixels:   parsed[0].raw,
	}, nil
}

func parseFile(path string) (parsedFile, error) {
	ds, err := dicom.ParseFile(path, nil)
	if err != nil {
		return parsedFile{}, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	md := MetadataFromDataset(ds)
	slices, raw, err := decodeFrames(ds, md, path)
	if err != nil {
		return parsedFile{}, err
	}
	pf := parsedFile{path: path, md: md, slices: slices, raw: raw}
	if pos, ok := md.Floats("ImagePositionPatient"); ok && len(pos) == 3 {
		if iop, ok := md.OrientationPatient(); ok {
			n := r3.Cross(r3.Vec{X: iop[0], Y: iop[1], Z: iop[2]}, r3.Vec{X: iop[3], Y: iop[4], Z: iop[5]})
			pf.position = r3.Dot(n, r3.Vec{X: pos[0], Y: pos[1], Z: pos[2]})
			pf.hasPos = true
		}
	}
	return pf, nil
}

func sortParsed(parsed []parsedFile) {
	allPos := true
	for _, pf := range parsed {
		allPos = allPos && pf.hasPos
	}
	sort.SliceStable(parsed, func(i, j int) bool {
		if allPos && parsed[i].position != parsed[j].position {
			return parsed[i].position < parsed[j].position
		}
		ii, ij := instanceNumber(parsed[i].md), instanceNumber(parsed[j].md)
		if ii != ij {
			return ii < ij
		}
		return extractNumber(parsed[i].path) < extractNumber(parsed[j].path)
	})
}

func instanceNumber(md Metadata) int {
	n, err := strconv.Atoi(strings.TrimSpace(md.Get("InstanceNumber", "0")))
	if err != nil {
		return 0
	}
	return n
}

// decodeFrames converts the PixelData element into rescaled slices. The
// first frame is also returned unscaled.
func decodeFrames(ds dicom.Dataset, md Metadata, path string) ([]models.Slice, *Frame, error) {
	elem, err := ds.FindElementByTag(tag.PixelData)
	if err != nil || elem.Value == nil || elem.Value.ValueType() != dicom.PixelData {
		return nil, nil, fmt.Errorf("%w: %s has no pixel data", ErrDecode, path)
	}
	info := dicom.MustGetPixelDataInfo(elem.Value)
	if len(info.Frames) == 0 {
		return nil, nil, fmt.Errorf("%w: %s has no frames", ErrDecode, path)
	}

	slope, intercept := 1.0, 0.0
	if v, ok := md.Floats("RescaleSlope"); ok && len(v) > 0 {
		slope = v[0]
	}
	if v, ok := md.Floats("RescaleIntercept"); ok && len(v) > 0 {
		intercept = v[0]
	}
	enc := sampleEncoding{
		signed: strings.TrimSpace(md.Get("PixelRepresentation", "0")) == "1",
	}
	if v, err := strconv.Atoi(strings.TrimSpace(md.Get("BitsStored", ""))); err == nil {
		enc.bitsStored = v
	}

	var slices []models.Slice
	var first *Frame
	for i, fr := range info.Frames {
		var (
			raw  []float64
			w, h int
			img  image.Image
		)
		if fr.IsEncapsulated() {
			img, err = fr.GetImage()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s frame %d: %v", ErrDecode, path, i, err)
			}
			raw = imageSamples(img, enc.signed)
			w, h = img.Bounds().Dx(), img.Bounds().Dy()
		} else {
			native, err := fr.GetNativeFrame()
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s frame %d: %v", ErrDecode, path, i, err)
			}
			raw, err = nativeSamples(native, enc)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: %s frame %d: %v", ErrDecode, path, i, err)
			}
			w, h = native.Cols(), native.Rows()
		}
		if first == nil {
			first = &Frame{Width: w, Height: h, Samples: append([]float64(nil), raw...)}
		}
		for j := range raw {
			raw[j] = raw[j]*slope + intercept
		}
		slices = append(slices, models.Slice{
			Image:          img,
			Pixels:         raw,
			Width:          w,
			Height:         h,
			Filename:       filepath.Base(path),
			InstanceNumber: instanceNumber(md),
		})
	}
	return slices, first, nil
}

// sampleEncoding describes how stored sample bits map to values.
type sampleEncoding struct {
	signed     bool
	bitsStored int
}

// value interprets a stored sample. Bits above BitsStored are ignored and
// signed samples are sign-extended from bit BitsStored-1.
func (e sampleEncoding) value(stored, bitsAllocated int) float64 {
	bits := e.bitsStored
	if bits <= 0 || bits > bitsAllocated {
		bits = bitsAllocated
	}
	if bits <= 0 || bits >= 64 {
		return float64(stored)
	}
	v := int64(stored) & (int64(1)<<bits - 1)
	if e.signed && v&(int64(1)<<(bits-1)) != 0 {
		v -= int64(1) << bits
	}
	return float64(v)
}

// nativeSamples reads the stored samples of an uncompressed frame, one value
// per pixel. Multi-sample pixels are reduced to their luminance.
func nativeSamples(nf frame.INativeFrame, enc sampleEncoding) ([]float64, error) {
	rows, cols, spp := nf.Rows(), nf.Cols(), nf.SamplesPerPixel()
	bits := nf.BitsPerSample()
	out := make([]float64, 0, rows*cols)
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			px, err := nf.GetPixel(x, y)
			if err != nil {
				return nil, err
			}
			switch {
			case spp >= 3 && len(px) >= 3:
				r, g, b := enc.value(px[0], bits), enc.value(px[1], bits), enc.value(px[2], bits)
				out = append(out, 0.299*r+0.587*g+0.114*b)
			case len(px) > 0:
				out = append(out, enc.value(px[0], bits))
			default:
				return nil, fmt.Errorf("pixel (%d, %d) has no samples", x, y)
			}
		}
	}
	return out, nil
}

// imageSamples reads sample values back out of a decoded compressed frame.
func imageSamples(img image.Image, signed bool) []float64 {
	b := img.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			switch im := img.(type) {
			case *image.Gray16:
				v := im.Gray16At(x, y).Y
				if signed {
					out = append(out, float64(int16(v)))
				} else {
					out = append(out, float64(v))
				}
			case *image.Gray:
				out = append(out, float64(im.GrayAt(x, y).Y))
			default:
				out = append(out, float64(color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y))
			}
		}
	}
	return out
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	numStr := ""
	for _, c := range base {
		if c >= '0' && c <= '9' {
			numStr += string(c)
		}
	}

	if numStr != "" {
		num, err := strconv.Atoi(numStr)
		if err == nil {
			return num
		}
	}
	return 0
}
