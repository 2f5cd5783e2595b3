// Package nifti reads single-file NIfTI-1 volumes (.nii and .nii.gz).
package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"mriorient/internal/models"
)

// ErrInvalidHeader is returned for files whose header is not NIfTI-1.
var ErrInvalidHeader = errors.New("invalid nifti-1 header")

// ErrDimensionRange is returned when a volume dimension is outside 1..32767.
var ErrDimensionRange = errors.New("nifti-1 dimension out of range")

const (
	headerSize    = 348
	minDataOffset = 352
)

// NIfTI-1 datatype codes.
const (
	DTUint8   = 2
	DTInt16   = 4
	DTInt32   = 8
	DTFloat32 = 16
	DTFloat64 = 64
	DTInt8    = 256
	DTUint16  = 512
	DTUint32  = 768
	DTInt64   = 1024
	DTUint64  = 1280
)

// Header is the on-disk NIfTI-1 header.
type Header struct {
	SizeOfHdr      int32
	DataTypeUnused [10]byte
	DBName         [18]byte
	Extents        int32
	SessionError   int16
	Regular        byte
	DimInfo        byte

	Dim        [8]int16
	IntentP1   float32
	IntentP2   float32
	IntentP3   float32
	IntentCode int16
	DataType   int16
	BitPix     int16
	SliceStart int16
	PixDim     [8]float32
	VoxOffset  float32
	SclSlope   float32
	SclInter   float32
	SliceEnd   int16
	SliceCode  byte
	XYZTUnits  byte
	CalMax     float32
	CalMin     float32
	SliceDur   float32
	TOffset    float32
	GLMax      int32
	GLMin      int32

	Descrip [80]byte
	AuxFile [24]byte

	QFormCode int16
	SFormCode int16
	QuaternB  float32
	QuaternC  float32
	QuaternD  float32
	QOffsetX  float32
	QOffsetY  float32
	QOffsetZ  float32
	SRowX     [4]float32
	SRowY     [4]float32
	SRowZ     [4]float32

	IntentName [16]byte
	Magic      [4]byte
}

// Image is a decoded NIfTI volume. Data is stored with x varying fastest,
// then y, then z, which is the file's own order.
type Image struct {
	Header     Header
	ByteOrder  binary.ByteOrder
	Nx, Ny, Nz int
	Data       []float64
}

// Volume returns the image as a volume with Width=Nx, Height=Ny, Depth=Nz,
// so that Volume.At(z, y, x) is the voxel (x, y, z).
func (img *Image) Volume() (*models.Volume, error) {
	vol, err := models.NewVolume(img.Data, img.Nz, img.Ny, img.Nx)
	if err != nil {
		return nil, err
	}
	vol.VoxelSize.X = float64(img.Header.PixDim[1])
	vol.VoxelSize.Y = float64(img.Header.PixDim[2])
	vol.VoxelSize.Z = float64(img.Header.PixDim[3])
	return vol, nil
}

// IsNIfTI reports whether path has a NIfTI file extension.
func IsNIfTI(path string) bool {
	p := strings.ToLower(path)
	return strings.HasSuffix(p, ".nii") || strings.HasSuffix(p, ".nii.gz")
}

// BaseName strips the directory and the .nii / .nii.gz extension.
func BaseName(path string) string {
	base := filepath.Base(path)
	lower := strings.ToLower(base)
	switch {
	case strings.HasSuffix(lower, ".nii.gz"):
		return base[:len(base)-len(".nii.gz")]
	case strings.HasSuffix(lower, ".nii"):
		return base[:len(base)-len(".nii")]
	}
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// ReadFile loads a .nii or .nii.gz file. Gzip content is detected from the
// stream, not the extension.
func ReadFile(path string) (*Image, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) >= 2 && raw[0] == 0x1f && raw[1] == 0x8b {
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
		}
		defer zr.Close()
		if raw, err = io.ReadAll(zr); err != nil {
			return nil, fmt.Errorf("decompress %s: %w", path, err)
		}
	}
	img, err := Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ReadHeader decodes the header and infers the byte order from sizeof_hdr.
func ReadHeader(b []byte) (Header, binary.ByteOrder, error) {
	if len(b) < headerSize {
		return Header{}, nil, fmt.Errorf("%w: %d bytes", ErrInvalidHeader, len(b))
	}
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		var h Header
		if err := binary.Read(bytes.NewReader(b[:headerSize]), order, &h); err != nil {
			return Header{}, nil, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
		}
		if h.SizeOfHdr == headerSize {
			return h, order, validate(h)
		}
	}
	return Header{}, nil, fmt.Errorf("%w: sizeof_hdr is not %d", ErrInvalidHeader, headerSize)
}

func validate(h Header) error {
	if h.Magic != [4]byte{'n', '+', '1', 0} && h.Magic != [4]byte{'n', 'i', '1', 0} {
		return fmt.Errorf("%w: bad magic %q", ErrInvalidHeader, h.Magic[:3])
	}
	if h.Dim[0] < 1 || h.Dim[0] > 7 {
		return fmt.Errorf("%w: dim[0]=%d", ErrInvalidHeader, h.Dim[0])
	}
	if _, ok := bytesPerVoxel(h.DataType); !ok {
		return fmt.Errorf("%w: unsupported datatype %d", ErrInvalidHeader, h.DataType)
	}
	return nil
}

func bytesPerVoxel(dt int16) (int, bool) {
	switch dt {
	case DTUint8, DTInt8:
		return 1, true
	case DTInt16, DTUint16:
		return 2, true
	case DTInt32, DTUint32, DTFloat32:
		return 4, true
	case DTFloat64, DTInt64, DTUint64:
		return 8, true
	}
	return 0, false
}

// Decode parses an uncompressed single-file NIfTI-1 image. Only the first
// 3D volume of higher-dimensional data is kept. Values are scaled by
// scl_slope/scl_inter when the slope is non-zero.
func Decode(b []byte) (*Image, error) {
	h, order, err := ReadHeader(b)
	if err != nil {
		return nil, err
	}

	dims := [3]int{1, 1, 1}
	for i := 0; i < 3 && i < int(h.Dim[0]); i++ {
		if h.Dim[i+1] < 1 {
			return nil, fmt.Errorf("%w: dim[%d]=%d", ErrInvalidHeader, i+1, h.Dim[i+1])
		}
		dims[i] = int(h.Dim[i+1])
	}

	offset := int(h.VoxOffset)
	if offset < minDataOffset {
		offset = minDataOffset
	}
	nbyper, _ := bytesPerVoxel(h.DataType)
	n := dims[0] * dims[1] * dims[2]
	if offset+n*nbyper > len(b) {
		return nil, fmt.Errorf("%w: need %d data bytes at offset %d, have %d",
			ErrInvalidHeader, n*nbyper, offset, len(b)-offset)
	}

	data := make([]float64, n)
	raw := b[offset:]
	for i := range data {
		data[i] = voxel(raw[i*nbyper:], h.DataType, order)
	}

	slope, inter := float64(h.SclSlope), float64(h.SclInter)
	if slope != 0 && !math.IsNaN(slope) && !(slope == 1 && inter == 0) {
		for i := range data {
			data[i] = data[i]*slope + inter
		}
	}

	return &Image{Header: h, ByteOrder: order, Nx: dims[0], Ny: dims[1], Nz: dims[2], Data: data}, nil
}

func voxel(b []byte, dt int16, order binary.ByteOrder) float64 {
	switch dt {
	case DTUint8:
		return float64(b[0])
	case DTInt8:
		return float64(int8(b[0]))
	case DTInt16:
		return float64(int16(order.Uint16(b)))
	case DTUint16:
		return float64(order.Uint16(b))
	case DTInt32:
		return float64(int32(order.Uint32(b)))
	case DTUint32:
		return float64(order.Uint32(b))
	case DTFloat32:
		return float64(math.Float32frombits(order.Uint32(b)))
	case DTFloat64:
		return math.Float64frombits(order.Uint64(b))
	case DTInt64:
		return float64(int64(order.Uint64(b)))
	case DTUint64:
		return float64(order.Uint64(b))
	}
	return 0
}

// Encode writes a little-endian single-file NIfTI-1 image of float32 voxels.
func Encode(w io.Writer, nx, ny, nz int, data []float64, pixdim [3]float32) error {
	if err := checkDims(nx, ny, nz); err != nil {
		return err
	}
	if len(data) != nx*ny*nz {
		return fmt.Errorf("data length %d does not match %dx%dx%d", len(data), nx, ny, nz)
	}
	h := Header{
		SizeOfHdr: headerSize,
		Dim:       [8]int16{3, int16(nx), int16(ny), int16(nz), 1, 1, 1, 1},
		DataType:  DTFloat32,
		BitPix:    32,
		PixDim:    [8]float32{1, pixdim[0], pixdim[1], pixdim[2], 1, 1, 1, 1},
		VoxOffset: minDataOffset,
		SclSlope:  1,
		Magic:     [4]byte{'n', '+', '1', 0},
	}
	if err := binary.Write(w, binary.LittleEndian, &h); err != nil {
		return err
	}
	if _, err := w.Write(make([]byte, minDataOffset-headerSize)); err != nil {
		return err
	}
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(float32(v)))
	}
	_, err := w.Write(buf)
	return err
}

// checkDims rejects sizes that do not fit the header's int16 dim fields.
func checkDims(dims ...int) error {
	for _, d := range dims {
		if d < 1 || d > math.MaxInt16 {
			return fmt.Errorf("%w: %dx%dx%d", ErrDimensionRange, dims[0], dims[1], dims[2])
		}
	}
	return nil
}

// WriteFile saves vol as a float32 NIfTI-1 file, gzip-compressed when path
// ends in .gz.
func WriteFile(path string, vol *models.Volume) error {
	if err := checkDims(vol.Width, vol.Height, vol.Depth); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	var w io.Writer = f
	var zw *gzip.Writer
	if strings.HasSuffix(strings.ToLower(path), ".gz") {
		zw = gzip.NewWriter(f)
		w = zw
	}

	pixdim := [3]float32{float32(vol.VoxelSize.X), float32(vol.VoxelSize.Y), float32(vol.VoxelSize.Z)}
	for i := range pixdim {
		if pixdim[i] == 0 {
			pixdim[i] = 1
		}
	}
	if err := Encode(w, vol.Width, vol.Height, vol.Depth, vol.Data, pixdim); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}
