package nifti

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mriorient/internal/models"
)

func rampVolume(nx, ny, nz int) []float64 {
	data := make([]float64, nx*ny*nz)
	for i := range data {
		data[i] = float64(i)
	}
	return data
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, 4, 3, 2, rampVolume(4, 3, 2), [3]float32{1, 1.5, 2}))

	img, err := Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, binary.LittleEndian, img.ByteOrder)
	assert.Equal(t, 4, img.Nx)
	assert.Equal(t, 3, img.Ny)
	assert.Equal(t, 2, img.Nz)
	assert.Equal(t, rampVolume(4, 3, 2), img.Data)

	vol, err := img.Volume()
	require.NoError(t, err)
	d, h, w := vol.Shape()
	assert.Equal(t, [3]int{2, 3, 4}, [3]int{d, h, w})
	// voxel (x=1, y=2, z=1)
	assert.Equal(t, float64(1+2*4+1*12), vol.At(1, 2, 1))
	assert.Equal(t, 1.5, vol.VoxelSize.Y)
	assert.Equal(t, 2.0, vol.VoxelSize.Z)
}

func TestReadFileGzip(t *testing.T) {
	var raw bytes.Buffer
	require.NoError(t, Encode(&raw, 2, 2, 2, rampVolume(2, 2, 2), [3]float32{1, 1, 1}))

	path := filepath.Join(t.TempDir(), "sub-01_T1w.nii.gz")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := gzip.NewWriter(f)
	_, err = zw.Write(raw.Bytes())
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	img, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, rampVolume(2, 2, 2), img.Data)
}

func TestDecodeAppliesScaling(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, 2, 1, 1, []float64{1, 2}, [3]float32{1, 1, 1}))
	b := buf.Bytes()
	// scl_slope at offset 112, scl_inter at 116
	binary.LittleEndian.PutUint32(b[112:], 0x40000000) // 2.0
	binary.LittleEndian.PutUint32(b[116:], 0x3f800000) // 1.0

	img, err := Decode(b)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 5}, img.Data)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode(make([]byte, 400))
	assert.True(t, errors.Is(err, ErrInvalidHeader))

	_, err = Decode([]byte("short"))
	assert.True(t, errors.Is(err, ErrInvalidHeader))
}

func TestDecodeTruncatedData(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, 4, 4, 4, rampVolume(4, 4, 4), [3]float32{1, 1, 1}))
	_, err := Decode(buf.Bytes()[:400])
	assert.True(t, errors.Is(err, ErrInvalidHeader))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "sub-0003_T1w", BaseName("/data/sub-0003_T1w.nii.gz"))
	assert.Equal(t, "brain", BaseName("brain.NII"))
	assert.True(t, IsNIfTI("x.nii.gz"))
	assert.False(t, IsNIfTI("x.dcm"))
}

func TestWriteFileRoundTrip(t *testing.T) {
	vol, err := (&Image{Nx: 3, Ny: 2, Nz: 2, Data: rampVolume(3, 2, 2)}).Volume()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "detected_volume.nii.gz")
	require.NoError(t, WriteFile(path, vol))

	img, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, vol.Data, img.Data)
	assert.Equal(t, float32(1), img.Header.PixDim[1])
}

func TestEncodeRejectsOversizedDimensions(t *testing.T) {
	var buf bytes.Buffer
	err := Encode(&buf, 40000, 1, 1, nil, [3]float32{1, 1, 1})
	assert.True(t, errors.Is(err, ErrDimensionRange))
	assert.Zero(t, buf.Len())

	err = Encode(&buf, 2, 0, 1, nil, [3]float32{1, 1, 1})
	assert.True(t, errors.Is(err, ErrDimensionRange))

	path := filepath.Join(t.TempDir(), "wide.nii")
	err = WriteFile(path, &models.Volume{Width: 1, Height: 1, Depth: 32768})
	assert.True(t, errors.Is(err, ErrDimensionRange))
	assert.NoFileExists(t, path)
}
