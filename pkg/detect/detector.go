// Package detect runs the end-to-end orientation pipeline over a DICOM
// folder, a single DICOM file or a NIfTI volume: load, classify by geometry
// and by volume statistics, arbitrate, and optionally write a preview, the
// stacked volume, the learned-classifier prediction and the organ lookup.
package detect

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"mriorient/internal/models"
	"mriorient/pkg/classifier"
	"mriorient/pkg/dicomio"
	"mriorient/pkg/nifti"
	"mriorient/pkg/orientation"
	"mriorient/pkg/organ"
	"mriorient/pkg/visualization"
)

// ErrUnsupportedInput is returned for paths that are neither a folder, a
// .dcm file nor a NIfTI file.
var ErrUnsupportedInput = errors.New("input must be a folder of DICOMs, a .dcm file or a .nii/.nii.gz file")

// Params holds the pipeline options.
type Params struct {
	// Visualize writes the annotated middle slice as a PNG into PreviewDir
	Visualize bool

	// PreviewDir is where the middle-slice preview goes
	PreviewDir string

	// VolumePath, when set, receives the stacked volume as NIfTI
	VolumePath string

	// DetectOrgan runs the body-part lookup on DICOM inputs
	DetectOrgan bool

	// LowConfidencePercent flags classifier predictions below this value
	LowConfidencePercent float64
}

// Result is everything the pipeline learned about one input.
type Result struct {
	Input string

	// Orientation is the arbitrated answer
	Orientation orientation.Resolution

	// Geometry is nil when the input carried no usable direction cosines
	Geometry *orientation.Detection

	// Volume is the volume-statistics vote, always computed
	Volume orientation.Detection

	// Shape is (slices, rows, columns)
	Shape [3]int

	// Prediction is set when a classifier is attached and the input is DICOM
	Prediction *classifier.Prediction

	// LowConfidence is set when Prediction falls below the configured threshold
	LowConfidence bool

	// Organ is set when organ detection was requested on a DICOM input
	Organ *organ.Result

	PreviewPath string
	VolumePath  string
}

// Detector runs the pipeline. It holds no per-input state and may be used
// from several goroutines.
type Detector struct {
	params     *Params
	log        zerolog.Logger
	classifier *classifier.Classifier
}

// NewDetector creates a detector. clf may be nil to skip the learned
// classifier.
func NewDetector(params *Params, log zerolog.Logger, clf *classifier.Classifier) *Detector {
	if params == nil {
		params = &Params{}
	}
	return &Detector{params: params, log: log, classifier: clf}
}

// input is a loaded path, whatever its format.
type input struct {
	volume   *models.Volume
	metadata dicomio.Metadata
	pixels   *dicomio.Frame
	files    []string
	skipped  []string
}

// DetectPath runs the pipeline on one path.
func (d *Detector) DetectPath(path string) (*Result, error) {
	log := d.log.With().Str("input", path).Logger()

	in, err := load(path)
	if err != nil {
		return nil, err
	}
	depth, height, width := in.volume.Shape()
	log.Debug().Ints("shape", []int{depth, height, width}).Int("files", len(in.files)).Msg("loaded volume")
	if len(in.skipped) > 0 {
		log.Warn().Int("skipped", len(in.skipped)).Msg("folder holds several series, using the first")
	}

	res := &Result{Input: path, Shape: [3]int{depth, height, width}}

	if in.metadata != nil {
		if iop, ok := in.metadata.OrientationPatient(); ok {
			if det, ok := orientation.FromOrientationPatient(iop); ok {
				res.Geometry = &det
			}
		} else {
			log.Debug().Msg("no ImageOrientationPatient, falling back to volume heuristic")
		}
	}

	res.Volume, err = orientation.FromVolume(in.volume)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	res.Orientation = orientation.Resolve(res.Geometry, res.Volume)

	event := log.Info().
		Str("orientation", res.Orientation.Label.String()).
		Float64("confidence", res.Orientation.Confidence).
		Str("method", string(res.Orientation.Method))
	if res.Geometry != nil {
		event = event.Bool("volume_agrees", orientation.Agrees(*res.Geometry, res.Volume))
	}
	event.Msg("orientation detected")

	if d.classifier != nil && in.pixels != nil {
		pred, err := d.classifier.Predict(classifier.Pixels{
			Width:   in.pixels.Width,
			Height:  in.pixels.Height,
			Samples: in.pixels.Samples,
			Uint8:   in.metadata.Get("BitsAllocated", "") == "8",
		})
		if err != nil {
			return nil, fmt.Errorf("classify %s: %w", path, err)
		}
		res.Prediction = &pred
		res.LowConfidence = pred.LowConfidence(d.params.LowConfidencePercent)
		log.Info().
			Str("label", pred.Label).
			Str("confidence", fmt.Sprintf("%.2f%%", pred.Percent())).
			Bool("low_confidence", res.LowConfidence).
			Msg("classifier prediction")
	}

	if d.params.DetectOrgan && in.metadata != nil {
		r := organ.Detect(in.metadata)
		res.Organ = &r
		log.Info().Str("organ", r.Organ).Float64("confidence", r.Confidence).Msg("organ detected")
	}

	if d.params.Visualize {
		res.PreviewPath, err = d.writePreview(in.volume, path, res.Orientation)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", res.PreviewPath).Msg("saved middle slice")
	}

	if d.params.VolumePath != "" {
		if err := nifti.WriteFile(d.params.VolumePath, in.volume); err != nil {
			return nil, fmt.Errorf("save volume: %w", err)
		}
		res.VolumePath = d.params.VolumePath
		log.Info().Str("file", res.VolumePath).Ints("shape", []int{depth, height, width}).Msg("saved volume")
	}

	return res, nil
}

func load(path string) (*input, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() && nifti.IsNIfTI(path) {
		img, err := nifti.ReadFile(path)
		if err != nil {
			return nil, err
		}
		vol, err := img.Volume()
		if err != nil {
			return nil, err
		}
		return &input{volume: vol, files: []string{path}}, nil
	}
	if !info.IsDir() && !strings.EqualFold(filepath.Ext(path), ".dcm") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedInput, path)
	}

	series, err := dicomio.Load(path)
	if err != nil {
		return nil, err
	}
	return &input{
		volume:   series.Volume,
		metadata: series.Metadata,
		pixels:   series.Pixels,
		files:    series.Files,
		skipped:  series.Skipped,
	}, nil
}

// PreviewName is the file name of the middle-slice preview for input.
func PreviewName(input string, res orientation.Resolution) string {
	base := filepath.Base(filepath.Clean(input))
	if nifti.IsNIfTI(base) {
		base = nifti.BaseName(base)
	} else {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return fmt.Sprintf("%s_middle_%s_%.2f.png", base, res.Label, res.Confidence)
}

func (d *Detector) writePreview(vol *models.Volume, path string, res orientation.Resolution) (string, error) {
	viewer := visualization.NewViewer(vol)
	img, err := viewer.MiddleSlice()
	if err != nil {
		return "", fmt.Errorf("middle slice: %w", err)
	}
	img = visualization.Annotate(img, fmt.Sprintf("Detected: %s (conf %.2f)", res.Label, res.Confidence))

	dir := d.params.PreviewDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create preview directory: %w", err)
	}
	out := filepath.Join(dir, PreviewName(path, res))
	if err := viewer.SaveSlice(img, out); err != nil {
		return "", fmt.Errorf("save preview: %w", err)
	}
	return out, nil
}
