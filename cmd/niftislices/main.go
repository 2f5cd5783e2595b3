package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"mriorient/internal/logger"
	"mriorient/internal/models"
	"mriorient/pkg/config"
	"mriorient/pkg/dicomio"
	"mriorient/pkg/nifti"
	"mriorient/pkg/orientation"
	"mriorient/pkg/visualization"
)

func main() {
	input := flag.String("input", "", "NIfTI file (.nii/.nii.gz), DICOM folder or .dcm file")
	configPath := flag.String("config", "mriorient.yaml", "YAML configuration file")
	outputDir := flag.String("output", "", "Output folder (default: output.slicesDir from config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.Component(logger.FromSettings(cfg.Output.LogFormat, cfg.Output.Verbose || *verbose), "slices")

	out := cfg.Output.SlicesDir
	if *outputDir != "" {
		out = *outputDir
	}

	vol, base, err := loadVolume(*input)
	if err != nil {
		log.Fatal().Err(err).Str("input", *input).Msg("failed to load volume")
	}
	log.Info().
		Str("input", *input).
		Ints("shape_xyz", []int{vol.Width, vol.Height, vol.Depth}).
		Msg("loaded volume")

	counts, err := visualization.NewViewer(vol).ExportPlanes(out, base)
	if err != nil {
		log.Fatal().Err(err).Msg("slice export failed")
	}
	for _, plane := range orientation.Labels {
		log.Info().Str("plane", string(plane)).Int("slices", counts[plane]).
			Str("dir", filepath.Join(out, string(plane))).Msg("saved slices")
	}
	fmt.Printf("Done! Saved slices to %s/[axial|coronal|sagittal]\n", out)
}

func loadVolume(path string) (*models.Volume, string, error) {
	if nifti.IsNIfTI(path) {
		img, err := nifti.ReadFile(path)
		if err != nil {
			return nil, "", err
		}
		vol, err := img.Volume()
		return vol, nifti.BaseName(path), err
	}
	series, err := dicomio.Load(path)
	if err != nil {
		return nil, "", err
	}
	base := filepath.Base(filepath.Clean(path))
	return series.Volume, strings.TrimSuffix(base, filepath.Ext(base)), nil
}
