package main

import (
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"mriorient/internal/logger"
	"mriorient/pkg/classifier"
	"mriorient/pkg/config"
	"mriorient/pkg/detect"
	"mriorient/pkg/organ"
	"mriorient/pkg/orientation"
)

func main() {
	// Parse command line arguments
	input := flag.String("input", "", "DICOM folder, .dcm file or .nii/.nii.gz file (more inputs may follow as arguments)")
	configPath := flag.String("config", "mriorient.yaml", "YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	visualize := flag.Bool("visualize", false, "Save the annotated middle slice as a PNG")
	detectOrgan := flag.Bool("organ", false, "Detect the examined organ from DICOM metadata")
	classify := flag.Bool("classify", false, "Run the learned classifier on the first frame")
	modelPath := flag.String("model", "", "Classifier model file (overrides config)")
	labelsPath := flag.String("labels", "", "Classifier class-name file (overrides config)")
	saveVolume := flag.String("save-volume", "", "Save the stacked volume to this .nii or .nii.gz file")
	workers := flag.Int("workers", runtime.NumCPU(), "Number of inputs processed in parallel")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	inputs := flag.Args()
	if *input != "" {
		inputs = append([]string{*input}, inputs...)
	}
	if len(inputs) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.FromSettings(cfg.Output.LogFormat, cfg.Output.Verbose || *verbose)

	if *saveVolume != "" && len(inputs) > 1 {
		log.Fatal().Msg("-save-volume accepts a single input only")
	}

	// The classifier is loaded once, before any input is touched
	var clf *classifier.Classifier
	if *classify || cfg.Classifier.Enabled {
		mp, lp := cfg.Classifier.ModelPath, cfg.Classifier.LabelsPath
		if *modelPath != "" {
			mp = *modelPath
		}
		if *labelsPath != "" {
			lp = *labelsPath
		}
		clf, err = classifier.Load(mp, lp)
		if err != nil {
			log.Fatal().Err(err).Str("model", mp).Str("labels", lp).Msg("cannot start without the classifier")
		}
		log.Info().Strs("classes", clf.Labels()).Msg("classifier loaded")
	}

	params := &detect.Params{
		Visualize:            *visualize,
		PreviewDir:           cfg.Output.MiddleSliceDir,
		VolumePath:           *saveVolume,
		DetectOrgan:          *detectOrgan,
		LowConfidencePercent: cfg.Detection.LowConfidencePercent,
	}
	detector := detect.NewDetector(params, logger.Component(log, "detect"), clf)

	startTime := time.Now()
	outcomes := detector.DetectAll(inputs, *workers)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
			log.Error().Err(o.Err).Str("input", o.Input).Msg("detection failed")
			continue
		}
		printResult(o.Result)
	}
	log.Debug().Dur("elapsed", time.Since(startTime)).Int("inputs", len(inputs)).Msg("done")

	if failed > 0 {
		os.Exit(1)
	}
}

func printResult(res *detect.Result) {
	fmt.Printf("\n%s\n", res.Input)
	fmt.Println("=== Orientation detection result ===")
	method := string(res.Orientation.Method)
	if res.Orientation.Method == orientation.MethodVolumeHeuristic {
		method += " (fallback)"
	}
	fmt.Printf("Method used: %s\n", method)
	fmt.Printf("Detected orientation: %s\n", res.Orientation.Label)
	fmt.Printf("Confidence (0-1): %.3f\n", res.Orientation.Confidence)
	fmt.Printf("Volume shape: %v\n", res.Shape)

	if res.Prediction != nil {
		p := res.Prediction
		fmt.Println("\n=== Classifier prediction ===")
		fmt.Printf("Prediction: %s\n", p.DisplayName())
		fmt.Printf("Confidence: %.2f%%\n", p.Percent())
		if res.LowConfidence {
			fmt.Println("Warning: low confidence, verify the orientation manually")
		}
	}

	if res.Organ != nil {
		fmt.Println()
		fmt.Println(organ.FormatReport(*res.Organ))
	}

	var saved []string
	if res.PreviewPath != "" {
		saved = append(saved, res.PreviewPath)
	}
	if res.VolumePath != "" {
		saved = append(saved, res.VolumePath)
	}
	if len(saved) > 0 {
		fmt.Printf("Saved: %s\n", strings.Join(saved, ", "))
	}
}
