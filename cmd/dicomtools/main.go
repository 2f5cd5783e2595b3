package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"mriorient/internal/logger"
	"mriorient/pkg/dicomio"
	"mriorient/pkg/organ"
)

const usage = `Usage: dicomtools <command> [flags]

Commands:
  strip    remove ImageOrientationPatient/ImagePositionPatient from a file or folder
  img2dcm  wrap a JPEG or PNG image as a Secondary Capture DICOM
  organ    print the organ detection report of a DICOM file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	log := logger.NewConsole(zerolog.InfoLevel)
	var err error
	switch os.Args[1] {
	case "strip":
		err = runStrip(os.Args[2:], logger.Component(log, "strip"))
	case "img2dcm":
		err = runImg2DCM(os.Args[2:], logger.Component(log, "img2dcm"))
	case "organ":
		err = runOrgan(os.Args[2:])
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func runStrip(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("strip", flag.ExitOnError)
	input := fs.String("input", "", "DICOM file or folder of .dcm files")
	output := fs.String("output", "", "Output file or folder (default: <input>_no_orientation)")
	fs.Parse(args)

	if *input == "" {
		fs.Usage()
		os.Exit(1)
	}
	out := *output
	if out == "" {
		out = defaultStripOutput(*input)
	}

	processed, failed, err := dicomio.StripPath(*input, out, log)
	if err != nil {
		return err
	}
	log.Info().Int("processed", processed).Int("failed", failed).Str("output", out).Msg("done")
	return nil
}

func defaultStripOutput(input string) string {
	clean := filepath.Clean(input)
	ext := filepath.Ext(clean)
	if strings.EqualFold(ext, ".dcm") {
		return strings.TrimSuffix(clean, ext) + "_no_orientation" + ext
	}
	return clean + "_no_orientation"
}

func runImg2DCM(args []string, log zerolog.Logger) error {
	fs := flag.NewFlagSet("img2dcm", flag.ExitOnError)
	input := fs.String("input", "", "JPEG or PNG image")
	output := fs.String("output", "", "Output .dcm file (default: input name with .dcm)")
	fs.Parse(args)

	if *input == "" {
		fs.Usage()
		os.Exit(1)
	}
	out := *output
	if out == "" {
		out = strings.TrimSuffix(*input, filepath.Ext(*input)) + ".dcm"
	}
	if err := dicomio.ConvertImage(*input, out); err != nil {
		return err
	}
	log.Info().Str("input", *input).Str("output", out).Msg("saved DICOM")
	return nil
}

func runOrgan(args []string) error {
	fs := flag.NewFlagSet("organ", flag.ExitOnError)
	input := fs.String("input", "", "DICOM file")
	fs.Parse(args)

	if *input == "" {
		fs.Usage()
		os.Exit(1)
	}
	res, err := organ.DetectFile(*input)
	fmt.Println(organ.FormatReport(res))
	return err
}
