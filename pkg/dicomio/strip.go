package dicomio

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// orientationTags are removed by StripOrientation so that downstream
// detection has to fall back to the volume heuristic.
var orientationTags = []struct {
	keyword string
	tag     tag.Tag
}{
	{"ImageOrientationPatient", tag.ImageOrientationPatient},
	{"ImagePositionPatient", tag.ImagePositionPatient},
}

// StripOrientation removes the orientation and position attributes from ds
// in place and returns the keywords that were present.
func StripOrientation(ds *dicom.Dataset) []string {
	var removed []string
	kept := ds.Elements[:0]
	for _, elem := range ds.Elements {
		drop := false
		for _, ot := range orientationTags {
			if elem.Tag == ot.tag {
				removed = append(removed, ot.keyword)
				drop = true
				break
			}
		}
		if !drop {
			kept = append(kept, elem)
		}
	}
	ds.Elements = kept
	return removed
}

// StripFile rewrites in to out without orientation attributes.
func StripFile(in, out string) ([]string, error) {
	ds, err := dicom.ParseFile(in, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, in, err)
	}
	removed := StripOrientation(&ds)
	if err := WriteFile(out, ds); err != nil {
		return nil, err
	}
	return removed, nil
}

// StripPath strips a single file or every .dcm file of a folder. For a
// folder, out is created and receives files of the same names. Per-file
// failures are logged and counted, not fatal.
func StripPath(in, out string, log zerolog.Logger) (processed, failed int, err error) {
	info, err := os.Stat(in)
	if err != nil {
		return 0, 0, err
	}
	if !info.IsDir() {
		removed, err := StripFile(in, out)
		if err != nil {
			return 0, 1, err
		}
		logStripped(log, in, removed)
		return 1, 0, nil
	}

	files, err := ListDICOMFiles(in)
	if err != nil {
		return 0, 0, err
	}
	if err := os.MkdirAll(out, 0755); err != nil {
		return 0, 0, fmt.Errorf("create output folder: %w", err)
	}
	log.Info().Int("files", len(files)).Str("input", in).Msg("stripping orientation metadata")
	for _, f := range files {
		removed, err := StripFile(f, filepath.Join(out, filepath.Base(f)))
		if err != nil {
			log.Error().Err(err).Str("file", f).Msg("strip failed")
			failed++
			continue
		}
		logStripped(log, f, removed)
		processed++
	}
	return processed, failed, nil
}

func logStripped(log zerolog.Logger, file string, removed []string) {
	if len(removed) == 0 {
		log.Info().Str("file", filepath.Base(file)).Msg("no orientation metadata found (already stripped)")
		return
	}
	log.Info().Str("file", filepath.Base(file)).Strs("removed", removed).Msg("removed orientation metadata")
}

// WriteFile encodes ds to path.
func WriteFile(path string, ds dicom.Dataset) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := dicom.Write(f, ds, dicom.SkipVRVerification()); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
