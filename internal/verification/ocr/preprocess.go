package ocr

import (
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// Preprocessing variant names, recorded on the winning result
const (
	VariantEnhanced     = "enhanced"
	VariantHighContrast = "high_contrast"
)

// variantFile is one preprocessed temp image awaiting recognition
type variantFile struct {
	Name string
	Path string
}

// preprocess writes enhanced copies of the source image to temporary files.
// The returned cleanup func removes them and must be called on every exit
// path; deletion errors are reported but never mask the primary result.
func preprocess(srcPath, tempDir string, onCleanupErr func(error)) ([]variantFile, func(), error) {
	src, err := imaging.Open(srcPath, imaging.AutoOrientation(true))
	if err != nil {
		return nil, nil, fmt.Errorf("open document image: %w", err)
	}

	variants := []struct {
		name  string
		apply func(image.Image) image.Image
	}{
		// Normalized + sharpened + brightness boost against low light
		{VariantEnhanced, func(img image.Image) image.Image {
			out := imaging.Grayscale(img)
			out = imaging.AdjustBrightness(out, 10)
			return imaging.Sharpen(out, 1.5)
		}},
		// High contrast pass against glare and faded print
		{VariantHighContrast, func(img image.Image) image.Image {
			out := imaging.Grayscale(img)
			return imaging.AdjustContrast(out, 60)
		}},
	}

	files := make([]variantFile, 0, len(variants))
	cleanup := func() {
		for _, vf := range files {
			if err := os.Remove(vf.Path); err != nil && !os.IsNotExist(err) {
				onCleanupErr(fmt.Errorf("remove temp image %s: %w", vf.Path, err))
			}
		}
	}

	for _, v := range variants {
		tmp, err := os.CreateTemp(tempDir, "ocr-"+v.name+"-*.png")
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("create temp image: %w", err)
		}
		path := tmp.Name()
		tmp.Close()

		if err := imaging.Save(v.apply(src), path); err != nil {
			os.Remove(path)
			cleanup()
			return nil, nil, fmt.Errorf("save %s variant: %w", v.name, err)
		}

		files = append(files, variantFile{Name: v.name, Path: path})
	}

	return files, cleanup, nil
}
