package store

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"math"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/rcliao/voice-memories/internal/model"
)

// Create stores a new memory from raw image bytes. The image is re-encoded
// as JPEG and a thumbnail of the configured width is written next to it.
// Either both files land or neither does.
func (s *Store) Create(ctx context.Context, imageData []byte) (*model.Memory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidImage, err)
	}

	full, err := encodeJPEG(src, s.opts.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: encode image: %v", model.ErrStorageWrite, err)
	}
	thumb, err := encodeJPEG(Thumbnail(src, s.opts.ThumbnailWidth), s.opts.JPEGQuality)
	if err != nil {
		return nil, fmt.Errorf("%w: encode thumbnail: %v", model.ErrStorageWrite, err)
	}

	id, err := s.newID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrStorageWrite, err)
	}
	imagePath := s.Path(id, model.ArtifactImage)
	thumbPath := s.Path(id, model.ArtifactThumbnail)

	imageTmp, err := writeTemp(imagePath, full)
	if err != nil {
		return nil, fmt.Errorf("%w: image %s: %v", model.ErrStorageWrite, id, err)
	}
	thumbTmp, err := writeTemp(thumbPath, thumb)
	if err != nil {
		os.Remove(imageTmp)
		return nil, fmt.Errorf("%w: thumbnail %s: %v", model.ErrStorageWrite, id, err)
	}

	// The thumbnail marks a memory as present, so it goes in last.
	if err := os.Rename(imageTmp, imagePath); err != nil {
		os.Remove(imageTmp)
		os.Remove(thumbTmp)
		return nil, fmt.Errorf("%w: image %s: %v", model.ErrStorageWrite, id, err)
	}
	if err := os.Rename(thumbTmp, thumbPath); err != nil {
		os.Remove(thumbTmp)
		os.Remove(imagePath)
		return nil, fmt.Errorf("%w: thumbnail %s: %v", model.ErrStorageWrite, id, err)
	}

	return s.Get(id)
}

// Thumbnail scales src to the given width, keeping its aspect ratio.
func Thumbnail(src image.Image, width int) image.Image {
	b := src.Bounds()
	height := 1
	if b.Dx() > 0 {
		height = int(math.Round(float64(b.Dy()) * float64(width) / float64(b.Dx())))
	}
	if height < 1 {
		height = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// writeTemp writes data to a hidden temp file next to path and returns the
// temp file's name. The caller renames it into place.
func writeTemp(path string, data []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(name)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

// writeAtomic replaces path with data via a temp file and rename.
func writeAtomic(path string, data []byte) error {
	tmp, err := writeTemp(path, data)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
