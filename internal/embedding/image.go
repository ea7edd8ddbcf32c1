package embedding

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// maxUploadDim caps the longer edge of images sent to the embedding
// service; anything larger is downscaled first.
const maxUploadDim = 1024

// DecodeDataURL converts a base64 data URL (as sent by browser camera
// capture) into raw image bytes. Plain base64 without a header is also
// accepted.
func DecodeDataURL(dataURL string) ([]byte, error) {
	encoded := dataURL
	if i := strings.Index(dataURL, ","); i >= 0 && strings.HasPrefix(dataURL, "data:") {
		encoded = dataURL[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image data: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("empty image data")
	}
	return data, nil
}

// PrepareImage decodes the image (jpeg/png/gif/bmp), downscales it so the
// longer edge is at most maxUploadDim, and re-encodes as JPEG. Images
// already small enough are re-encoded without scaling, which also
// validates that the bytes are a decodable image.
func PrepareImage(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w > maxUploadDim || h > maxUploadDim {
		scale := float64(maxUploadDim) / float64(max(w, h))
		dst := image.NewRGBA(image.Rect(0, 0, int(float64(w)*scale), int(float64(h)*scale)))
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
		img = dst
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
