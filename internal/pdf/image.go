package pdf

import (
	"bytes"
	"compress/zlib"
	"errors"
	"fmt"
	"image/color"
	"image/jpeg"
	"image/png"
)

// embeddedImage is a decoded raster payload prepared for embedding: the image
// XObject stream, an optional soft mask carrying PNG transparency, and the
// intrinsic pixel size used for aspect-ratio math.
type embeddedImage struct {
	xobject *Stream
	smask   *Stream
	width   int
	height  int
}

var errUnknownImageFormat = errors.New("image payload is neither PNG nor JPEG")

// embedImage turns raw PNG or JPEG bytes into an image XObject. JPEG data
// passes through untouched under DCTDecode; PNG pixels are re-packed as flate
// compressed RGB samples with the alpha channel split into a soft mask.
func embedImage(payload []byte) (*embeddedImage, error) {
	switch {
	case bytes.HasPrefix(payload, []byte("\x89PNG\r\n\x1a\n")):
		return embedPNG(payload)
	case bytes.HasPrefix(payload, []byte{0xFF, 0xD8, 0xFF}):
		return embedJPEG(payload)
	}
	return nil, errUnknownImageFormat
}

func embedJPEG(payload []byte) (*embeddedImage, error) {
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}

	colorSpace := Name("DeviceRGB")
	switch cfg.ColorModel {
	case color.GrayModel:
		colorSpace = "DeviceGray"
	case color.CMYKModel:
		colorSpace = "DeviceCMYK"
	}

	return &embeddedImage{
		xobject: &Stream{
			Dict: Dict{
				"Type":             Name("XObject"),
				"Subtype":          Name("Image"),
				"Width":            Integer(cfg.Width),
				"Height":           Integer(cfg.Height),
				"ColorSpace":       colorSpace,
				"BitsPerComponent": Integer(8),
				"Filter":           Name("DCTDecode"),
			},
			Raw: payload,
		},
		width:  cfg.Width,
		height: cfg.Height,
	}, nil
}

func embedPNG(payload []byte) (*embeddedImage, error) {
	img, err := png.Decode(bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	rgb := make([]byte, 0, w*h*3)
	alpha := make([]byte, 0, w*h)
	opaque := true
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if a == 0 {
				rgb = append(rgb, 0, 0, 0)
			} else {
				// Undo alpha premultiplication so the soft mask composes the
				// way the source image intended.
				rgb = append(rgb,
					byte((r*0xFFFF/a)>>8),
					byte((g*0xFFFF/a)>>8),
					byte((b*0xFFFF/a)>>8))
			}
			alpha = append(alpha, byte(a>>8))
			if a != 0xFFFF {
				opaque = false
			}
		}
	}

	out := &embeddedImage{
		xobject: &Stream{
			Dict: Dict{
				"Type":             Name("XObject"),
				"Subtype":          Name("Image"),
				"Width":            Integer(w),
				"Height":           Integer(h),
				"ColorSpace":       Name("DeviceRGB"),
				"BitsPerComponent": Integer(8),
				"Filter":           Name("FlateDecode"),
			},
			Raw: flate(rgb),
		},
		width:  w,
		height: h,
	}

	if !opaque {
		out.smask = &Stream{
			Dict: Dict{
				"Type":             Name("XObject"),
				"Subtype":          Name("Image"),
				"Width":            Integer(w),
				"Height":           Integer(h),
				"ColorSpace":       Name("DeviceGray"),
				"BitsPerComponent": Integer(8),
				"Filter":           Name("FlateDecode"),
			},
			Raw: flate(alpha),
		}
	}
	return out, nil
}

func flate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}
