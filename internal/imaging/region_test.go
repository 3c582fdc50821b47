package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"
)

func TestExtractRegion(t *testing.T) {
	img := createPatternImage(640, 480)

	tests := []struct {
		name    string
		region  Region
		wantErr bool
	}{
		{"default region", DefaultRegion, false},
		{"full frame", Region{0, 0, 640, 480}, false},
		{"single pixel", Region{639, 479, 1, 1}, false},
		{"zero width", Region{10, 10, 0, 10}, true},
		{"negative height", Region{10, 10, 10, -1}, true},
		{"past right edge", Region{600, 0, 41, 10}, true},
		{"past bottom edge", Region{0, 400, 10, 81}, true},
		{"negative origin", Region{-1, 0, 10, 10}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			roi, err := ExtractRegion(img, tt.region)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, ErrInvalidRegion) {
					t.Errorf("error %v does not wrap ErrInvalidRegion", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := image.Rect(0, 0, tt.region.Width, tt.region.Height)
			if roi.Bounds() != want {
				t.Errorf("bounds: got %v, want %v", roi.Bounds(), want)
			}
		})
	}
}

func TestExtractRegion_CopiesPixels(t *testing.T) {
	img := createPatternImage(100, 100)

	// Straddles the red and green quadrants.
	roi, err := ExtractRegion(img, Region{X: 40, Y: 10, Width: 20, Height: 10})
	if err != nil {
		t.Fatalf("ExtractRegion failed: %v", err)
	}

	r, g, _, _ := roi.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 {
		t.Errorf("left pixel: got r=%d g=%d, want red", r>>8, g>>8)
	}
	r, g, _, _ = roi.At(19, 0).RGBA()
	if r>>8 != 0 || g>>8 != 255 {
		t.Errorf("right pixel: got r=%d g=%d, want green", r>>8, g>>8)
	}

	// Mutating the source must not affect the extracted copy.
	img.Set(40, 10, color.RGBA{0, 0, 0, 255})
	r, _, _, _ = roi.At(0, 0).RGBA()
	if r>>8 != 255 {
		t.Error("extracted region shares memory with the source")
	}
}

func TestExtractRegion_OffsetBounds(t *testing.T) {
	src := createPatternImage(100, 100)
	sub := src.SubImage(image.Rect(50, 50, 100, 100))

	roi, err := ExtractRegion(sub, Region{X: 0, Y: 0, Width: 10, Height: 10})
	if err != nil {
		t.Fatalf("ExtractRegion failed: %v", err)
	}
	r, g, b, _ := roi.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("got (%d,%d,%d), want white from the bottom-right quadrant", r>>8, g>>8, b>>8)
	}

	if _, err := ExtractRegion(sub, Region{X: 45, Y: 0, Width: 10, Height: 10}); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion for region past sub-image edge, got %v", err)
	}
}

func TestRegionValidate(t *testing.T) {
	if err := DefaultRegion.Validate(640, 480); err != nil {
		t.Errorf("default region rejected on 640x480: %v", err)
	}
	if err := DefaultRegion.Validate(320, 240); !errors.Is(err, ErrInvalidRegion) {
		t.Errorf("expected ErrInvalidRegion on 320x240, got %v", err)
	}
}

func TestCropGray(t *testing.T) {
	mask := image.NewGray(image.Rect(0, 0, 20, 20))
	mask.SetGray(5, 6, color.Gray{Y: 255})

	crop := CropGray(mask, image.Rect(4, 4, 10, 10))
	if crop.Bounds() != image.Rect(0, 0, 6, 6) {
		t.Fatalf("bounds: got %v", crop.Bounds())
	}
	if crop.GrayAt(1, 2).Y != 255 {
		t.Error("expected on pixel at (1,2)")
	}
	if CountOn(crop) != 1 {
		t.Errorf("CountOn: got %d, want 1", CountOn(crop))
	}

	clipped := CropGray(mask, image.Rect(15, 15, 30, 30))
	if clipped.Bounds() != image.Rect(0, 0, 5, 5) {
		t.Errorf("clipped bounds: got %v, want 5x5", clipped.Bounds())
	}
}
