// Package imaging provides the low-level image operations of the perception pipeline.
//
// This package implements region extraction, color segmentation, edge detection,
// and frame annotation. All operations work with standard Go image.Image types and
// use a coordinate system where (0,0) is at the top-left corner, X increases
// rightward, and Y increases downward.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based. A Region is expressed as an
// origin (X, Y) plus Width and Height; its right and bottom edges are exclusive.
// Every buffer returned by this package is re-based so its bounds start at (0,0),
// regardless of where the source region sat in the frame.
//
// # Masks
//
// Segmentation produces a *image.Gray mask holding only two values:
//   - 255 for pixels that matched the target color bands
//   - 0 for everything else
//
// # Color Representation
//
// Hue/saturation/value conversion is done with go-colorful:
//   - Hue: 0-360 degrees (0 = red, 120 = green, 240 = blue)
//   - Saturation: 0-1
//   - Value: 0-1
//
// Hue bands are expressed in degrees. Because red straddles the hue origin, the
// default segmenter unions a low band near 0° with a high band near 360°.
//
// # Error Handling
//
// Functions return errors for invalid inputs such as:
//   - Regions outside the frame bounds (ErrInvalidRegion)
//   - File I/O errors during image loading or saving
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. All other operations are
// stateless and can be called concurrently on different images.
package imaging
