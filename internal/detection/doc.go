// Package detection classifies colored symbols in a segmentation mask.
//
// The classifier turns each external region of a binary mask into one of four
// shape labels: Circle, Triangle, Square or X. The package is pure Go; an
// OpenCV-backed line detector is available with the gocv build tag.
//
// # Pipeline
//
//  1. Contours: FindExternalContours traces the outer boundary of every
//     8-connected foreground region that is not nested inside another
//  2. Measurement: shoelace area, closed perimeter, bounding box and a
//     Douglas-Peucker polygon approximation
//  3. Decision: vertex count first, then circularity, then a crossing-lines
//     probe for shapes that are neither round nor polygonal
//
// # Crossing Probe
//
// An X and a circle both simplify to many vertices. The probe crops the
// candidate's bounding box out of the mask, runs Canny edge detection and
// looks for two long line segments crossing at a steep angle. Line detection
// goes through the LineDetector interface so tests can substitute fixed
// segments; HoughDetector is the default.
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at the top-left corner of the mask
//   - X increases rightward
//   - Y increases downward
//   - Bounding boxes use inclusive Min and exclusive Max
//
// # Limitations
//
// The thresholds assume symbols drawn as solid filled shapes at least a few
// dozen pixels across. Very small or heavily occluded symbols may fall below
// the area filter or simplify to the wrong vertex count.
package detection
