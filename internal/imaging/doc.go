// Package imaging provides the pixel representations and I/O shared by every
// image operation in the server.
//
// Decoded images are converted into floating point planes normalised by the
// maximum of their source bit depth, the same convention array-based image
// libraries use when converting to float. Binary results are carried as masks.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For regions, (x1,y1) is inclusive (top-left), (x2,y2) is exclusive (bottom-right)
//
// Shapes are reported in (rows, columns[, channels]) order.
//
// # Thread Safety
//
// The ImageCache type is safe for concurrent use. Planes and masks are plain
// values; operations never mutate their inputs.
//
// # Output
//
// Results that produce an image are encoded as PNG and returned base64
// encoded. When an output path is given the PNG is also written to disk, which
// lets later tool calls load it by path.
package imaging
