// Package ocr reads text from document images with Tesseract (via
// gosseract/v2).
//
// Images are handed to Tesseract as in-memory PNG data, so no temporary
// files are written. Scans with uneven illumination should be binarised
// first; Binarize applies a Niblack or Sauvola local threshold and renders
// text black on white, which Tesseract reads far more reliably than the raw
// scan.
//
// # Prerequisites
//
// The Tesseract library and language data must be installed:
//   - Ubuntu/Debian: apt-get install libtesseract-dev tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// A non-standard data directory can be set with Options.TessdataPrefix.
package ocr
