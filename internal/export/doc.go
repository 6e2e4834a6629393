// Package export turns a rendered certificate into files: a PNG image
// rasterized by a headless browser, a print-ready HTML document, and a PDF.
//
// Exports read a finished certificate.Certificate and never look anything up.
// A failed image export leaves the certificate usable for printing.
package export
