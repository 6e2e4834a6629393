// Package render produces the certificate markup: the card shown on the page,
// the stylesheet, and the standalone document used for printing and for
// browser rasterization.
//
// Record values reach markup only through certificate.Text.HTML. Theme values
// are sanitized on load and escaped on write.
package render
