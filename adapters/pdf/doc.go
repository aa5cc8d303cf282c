// Package exportpdf prints composed documents to PDF artifacts.
//
// An Exporter wraps the document markup in a print page that carries the
// page geometry and pagination rules, hands it to a pluggable Engine
// (headless Chromium or wkhtmltopdf), checks that the output is a readable
// PDF, and stores it through an ArtifactStore.
package exportpdf
