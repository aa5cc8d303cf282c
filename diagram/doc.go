// Package diagram renders workflow diagram sources into themed SVG markup.
//
// A Renderer hands a Source to a layout Engine and normalizes the emitted
// colors with Repaint so the markup always matches exactly one Palette.
// Render failures degrade to a localized placeholder instead of an error.
package diagram
