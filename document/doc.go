// Package document composes strategy documents and exports them.
//
// A Workspace holds one live document: its narrative content and a diagram
// container that display renders commit into. The Composer turns that live
// document into an export by adding a header, waiting for the diagram,
// switching it to the print palette, handing it to the PDF exporter and
// restoring everything afterwards. Service keeps the open workspaces and
// records every export attempt.
package document
