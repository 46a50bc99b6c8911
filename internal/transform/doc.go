// Package transform rewrites the assembled manifest before it is rendered.
//
// A Pipeline runs named stages in order. After every stage the manifest is
// validated again, so a transform that introduces a duplicate URL or drops a
// revision fails the run with the stage's name attached.
//
// Build assembles the standard pipeline from configuration: prefix rewriting,
// cache-bust exemption, registered transforms named by manifestTransforms,
// then caller-supplied transforms.
package transform
