// Package ui renders command results. Results are converted into a
// Document that the text, terminal, markdown and XML renderers share;
// JSON and YAML encode the result values directly.
package ui
