// Package api defines the shared data model for nbgate: the notebook
// document (nbformat 4.5), code cells, the closed set of kernel output
// variants, and the wire shapes exchanged with the Jupyter backend.
//
// This package has no dependencies on other nbgate packages.
package api
