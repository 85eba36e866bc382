// Package jupyter implements clients for the external Jupyter-protocol
// backend consumed by nbgate: the contents REST API (document store), the
// sessions REST API (session registry), and the kernel WebSocket channels
// (code execution). The clients implement the interfaces defined in
// pkg/interpreter.
package jupyter
