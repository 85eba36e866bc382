// Package interpreter is the stateful execution core of nbgate. It maps a
// (user, conversation) pair onto a durable notebook document and a live
// kernel session, drives code execution against that session, folds the
// asynchronous kernel event stream into a single textual result plus a
// structured output list, and persists the executed cell back into the
// notebook.
//
// All collaborators are injected as small interfaces (ContentsAPI,
// SessionRegistry, Session, Kernel, ExecuteHandle) so that the contents
// store and session registry can be substituted with fakes in tests. The
// production implementations live in pkg/jupyter.
package interpreter
