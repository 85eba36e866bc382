package interpreter

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nbgate/nbgate/pkg/api"
)

// fakeContents is an in-memory contents store. Directories are tracked as
// a set of paths; notebooks as path -> document.
type fakeContents struct {
	dirs      map[string]bool
	notebooks map[string]*api.Document

	createCalls []string // "parent/name" per CreateDirectory call
	saveCalls   []string // path per Save call

	listErr   error
	createErr error
	getErr    error
	saveErr   error
}

func newFakeContents() *fakeContents {
	return &fakeContents{
		dirs:      map[string]bool{"": true},
		notebooks: map[string]*api.Document{},
	}
}

func (f *fakeContents) List(ctx context.Context, dir string) ([]api.Entry, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	if !f.dirs[dir] {
		return nil, fmt.Errorf("no such directory %q", dir)
	}
	var entries []api.Entry
	for d := range f.dirs {
		if d != "" && parentOf(d) == dir {
			entries = append(entries, api.Entry{Name: baseOf(d), Path: d, Type: api.TypeDirectory})
		}
	}
	for p := range f.notebooks {
		if parentOf(p) == dir {
			entries = append(entries, api.Entry{Name: baseOf(p), Path: p, Type: api.TypeNotebook})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func (f *fakeContents) GetNotebook(ctx context.Context, path string) (*api.Document, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	doc, ok := f.notebooks[path]
	if !ok {
		return nil, fmt.Errorf("no such notebook %q", path)
	}
	return doc, nil
}

func (f *fakeContents) CreateDirectory(ctx context.Context, parent, name string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.createCalls = append(f.createCalls, joinPath(parent, name))
	f.dirs[joinPath(parent, name)] = true
	return nil
}

func (f *fakeContents) Save(ctx context.Context, path string, doc *api.Document) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saveCalls = append(f.saveCalls, path)
	f.notebooks[path] = doc
	return nil
}

func parentOf(p string) string {
	i := strings.LastIndex(p, "/")
	if i < 0 {
		return ""
	}
	return p[:i]
}

func baseOf(p string) string {
	i := strings.LastIndex(p, "/")
	return p[i+1:]
}

func joinPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "/" + name
}

// fakeRegistry is an in-memory session registry.
type fakeRegistry struct {
	sessions map[string]*fakeSession // by path

	readyErr error
	findErr  error
	startErr error

	startCalls []api.SessionSpec
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{sessions: map[string]*fakeSession{}}
}

func (f *fakeRegistry) Ready(ctx context.Context) error { return f.readyErr }

func (f *fakeRegistry) FindByPath(ctx context.Context, path string) (Session, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if s, ok := f.sessions[path]; ok {
		return s, nil
	}
	return nil, nil
}

func (f *fakeRegistry) StartNew(ctx context.Context, spec api.SessionSpec) (Session, error) {
	f.startCalls = append(f.startCalls, spec)
	if f.startErr != nil {
		return nil, f.startErr
	}
	s := &fakeSession{id: fmt.Sprintf("sess-%d", len(f.startCalls)), path: spec.Path, kernel: &fakeKernel{}}
	f.sessions[spec.Path] = s
	return s, nil
}

type fakeSession struct {
	id     string
	path   string
	kernel *fakeKernel
}

func (s *fakeSession) ID() string   { return s.id }
func (s *fakeSession) Path() string { return s.path }

func (s *fakeSession) Kernel() Kernel {
	if s.kernel == nil {
		return nil
	}
	return s.kernel
}

// fakeKernel replays a scripted event sequence for every execution.
type fakeKernel struct {
	events  []api.KernelEvent
	execErr error
	doneErr error

	requests []string
}

func (k *fakeKernel) RequestExecute(ctx context.Context, code string) (ExecuteHandle, error) {
	k.requests = append(k.requests, code)
	if k.execErr != nil {
		return nil, k.execErr
	}
	return &fakeHandle{events: k.events, doneErr: k.doneErr}, nil
}

type fakeHandle struct {
	events  []api.KernelEvent
	doneErr error
	handler func(api.KernelEvent)
}

func (h *fakeHandle) OnEvent(fn func(api.KernelEvent)) { h.handler = fn }

func (h *fakeHandle) Done(ctx context.Context) error {
	if h.handler != nil {
		for _, ev := range h.events {
			h.handler(ev)
		}
	}
	return h.doneErr
}

func streamEvent(name, text string) api.KernelEvent {
	content, _ := json.Marshal(map[string]string{"name": name, "text": text})
	return api.KernelEvent{Type: api.OutputTypeStream, Content: content}
}

func executeResultEvent(plain string, count int) api.KernelEvent {
	content, _ := json.Marshal(map[string]any{
		"data":            map[string]string{"text/plain": plain},
		"metadata":        map[string]any{},
		"execution_count": count,
	})
	return api.KernelEvent{Type: api.OutputTypeExecuteResult, Content: content}
}

func displayDataEvent(pngBase64 string) api.KernelEvent {
	content, _ := json.Marshal(map[string]any{
		"data":     map[string]string{"image/png": pngBase64},
		"metadata": map[string]any{},
	})
	return api.KernelEvent{Type: api.OutputTypeDisplayData, Content: content}
}

func errorEvent(ename, evalue string, traceback ...string) api.KernelEvent {
	content, _ := json.Marshal(map[string]any{
		"ename":     ename,
		"evalue":    evalue,
		"traceback": traceback,
	})
	return api.KernelEvent{Type: api.OutputTypeError, Content: content}
}
