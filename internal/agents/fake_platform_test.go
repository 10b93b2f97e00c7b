package agents

import (
	"context"
	"fmt"
	"sync"

	"voice-agent-dashboard/internal/platform"
)

// fakePlatform keeps agent documents in memory and records every call.
type fakePlatform struct {
	mu      sync.Mutex
	next    int
	docs    map[string]platform.Document
	deleted []string
	calls   []string

	createErr error
	updateErr error
	callErr   error
	getErr    map[string]error

	// When set, CreateAgent signals started and blocks until release closes.
	started chan struct{}
	release chan struct{}

	creates int
}

func newFakePlatform() *fakePlatform {
	return &fakePlatform{docs: map[string]platform.Document{}, getErr: map[string]error{}}
}

func upstreamErr(op string) error {
	return &platform.Error{Op: op, StatusCode: 500, Body: "boom"}
}

func (f *fakePlatform) CreateAgent(ctx context.Context, doc platform.Document) (string, error) {
	if f.release != nil {
		f.started <- struct{}{}
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.createErr != nil {
		return "", f.createErr
	}
	f.next++
	id := fmt.Sprintf("ext-%d", f.next)
	f.docs[id] = doc
	return id, nil
}

func (f *fakePlatform) GetAgent(ctx context.Context, externalID string) (platform.AgentView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getErr[externalID]; err != nil {
		return platform.AgentView{}, err
	}
	doc, ok := f.docs[externalID]
	if !ok {
		return platform.AgentView{}, &platform.Error{Op: "get_agent", StatusCode: 404}
	}
	return viewOf(doc), nil
}

// viewOf reads a stored document the way the platform client does.
func viewOf(doc platform.Document) platform.AgentView {
	v := platform.AgentView{
		Name:           doc.Config.AgentName,
		WelcomeMessage: doc.Config.WelcomeMessage,
		SystemPrompt:   doc.Prompts["task_1"].SystemPrompt,
	}
	if len(doc.Config.Tasks) > 0 {
		pc := doc.Config.Tasks[0].ToolsConfig.Synthesizer.ProviderConfig
		v.Voice = &platform.VoiceRef{ID: pc.VoiceID, Name: pc.Voice}
	}
	return v
}

func (f *fakePlatform) UpdateAgent(ctx context.Context, externalID string, doc platform.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.docs[externalID] = doc
	return nil
}

func (f *fakePlatform) DeleteAgent(ctx context.Context, externalID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, externalID)
	f.deleted = append(f.deleted, externalID)
	return nil
}

func (f *fakePlatform) InitiateCall(ctx context.Context, externalID, phoneNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.callErr != nil {
		return f.callErr
	}
	f.calls = append(f.calls, externalID+" "+phoneNumber)
	return nil
}

type memIdempotency struct {
	mu   sync.Mutex
	keys map[string]string
}

const memPending = "\x00pending"

func (m *memIdempotency) Reserve(ctx context.Context, owner, key string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.keys == nil {
		m.keys = map[string]string{}
	}
	id, ok := m.keys[owner+"/"+key]
	if !ok {
		m.keys[owner+"/"+key] = memPending
		return true, "", nil
	}
	if id == memPending {
		return false, "", nil
	}
	return false, id, nil
}

func (m *memIdempotency) Complete(ctx context.Context, owner, key, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[owner+"/"+key] = id
	return nil
}

func (m *memIdempotency) Release(ctx context.Context, owner, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.keys, owner+"/"+key)
	return nil
}

type onceThrottle struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (t *onceThrottle) Acquire(ctx context.Context, agentID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.seen == nil {
		t.seen = map[string]bool{}
	}
	if t.seen[agentID] {
		return false, nil
	}
	t.seen[agentID] = true
	return true, nil
}
