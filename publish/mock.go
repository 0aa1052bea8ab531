package publish

import (
	"context"
	"sync"

	"github.com/randalmurphal/seedrepo/workspace"
)

// MockPublisher records calls and returns configured results.
type MockPublisher struct {
	PublishFunc func(ctx context.Context, credential string, target Target, manifest []workspace.Entry) (*Published, error)

	mu    sync.Mutex
	Calls []MockCall
}

// MockCall is one recorded Publish call.
type MockCall struct {
	Credential string
	Target     Target
	Manifest   []workspace.Entry
}

// Publish records the call and delegates to PublishFunc, or succeeds with
// owner "mock" when PublishFunc is nil.
func (m *MockPublisher) Publish(ctx context.Context, credential string, target Target, manifest []workspace.Entry) (*Published, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, MockCall{Credential: credential, Target: target, Manifest: manifest})
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, credential, target, manifest)
	}
	return &Published{
		Repository: RemoteRepository{Owner: "mock", Name: target.Name, DefaultBranch: DefaultBranch},
		BlobCount:  len(manifest),
	}, nil
}

var (
	_ Publisher = (*GitHubPublisher)(nil)
	_ Publisher = (*MockPublisher)(nil)
)
