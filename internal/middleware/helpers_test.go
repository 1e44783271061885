package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/astacala/rescue-api/internal/models"
)

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()

	var payload map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	return payload
}

type fakeGuard struct {
	mu      sync.Mutex
	blocked map[string]string
	events  []models.SecurityEvent
}

func newFakeGuard() *fakeGuard {
	return &fakeGuard{blocked: make(map[string]string)}
}

func (g *fakeGuard) IsBlocked(_ context.Context, ip string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.blocked[ip]
	return ok, nil
}

func (g *fakeGuard) Block(_ context.Context, ip, reason string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.blocked[ip] = reason
	return nil
}

func (g *fakeGuard) Record(_ context.Context, event models.SecurityEvent) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.events = append(g.events, event)
}

func (g *fakeGuard) kinds() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, 0, len(g.events))
	for _, event := range g.events {
		out = append(out, event.Kind)
	}
	return out
}
