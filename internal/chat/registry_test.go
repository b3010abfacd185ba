package chat

import (
	"sync"
	"testing"

	"github.com/yellowbank/superagent/internal/domain"
)

func TestRegistrySeedsOncePerConversation(t *testing.T) {
	t.Parallel()

	seeded := 0
	reg := NewRegistry(func(c *Conversation) {
		seeded++
		c.append(domain.Message{Role: domain.RoleAgent, Text: "welcome"})
	})

	a := reg.Get("user-1", "tab-1")
	b := reg.Get("user-1", "tab-1")
	if a != b {
		t.Fatal("same user/session must map to the same conversation")
	}
	if seeded != 1 {
		t.Fatalf("expected one seed call, got %d", seeded)
	}

	c := reg.Get("user-1", "tab-2")
	if c == a {
		t.Fatal("different tab sessions must get distinct conversations")
	}
	if seeded != 2 {
		t.Fatalf("expected a second seed call, got %d", seeded)
	}
}

func TestRegistryRemove(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	a := reg.Get("user-1", "tab-1")
	reg.Remove("user-1", "tab-1")
	if reg.Get("user-1", "tab-1") == a {
		t.Fatal("removed conversation must not be returned again")
	}
}

func TestRegistryConcurrentGet(t *testing.T) {
	t.Parallel()

	reg := NewRegistry(nil)
	var wg sync.WaitGroup
	conns := make([]*Conversation, 16)
	for i := range conns {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			conns[i] = reg.Get("user-1", "tab-1")
		}(i)
	}
	wg.Wait()

	for i := 1; i < len(conns); i++ {
		if conns[i] != conns[0] {
			t.Fatal("concurrent Get must converge on one conversation")
		}
	}
}
