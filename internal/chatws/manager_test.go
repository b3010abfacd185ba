package chatws

import (
	"strconv"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func TestConnManager_Register(t *testing.T) {
	cm := NewConnManager()
	conn := &websocket.Conn{}
	userID := "user123"
	sessionID := "tab-1"

	cm.Register(userID, sessionID, conn)

	active := cm.GetActive(userID, sessionID)
	if active != conn {
		t.Errorf("Expected connection %v, got %v", conn, active)
	}
}

func TestConnManager_Unregister(t *testing.T) {
	cm := NewConnManager()
	conn := &websocket.Conn{}
	userID := "user123"
	sessionID := "tab-1"

	cm.Register(userID, sessionID, conn)
	cm.Unregister(userID, sessionID, conn)

	active := cm.GetActive(userID, sessionID)
	if active != nil {
		t.Errorf("Expected nil connection, got %v", active)
	}
}

func TestConnManager_UnregisterStale(t *testing.T) {
	cm := NewConnManager()
	conn1 := &websocket.Conn{}
	conn2 := &websocket.Conn{}
	userID := "user123"
	session1 := "tab-1"
	session2 := "tab-2"

	cm.Register(userID, session1, conn1)

	// Another tab should remain active when stale unregister happens.
	cm.Register(userID, session2, conn2)

	cm.Unregister(userID, session1, conn1)

	active := cm.GetActive(userID, session2)
	if active != conn2 {
		t.Errorf("Expected connection %v, got %v", conn2, active)
	}
}

func TestConnManager_ConcurrentAccess(t *testing.T) {
	cm := NewConnManager()
	userID := "concurrentUser"

	go func() {
		for i := 0; i < 1000; i++ {
			cm.Register(userID, "tab-"+strconv.Itoa(i), &websocket.Conn{})
		}
	}()

	go func() {
		for i := 0; i < 1000; i++ {
			cm.GetActive(userID, "tab-"+strconv.Itoa(i))
		}
	}()

	time.Sleep(100 * time.Millisecond)
}
