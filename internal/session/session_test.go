package session

import "testing"

func TestSessionAppendAssignsSequence(t *testing.T) {
	s := New("do the thing")

	s.Append(Event{Type: EventUser, Content: "do the thing"})
	s.Append(Event{Type: EventStepStart, Step: 1})
	s.Append(Event{Type: EventAssistant, Step: 1, Content: "on it"})

	events := s.Snapshot()
	if len(events) != 3 {
		t.Fatalf("events = %d, want 3", len(events))
	}
	for i, ev := range events {
		if ev.SeqID != uint64(i+1) {
			t.Errorf("seq[%d] = %d, want %d", i, ev.SeqID, i+1)
		}
		if ev.Timestamp.IsZero() {
			t.Errorf("event %d missing timestamp", i)
		}
	}
	if s.CurrentSeqID() != 3 {
		t.Errorf("currentSeqID = %d, want 3", s.CurrentSeqID())
	}
}

func TestSessionEventsOfType(t *testing.T) {
	s := New("task")
	s.Append(Event{Type: EventToolCall, Tool: "a"})
	s.Append(Event{Type: EventToolResult, Tool: "a"})
	s.Append(Event{Type: EventToolCall, Tool: "b"})

	calls := s.EventsOfType(EventToolCall)
	if len(calls) != 2 {
		t.Fatalf("tool_call events = %d, want 2", len(calls))
	}
	if calls[0].Tool != "a" || calls[1].Tool != "b" {
		t.Errorf("unexpected order: %+v", calls)
	}
}

func TestFileManagerRoundTrip(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewFileManager(dir)
	if err != nil {
		t.Fatalf("NewFileManager: %v", err)
	}

	s := New("persist me")
	s.Append(Event{Type: EventUser, Content: "persist me"})
	s.Finish(StatusComplete, "done", "")

	if err = mgr.Update(s); err != nil {
		t.Fatalf("Update: %v", err)
	}

	loaded, err := mgr.Load(s.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.ID != s.ID || loaded.Status != StatusComplete {
		t.Errorf("loaded = %+v", loaded)
	}
	if len(loaded.Events) != 1 || loaded.Events[0].Content != "persist me" {
		t.Errorf("events not persisted: %+v", loaded.Events)
	}

	if _, err := mgr.Load("no-such-session"); err == nil {
		t.Error("expected an error for a missing session")
	}
}

func TestNullManager(t *testing.T) {
	var mgr Manager = NullManager{}
	if err := mgr.Update(New("task")); err != nil {
		t.Errorf("NullManager.Update: %v", err)
	}
}
