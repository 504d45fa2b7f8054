package coordinator

import (
	"context"
	"testing"
)

func TestFake_RegisterThenListFindsEntry(t *testing.T) {
	t.Parallel()

	f := NewFake()
	if err := f.Register(context.Background(), "svc", "10.0.0.1:9000"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	entries, err := f.List(context.Background(), "svc/")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if got, ok := entries["svc/10.0.0.1:9000"]; !ok || got != "10.0.0.1:9000" {
		t.Fatalf("List = %v, want entry for svc/10.0.0.1:9000", entries)
	}
}

func TestFake_UnregisterRemovesEntry(t *testing.T) {
	t.Parallel()

	f := NewFake()
	ctx := context.Background()
	f.Register(ctx, "svc", "10.0.0.1:9000")
	if err := f.Unregister(ctx); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	entries, _ := f.List(ctx, "svc/")
	if len(entries) != 0 {
		t.Fatalf("List after unregister = %v, want empty", entries)
	}
}

func TestFake_WatchDeliversPutAndDelete(t *testing.T) {
	t.Parallel()

	f := NewFake()
	ctx := context.Background()
	ch, err := f.Watch(ctx, "svc/")
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}

	f.PutDirect("svc/10.0.0.2:9000", "10.0.0.2:9000")
	ev := <-ch
	if ev.Type != EventPut || ev.Key != "svc/10.0.0.2:9000" {
		t.Fatalf("got %+v, want a PUT for svc/10.0.0.2:9000", ev)
	}

	f.DeleteDirect("svc/10.0.0.2:9000")
	ev = <-ch
	if ev.Type != EventDelete || ev.Key != "svc/10.0.0.2:9000" {
		t.Fatalf("got %+v, want a DELETE for svc/10.0.0.2:9000", ev)
	}
}

func TestFake_ListFiltersByPrefix(t *testing.T) {
	t.Parallel()

	f := NewFake()
	f.PutDirect("svc-a/1", "1")
	f.PutDirect("svc-b/1", "1")

	entries, _ := f.List(context.Background(), "svc-a/")
	if len(entries) != 1 {
		t.Fatalf("List(svc-a/) = %v, want 1 entry", entries)
	}
}

func TestEventType_String(t *testing.T) {
	t.Parallel()
	if EventPut.String() != "PUT" {
		t.Fatalf("EventPut.String() = %q want PUT", EventPut.String())
	}
	if EventDelete.String() != "DELETE" {
		t.Fatalf("EventDelete.String() = %q want DELETE", EventDelete.String())
	}
}
