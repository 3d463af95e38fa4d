package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"agent-chat/internal/agent"
	"agent-chat/internal/chat"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "state", "failures.sqlite"), nil)
	if err != nil {
		t.Fatalf("open journal: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecentNewestFirst(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	j.ReportFailure(ctx, chat.Failure{
		SessionID: "s1",
		Seq:       1,
		Chars:     22,
		At:        base,
		Err:       &agent.Error{Kind: agent.KindRemote, StatusCode: 500, Err: errors.New("boom")},
	})
	j.ReportFailure(ctx, chat.Failure{
		SessionID: "s1",
		Seq:       2,
		Chars:     5,
		At:        base.Add(time.Minute),
		Err:       &agent.Error{Kind: agent.KindTransport, Err: errors.New("dial tcp: refused")},
	})

	got, err := j.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Seq != 2 || got[0].Kind != "transport" || got[0].Status != 0 {
		t.Fatalf("unexpected newest entry: %+v", got[0])
	}
	if got[1].Seq != 1 || got[1].Kind != "remote" || got[1].Status != 500 || got[1].Chars != 22 {
		t.Fatalf("unexpected oldest entry: %+v", got[1])
	}
	if !got[1].At.Equal(base) {
		t.Fatalf("timestamp mismatch: got=%v want=%v", got[1].At, base)
	}
}

func TestRecentRespectsLimit(t *testing.T) {
	j := openTemp(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := j.Record(ctx, chat.Failure{SessionID: "s", Seq: i, Err: errors.New("x")}); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
	}
	got, err := j.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Kind != "unknown" {
		t.Fatalf("foreign errors should be recorded as unknown, got %q", got[0].Kind)
	}
}

func TestReopenKeepsEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "failures.sqlite")
	j, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := j.Record(context.Background(), chat.Failure{SessionID: "s", Seq: 1, Err: errors.New("x")}); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = j.Close()

	j, err = Open(path, nil)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer j.Close()
	got, err := j.Recent(context.Background(), 0)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected entry to survive reopen, got %d", len(got))
	}
}
