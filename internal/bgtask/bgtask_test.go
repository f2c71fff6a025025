package bgtask

import "testing"

func TestTaskProgress(t *testing.T) {
	task := Open("libc", 3)
	task.Advance("step one")
	task.Advance("step two")

	done, total, status := task.Progress()
	if done != 2 || total != 3 {
		t.Fatalf("got done=%d total=%d, want 2/3", done, total)
	}
	if status != "step two" {
		t.Fatalf("got status %q", status)
	}

	task.End("finished")
	done, total, status = task.Progress()
	if done != total {
		t.Fatalf("expected done == total after End, got %d/%d", done, total)
	}
	if status != "finished" {
		t.Fatalf("got status %q", status)
	}
}
