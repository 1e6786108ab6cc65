package session

import (
	"testing"
	"time"
)

func TestGetOrCreateDefaults(t *testing.T) {
	st := NewStore("/work", 0)

	s := st.GetOrCreate("conv-1")
	if s.GetWorkingDir() != "/work" {
		t.Fatalf("expected default working dir, got %q", s.GetWorkingDir())
	}
	if s.GetResumeToken() != "" {
		t.Fatal("fresh session must not carry a resumption token")
	}

	if st.GetOrCreate("conv-1") != s {
		t.Fatal("expected the same session on repeated access")
	}
}

func TestSetWorkingDirClearsResumeToken(t *testing.T) {
	st := NewStore("/work", 0)
	s := st.GetOrCreate("conv-1")

	s.SetResumeToken("tok-1")
	s.SetWorkingDir("/elsewhere")

	if s.GetResumeToken() != "" {
		t.Fatal("changing the working context must invalidate the resumption token")
	}
	if s.GetWorkingDir() != "/elsewhere" {
		t.Fatalf("unexpected working dir %q", s.GetWorkingDir())
	}
}

func TestResetPreservesWorkingDir(t *testing.T) {
	st := NewStore("/work", 0)
	s := st.GetOrCreate("conv-1")

	s.SetWorkingDir("/project")
	s.SetResumeToken("tok-1")
	s.SetSystemPrompt("be terse")
	s.SetModel("opus")
	s.Reset()

	if s.GetResumeToken() != "" {
		t.Fatal("reset must clear the resumption token")
	}
	sys, model := s.GetOverrides()
	if sys != "" || model != "" {
		t.Fatalf("reset must clear overrides, got %q / %q", sys, model)
	}
	if s.GetWorkingDir() != "/project" {
		t.Fatal("reset must preserve the working context")
	}
}

func TestExpiredSessionRecreatedOnAccess(t *testing.T) {
	st := NewStore("/work", 50*time.Millisecond)

	s := st.GetOrCreate("conv-1")
	s.SetResumeToken("tok-1")
	s.SetWorkingDir("/project")

	time.Sleep(80 * time.Millisecond)

	fresh := st.GetOrCreate("conv-1")
	if fresh == s {
		t.Fatal("expired session must be replaced")
	}
	if fresh.GetResumeToken() != "" || fresh.GetWorkingDir() != "/work" {
		t.Fatal("recreated session must behave as freshly created")
	}
}

func TestActivityDefersExpiry(t *testing.T) {
	st := NewStore("/work", 60*time.Millisecond)
	s := st.GetOrCreate("conv-1")

	time.Sleep(40 * time.Millisecond)
	s.Touch()
	time.Sleep(40 * time.Millisecond)

	if st.GetOrCreate("conv-1") != s {
		t.Fatal("recent activity must keep the session alive")
	}
}

func TestSweepRemovesExpired(t *testing.T) {
	st := NewStore("/work", 30*time.Millisecond)
	st.GetOrCreate("old-1")
	st.GetOrCreate("old-2")

	time.Sleep(50 * time.Millisecond)
	live := st.GetOrCreate("live")
	_ = live

	if removed := st.Sweep(); removed != 2 {
		t.Fatalf("expected 2 sessions swept, got %d", removed)
	}
	if st.Len() != 1 {
		t.Fatalf("expected 1 session left, got %d", st.Len())
	}
}
