package textutil_test

import (
	"strings"
	"testing"

	"clmeval/internal/textutil"
)

func TestJobToken(t *testing.T) {
	cases := map[string]string{
		"":               "unknown",
		"Lecture 01":     "lecture_01",
		"  --Week/3--  ": "week_3",
		"clm-model-ABC":  "clm-model-abc",
		"v1.2 (final)":   "v1.2_final",
		"***":            "unknown",
	}
	for in, want := range cases {
		if got := textutil.JobToken(in); got != want {
			t.Fatalf("JobToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestObjectName(t *testing.T) {
	cases := map[string]string{
		"Kubernetes":     "Kubernetes",
		"AC/DC":          "AC_DC",
		"What?_Is:This*": "What_IsThis",
		"../etc":         "_etc",
		" New_York ":     "New_York",
	}
	for in, want := range cases {
		if got := textutil.ObjectName(in); got != want {
			t.Fatalf("ObjectName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJobNameJoinsAndCaps(t *testing.T) {
	got := textutil.JobName("st-job", "run1", "ST", "Folder A")
	if got != "st-job-run1-st-folder_a" {
		t.Fatalf("unexpected job name %q", got)
	}
	long := textutil.JobName("clm-job", strings.Repeat("x", 300))
	if len(long) > textutil.MaxJobNameLength {
		t.Fatalf("job name not capped: %d", len(long))
	}
	if !strings.HasPrefix(long, "clm-job-") {
		t.Fatalf("prefix lost: %q", long[:20])
	}
}
