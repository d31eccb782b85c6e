package util

import "testing"

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("OUTREACH_TEST_NUM", "12.5")
	t.Setenv("OUTREACH_TEST_BAD_NUM", "twelve")
	t.Setenv("OUTREACH_TEST_BOOL", "true")
	t.Setenv("OUTREACH_TEST_BAD_BOOL", "yes")
	t.Setenv("OUTREACH_TEST_EMPTY", "")
	t.Setenv("OUTREACH_TEST_SECOND", "second")

	if got := GetEnvNumeric("OUTREACH_TEST_NUM", 1); got != 12.5 {
		t.Fatalf("GetEnvNumeric = %v, want 12.5", got)
	}
	if got := GetEnvNumeric("OUTREACH_TEST_BAD_NUM", 3); got != 3 {
		t.Fatalf("GetEnvNumeric with bad value = %v, want 3", got)
	}
	if got := GetEnvNumeric("OUTREACH_TEST_MISSING", 7); got != 7 {
		t.Fatalf("GetEnvNumeric missing = %v, want 7", got)
	}
	if !GetEnvBool("OUTREACH_TEST_BOOL", false) {
		t.Fatal("GetEnvBool = false, want true")
	}
	if GetEnvBool("OUTREACH_TEST_BAD_BOOL", false) {
		t.Fatal("GetEnvBool with bad value should fall back to default")
	}
	if got := GetEnvString("OUTREACH_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnvString = %q, want fallback", got)
	}
	if got := GetEnvFirst("OUTREACH_TEST_MISSING", "OUTREACH_TEST_EMPTY", "OUTREACH_TEST_SECOND"); got != "second" {
		t.Fatalf("GetEnvFirst = %q, want second", got)
	}
	if got := GetEnvFirst("OUTREACH_TEST_MISSING"); got != "" {
		t.Fatalf("GetEnvFirst with nothing set = %q, want empty", got)
	}
}
