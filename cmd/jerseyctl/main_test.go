package main

import (
	"bytes"
	"strings"
	"testing"
)

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func requireContains(t *testing.T, out, want string) {
	t.Helper()
	if !strings.Contains(out, want) {
		t.Fatalf("expected output to contain %q, got:\n%s", want, out)
	}
}

func TestSizeAdult(t *testing.T) {
	out, err := runCLI(t, "size", "--age", "30", "--height", "175", "--weight", "70")
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	requireContains(t, out, "adult")
	requireContains(t, out, "L")
	requireContains(t, out, "54")
}

func TestSizeKidsWithFit(t *testing.T) {
	out, err := runCLI(t, "size", "--age", "8", "--height", "140", "--weight", "30", "--fit", "loose")
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	requireContains(t, out, "kids")
	requireContains(t, out, "26")
	requireContains(t, out, "loose fit: one size up")
}

func TestSizeRejectsOutOfRange(t *testing.T) {
	_, err := runCLI(t, "size", "--age", "30", "--height", "20", "--weight", "70")
	if err == nil {
		t.Fatal("expected validation error for height")
	}
	if !strings.Contains(err.Error(), "height_cm") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSizeRejectsNaN(t *testing.T) {
	_, err := runCLI(t, "size", "--age", "30", "--height", "NaN", "--weight", "70")
	if err == nil || !strings.Contains(err.Error(), "height_cm") {
		t.Fatalf("expected height_cm validation error, got %v", err)
	}
}

func TestSizeRequiresFlags(t *testing.T) {
	if _, err := runCLI(t, "size", "--age", "30"); err == nil {
		t.Fatal("expected missing flag error")
	}
}

func TestSizeChart(t *testing.T) {
	out, err := runCLI(t, "size-chart")
	if err != nil {
		t.Fatalf("size-chart: %v", err)
	}
	requireContains(t, out, "3XL")
	requireContains(t, out, "155-165")
	requireContains(t, out, "< 55")
}
