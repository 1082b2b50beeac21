package export

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Highlight 1", "Highlight_1"},
		{"forbidden chars", `a<b>c:d"e/f\g|h?i*j`, "a_b_c_d_e_f_g_h_i_j"},
		{"parens and dots", "Highlight #1 (Scene 2).final", "Highlight_#1_Scene_2_final"},
		{"squeezed underscores", "a  __  b", "a_b"},
		{"control chars dropped", "ab\x00cd\x1fef", "abcdef"},
		{"only junk", `///\\\`, ""},
		{"trimmed", "__hello__", "hello"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeName(tt.in, maxDescLen); got != tt.want {
				t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSanitizeNameCapsLength(t *testing.T) {
	long := strings.Repeat("x", 80)
	got := SanitizeName(long, maxDescLen)
	if len(got) != maxDescLen {
		t.Fatalf("want %d chars, got %d", maxDescLen, len(got))
	}
}

func TestClipBaseName(t *testing.T) {
	got := clipBaseName(3, "Highlight #3 (Scene 7)", "reels")
	want := "clip_003_Highlight_#3_Scene_7_reels"
	if got != want {
		t.Errorf("clipBaseName = %q, want %q", got, want)
	}
}

func TestClipBaseNameEmptyDescription(t *testing.T) {
	got := clipBaseName(5, "///", "gif")
	if !strings.HasPrefix(got, "clip_005_") || !strings.HasSuffix(got, "_gif") {
		t.Errorf("fallback base name wrong: %q", got)
	}
}

func TestResolveCollision(t *testing.T) {
	dir := t.TempDir()

	if got := resolveCollision(dir, "clip_001_a", ".mp4"); got != "clip_001_a.mp4" {
		t.Fatalf("no collision should keep name, got %q", got)
	}

	touch(t, filepath.Join(dir, "clip_001_a.mp4"))
	if got := resolveCollision(dir, "clip_001_a", ".mp4"); got != "clip_001_a_1.mp4" {
		t.Fatalf("first collision suffix wrong: %q", got)
	}

	touch(t, filepath.Join(dir, "clip_001_a_1.mp4"))
	touch(t, filepath.Join(dir, "clip_001_a_2.mp4"))
	if got := resolveCollision(dir, "clip_001_a", ".mp4"); got != "clip_001_a_3.mp4" {
		t.Fatalf("suffix must skip taken names: %q", got)
	}
}

func TestResolveCollisionGivesUpEventually(t *testing.T) {
	dir := t.TempDir()
	touch(t, filepath.Join(dir, "c.gif"))
	for i := 1; i <= maxCollisionSuffix; i++ {
		touch(t, filepath.Join(dir, "c_"+strconv.Itoa(i)+".gif"))
	}
	if got := resolveCollision(dir, "c", ".gif"); got != "c_override.gif" {
		t.Fatalf("exhausted suffixes must yield override name, got %q", got)
	}
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
}
