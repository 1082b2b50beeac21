package export

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/kikiluvv/clipforge/pkg/util"
)

const (
	// maxDescLen caps the sanitized-description portion of a filename.
	maxDescLen = 50
	// maxCollisionSuffix bounds the rename attempts before accepting overwrite.
	maxCollisionSuffix = 100
)

var (
	reForbidden  = regexp.MustCompile(`[<>:"/\\|?*]`)
	reControl    = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	reSeparators = regexp.MustCompile(`[\s.()]+`)
	reUnderscore = regexp.MustCompile(`_+`)
	rePresetChar = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
)

// SanitizeName strips filesystem-hostile characters from a description
// and caps its length, so it can form part of a filename on any OS.
func SanitizeName(s string, maxLen int) string {
	s = reForbidden.ReplaceAllString(s, "_")
	s = reControl.ReplaceAllString(s, "")
	s = reSeparators.ReplaceAllString(s, "_")
	s = reUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if s == "" {
		return ""
	}
	runes := []rune(s)
	if len(runes) > maxLen {
		s = strings.Trim(string(runes[:maxLen]), "_")
	}
	return s
}

// clipBaseName builds the `clip_<NNN>_<desc>_<preset>` base (no extension).
func clipBaseName(n int, description, presetName string) string {
	desc := SanitizeName(description, maxDescLen)
	if desc == "" {
		desc = fmt.Sprintf("clip_%d", n)
	}
	preset := rePresetChar.ReplaceAllString(strings.ReplaceAll(strings.ToLower(presetName), " ", "_"), "")

	parts := make([]string, 0, 4)
	for _, p := range []string{"clip", fmt.Sprintf("%03d", n), desc, preset} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	base := strings.Join(parts, "_")
	return strings.Trim(reUnderscore.ReplaceAllString(base, "_"), "_")
}

// resolveCollision returns a filename under dir that does not clash with
// an existing file, appending a numeric suffix when needed. After too
// many collisions it gives up and accepts an overwriting name.
func resolveCollision(dir, base, ext string) string {
	name := base + ext
	if !util.FileExists(filepath.Join(dir, name)) {
		return name
	}
	for i := 1; i <= maxCollisionSuffix; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if !util.FileExists(filepath.Join(dir, candidate)) {
			return candidate
		}
	}
	return base + "_override" + ext
}
