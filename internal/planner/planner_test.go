package planner

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/kikiluvv/clipforge/internal/export"
)

func testClips(n int) []export.ExportedClipInfo {
	clips := make([]export.ExportedClipInfo, 0, n)
	for i := 0; i < n; i++ {
		clips = append(clips, export.ExportedClipInfo{
			Path:            fmt.Sprintf("/out/clip_%03d_test.mp4", i+1),
			Description:     fmt.Sprintf("Highlight #%d (Scene %d)", i+1, i+1),
			TitleSuggestion: fmt.Sprintf("Highlight #%d [10s]", i+1),
		})
	}
	return clips
}

func testOptions(seed int64) Options {
	return Options{
		StartDate:    time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		PostsPerDay:  2,
		StartHour:    10,
		Platforms:    []string{"Instagram Reels", "YouTube Shorts"},
		BaseHashtags: []string{"#viral", "#highlights"},
		Rand:         rand.New(rand.NewSource(seed)),
	}
}

func TestGeneratePlanSchedule(t *testing.T) {
	// Five clips at two posts per day starting 10:00 land on
	// day1 10:00+13:00, day2 10:00+13:00, day3 10:00.
	items := GeneratePlan(testClips(5), testOptions(1))
	if len(items) != 5 {
		t.Fatalf("want 5 items, got %d", len(items))
	}

	want := []time.Time{
		time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 2, 13, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 10, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 3, 13, 0, 0, 0, time.UTC),
		time.Date(2026, time.March, 4, 10, 0, 0, 0, time.UTC),
	}
	for i, item := range items {
		if !item.PostAt.Equal(want[i]) {
			t.Errorf("item %d at %v, want %v", i, item.PostAt, want[i])
		}
		if item.ID == "" {
			t.Errorf("item %d has no ID", i)
		}
	}
}

func TestGeneratePlanRoundRobinPlatforms(t *testing.T) {
	items := GeneratePlan(testClips(4), testOptions(1))
	wantPlatforms := []string{"Instagram Reels", "YouTube Shorts", "Instagram Reels", "YouTube Shorts"}
	for i, item := range items {
		if item.Platform != wantPlatforms[i] {
			t.Errorf("item %d platform %q, want %q", i, item.Platform, wantPlatforms[i])
		}
	}
}

func TestGeneratePlanLateStartRollsOver(t *testing.T) {
	opts := testOptions(1)
	opts.PostsPerDay = 4
	opts.StartHour = 21

	items := GeneratePlan(testClips(3), opts)
	// 21:00 is fine, the next three-hour slot hits the late-evening
	// cutoff and moves to the next morning.
	if items[0].PostAt.Hour() != 21 {
		t.Fatalf("first post at %v", items[0].PostAt)
	}
	if items[1].PostAt.Day() != 3 || items[1].PostAt.Hour() != 21 {
		t.Fatalf("second post must roll to next day start hour, got %v", items[1].PostAt)
	}
}

func TestGeneratePlanSortedByPostAt(t *testing.T) {
	items := GeneratePlan(testClips(7), testOptions(1))
	for i := 1; i < len(items); i++ {
		if items[i].PostAt.Before(items[i-1].PostAt) {
			t.Fatalf("plan not sorted at %d: %v before %v", i, items[i].PostAt, items[i-1].PostAt)
		}
	}
}

func TestGeneratePlanHashtags(t *testing.T) {
	items := GeneratePlan(testClips(3), testOptions(1))
	for i, item := range items {
		if len(item.Hashtags) == 0 || len(item.Hashtags) > maxHashtags {
			t.Errorf("item %d has %d hashtags", i, len(item.Hashtags))
		}
		for _, tag := range item.Hashtags {
			if tag[0] != '#' {
				t.Errorf("tag %q lacks # prefix", tag)
			}
		}
	}
}

func TestGeneratePlanDeterministicUnderSeed(t *testing.T) {
	a := GeneratePlan(testClips(5), testOptions(42))
	b := GeneratePlan(testClips(5), testOptions(42))
	if len(a) != len(b) {
		t.Fatal("plans differ in length")
	}
	for i := range a {
		if !a[i].PostAt.Equal(b[i].PostAt) || a[i].Platform != b[i].Platform {
			t.Fatalf("schedule not deterministic at %d", i)
		}
		if fmt.Sprint(a[i].Hashtags) != fmt.Sprint(b[i].Hashtags) {
			t.Fatalf("hashtags not deterministic at %d: %v vs %v", i, a[i].Hashtags, b[i].Hashtags)
		}
	}
}

func TestPlanUpdateRemoveClear(t *testing.T) {
	plan := &Plan{Items: GeneratePlan(testClips(3), testOptions(1))}

	moved := plan.Items[0]
	moved.PostAt = plan.Items[2].PostAt.Add(time.Hour)
	if !plan.Update(moved) {
		t.Fatal("update of existing item failed")
	}
	if plan.Items[len(plan.Items)-1].ID != moved.ID {
		t.Fatal("updated item not re-sorted to its new slot")
	}
	if plan.Update(PlanItem{ID: "nope"}) {
		t.Fatal("update of unknown item must report false")
	}

	if !plan.Remove(moved.ID) {
		t.Fatal("remove of existing item failed")
	}
	if len(plan.Items) != 2 {
		t.Fatalf("want 2 items after remove, got %d", len(plan.Items))
	}
	if plan.Remove(moved.ID) {
		t.Fatal("second remove must report false")
	}

	plan.Clear()
	if len(plan.Items) != 0 {
		t.Fatal("clear left items behind")
	}
}
