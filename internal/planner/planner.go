package planner

import (
	"math/rand"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kikiluvv/clipforge/internal/export"
)

const (
	// maxHashtags caps the hashtag set attached to a single post.
	maxHashtags = 5
	// intraDayGap spaces same-day posts apart.
	intraDayGap = 3 * time.Hour
	// rolloverHour pushes any later same-day post to the next morning.
	rolloverHour = 23
)

// PlanItem is one scheduled post.
type PlanItem struct {
	ID          string    `json:"id"`
	PostAt      time.Time `json:"post_at"`
	Platform    string    `json:"platform"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Hashtags    []string  `json:"hashtags"`
	ClipPath    string    `json:"clip_path"`
}

// Options tune plan generation. Rand drives hashtag sampling; a seeded
// source makes the plan reproducible.
type Options struct {
	StartDate    time.Time
	PostsPerDay  int
	StartHour    int
	Platforms    []string
	BaseHashtags []string
	Rand         *rand.Rand
}

// DefaultPlatforms is the round-robin rotation used when none is configured.
var DefaultPlatforms = []string{"Instagram Reels", "YouTube Shorts", "TikTok"}

func (o Options) withFallbacks() Options {
	if o.PostsPerDay <= 0 {
		o.PostsPerDay = 1
	}
	if o.StartHour <= 0 || o.StartHour >= 24 {
		o.StartHour = 10
	}
	if len(o.Platforms) == 0 {
		o.Platforms = DefaultPlatforms
	}
	if o.StartDate.IsZero() {
		o.StartDate = time.Now()
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return o
}

// GeneratePlan schedules one post per exported clip. Platforms rotate
// round-robin; the first post of each day lands at StartHour and later
// same-day posts follow at three-hour intervals, rolling over to the
// next morning once the slot reaches late evening. The result is sorted
// by post time.
func GeneratePlan(clips []export.ExportedClipInfo, opts Options) []PlanItem {
	opts = opts.withFallbacks()

	items := make([]PlanItem, 0, len(clips))
	day := opts.StartDate
	postAt := atHour(day, opts.StartHour)
	postsToday := 0

	for i, clip := range clips {
		if postsToday >= opts.PostsPerDay || postAt.Hour() >= rolloverHour || postAt.Hour() < opts.StartHour {
			day = day.AddDate(0, 0, 1)
			postAt = atHour(day, opts.StartHour)
			postsToday = 0
		}

		items = append(items, PlanItem{
			ID:          uuid.NewString(),
			PostAt:      postAt,
			Platform:    opts.Platforms[i%len(opts.Platforms)],
			Title:       clip.TitleSuggestion,
			Description: clip.Description,
			Hashtags:    pickHashtags(opts.Rand, opts.BaseHashtags, clip.Description),
			ClipPath:    clip.Path,
		})

		postsToday++
		postAt = postAt.Add(intraDayGap)
	}

	sortByPostAt(items)
	return items
}

func atHour(day time.Time, hour int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
}

var reTagWord = regexp.MustCompile(`[a-zA-Z0-9]{4,}`)

// pickHashtags unions the configured base tags with tags derived from
// the clip description, then samples down to the cap.
func pickHashtags(rng *rand.Rand, base []string, description string) []string {
	seen := make(map[string]struct{})
	var pool []string
	add := func(tag string) {
		tag = strings.ToLower(strings.TrimPrefix(tag, "#"))
		if tag == "" {
			return
		}
		if _, ok := seen[tag]; ok {
			return
		}
		seen[tag] = struct{}{}
		pool = append(pool, "#"+tag)
	}

	for _, tag := range base {
		add(tag)
	}
	for _, word := range reTagWord.FindAllString(description, -1) {
		add(word)
	}

	sort.Strings(pool)
	if len(pool) <= maxHashtags {
		return pool
	}

	picked := make([]string, 0, maxHashtags)
	for _, idx := range rng.Perm(len(pool))[:maxHashtags] {
		picked = append(picked, pool[idx])
	}
	sort.Strings(picked)
	return picked
}

// Plan is a mutable schedule kept sorted by post time.
type Plan struct {
	Items []PlanItem
}

// Update replaces the item with the same ID, reporting whether it existed.
func (p *Plan) Update(item PlanItem) bool {
	for i := range p.Items {
		if p.Items[i].ID == item.ID {
			p.Items[i] = item
			sortByPostAt(p.Items)
			return true
		}
	}
	return false
}

// Remove drops the item with the given ID, reporting whether it existed.
func (p *Plan) Remove(id string) bool {
	for i := range p.Items {
		if p.Items[i].ID == id {
			p.Items = append(p.Items[:i], p.Items[i+1:]...)
			return true
		}
	}
	return false
}

// Clear empties the plan.
func (p *Plan) Clear() {
	p.Items = nil
}

func sortByPostAt(items []PlanItem) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].PostAt.Before(items[j].PostAt)
	})
}
