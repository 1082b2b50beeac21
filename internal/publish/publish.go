package publish

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/kikiluvv/clipforge/pkg/util"
	"github.com/rs/zerolog"
)

// Known platform names.
const (
	PlatformReels  = "Instagram Reels"
	PlatformShorts = "YouTube Shorts"
	PlatformTikTok = "TikTok"
)

// Manager simulates platform publishing: authentication is tracked per
// platform and uploads are logged rather than sent anywhere. TikTok has
// no upload path and always rejects.
type Manager struct {
	mu     sync.Mutex
	logger zerolog.Logger
	authed map[string]bool
	delay  time.Duration
}

func NewManager(logger zerolog.Logger, delay time.Duration) *Manager {
	return &Manager{
		logger: logger.With().Str("component", "publish").Logger(),
		authed: make(map[string]bool),
		delay:  delay,
	}
}

// Authenticate marks a platform session as established.
func (m *Manager) Authenticate(platform string) error {
	switch platform {
	case PlatformReels, PlatformShorts, PlatformTikTok:
	default:
		return fmt.Errorf("unknown platform: %s", platform)
	}

	m.mu.Lock()
	m.authed[platform] = true
	m.mu.Unlock()

	m.logger.Info().Str("platform", platform).Msg("authenticated")
	return nil
}

// Authenticated reports whether a platform session exists.
func (m *Manager) Authenticated(platform string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.authed[platform]
}

// Upload pushes a clip to a platform. Simulated: validates inputs, waits
// the configured delay, logs the would-be post.
func (m *Manager) Upload(ctx context.Context, platform, clipPath, title, description string, tags []string) error {
	if platform == PlatformTikTok {
		return fmt.Errorf("TikTok upload is not supported, post manually")
	}
	if !m.Authenticated(platform) {
		return fmt.Errorf("not authenticated with %s", platform)
	}
	if !util.FileExists(clipPath) {
		return fmt.Errorf("clip not found: %s", clipPath)
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	m.logger.Info().
		Str("platform", platform).
		Str("clip", clipPath).
		Str("title", title).
		Strs("tags", tags).
		Msg("upload simulated")
	return nil
}
