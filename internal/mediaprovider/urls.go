package mediaprovider

import (
	"fmt"
	"strings"
)

// URLs derives public playback and imagery locations from a playback ID. The
// provider serves these directly off its CDNs; only the thumbnail is copied
// into application-owned storage.
type URLs struct {
	ImageCDNBase  string
	StreamCDNBase string
}

// Thumbnail returns the CDN location of the poster frame for a playback ID.
func (u URLs) Thumbnail(playbackID string) string {
	return fmt.Sprintf("%s/%s/thumbnail.jpg", strings.TrimSuffix(u.ImageCDNBase, "/"), playbackID)
}

// AnimatedPreview returns the CDN location of the hover-preview GIF.
func (u URLs) AnimatedPreview(playbackID string) string {
	return fmt.Sprintf("%s/%s/animated.gif", strings.TrimSuffix(u.ImageCDNBase, "/"), playbackID)
}

// HLS returns the streaming manifest location for a playback ID.
func (u URLs) HLS(playbackID string) string {
	return fmt.Sprintf("%s/%s.m3u8", strings.TrimSuffix(u.StreamCDNBase, "/"), playbackID)
}
