package model

import (
	"net/url"
	"path"
	"strings"
)

// MediaKind is the rendering branch a widget reference resolves to.
type MediaKind string

const (
	MediaImage MediaKind = "image"
	MediaVideo MediaKind = "video"
	MediaWeb   MediaKind = "web"
)

// MediaRef is the classified form of a widget name.
type MediaRef struct {
	Kind MediaKind `json:"kind"`
	Ref  string    `json:"ref"`
	// VideoID is set for MediaVideo references.
	VideoID string `json:"video_id,omitempty"`
	// Broken marks references that cannot resolve to any resource; views
	// render an error tile for them.
	Broken bool `json:"broken,omitempty"`
}

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true,
	".webp": true, ".svg": true, ".bmp": true, ".avif": true,
}

// ClassifyMediaReference decides how a widget name is rendered. It is a
// pure function of the string and never fails.
func ClassifyMediaReference(name string) MediaRef {
	ref := strings.TrimSpace(name)
	if ref == "" {
		return MediaRef{Kind: MediaWeb, Ref: ref, Broken: true}
	}

	u, err := url.Parse(ref)
	isHTTP := err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""

	if isHTTP {
		if id := youTubeID(u); id != "" {
			return MediaRef{Kind: MediaVideo, Ref: ref, VideoID: id}
		}
		if imageExtensions[strings.ToLower(path.Ext(u.Path))] {
			return MediaRef{Kind: MediaImage, Ref: ref}
		}
		return MediaRef{Kind: MediaWeb, Ref: ref}
	}
	if err != nil && strings.Contains(ref, "://") {
		return MediaRef{Kind: MediaWeb, Ref: ref, Broken: true}
	}

	// Anything that is not a URL is a local asset path.
	return MediaRef{Kind: MediaImage, Ref: ref}
}

// Classify is a convenience wrapper around ClassifyMediaReference.
func (w MediaWidget) Classify() MediaRef {
	return ClassifyMediaReference(w.Name)
}

func youTubeID(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
	host = strings.TrimPrefix(host, "m.")
	switch host {
	case "youtu.be":
		return firstSegment(u.Path)
	case "youtube.com", "youtube-nocookie.com":
		if v := u.Query().Get("v"); v != "" {
			return v
		}
		p := strings.Trim(u.Path, "/")
		for _, prefix := range []string{"embed/", "shorts/", "live/", "v/"} {
			if strings.HasPrefix(p, prefix) {
				return firstSegment(strings.TrimPrefix(p, prefix))
			}
		}
	}
	return ""
}

func firstSegment(p string) string {
	p = strings.Trim(p, "/")
	if i := strings.IndexByte(p, '/'); i >= 0 {
		p = p[:i]
	}
	return p
}
