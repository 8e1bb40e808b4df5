// Package models defines the core data structures for users and
// translation history records.
package models

import (
	"fmt"
	"time"
)

// Sentinel usernames for the non-credentialed sign-in paths.
const (
	// AnonymousUsername marks a session entered without an account.
	AnonymousUsername = "anonymous"
	// GoogleUsername marks a session signed in through the Google provider.
	GoogleUsername = "google_sign_in"
)

// User represents the current application user.
type User struct {
	// ID is the identifier assigned by the identity provider.
	// Empty until a sign-in path completes.
	ID string `json:"id"`
	// Username is the login name, or one of the sentinel usernames.
	Username string `json:"username"`
	// Password is the credential as entered, or a sentinel value.
	Password string `json:"password"`
}

// SignedIn reports whether an identity provider has assigned an id.
func (u User) SignedIn() bool {
	return u.ID != ""
}

// HistoryType identifies the input modality of a history record.
type HistoryType string

const (
	// TextHistory records a text-to-text translation.
	TextHistory HistoryType = "text"
	// VoiceHistory records a recording transcribed and translated.
	VoiceHistory HistoryType = "voice"
	// ImageHistory records an in-image text translation.
	ImageHistory HistoryType = "image"
)

// HistoryText is the payload of a text translation record.
type HistoryText struct {
	SourceText         string `json:"sourceText"`
	SourceLanguage     string `json:"sourceLanguage"`
	TranslatedText     string `json:"translatedText"`
	TranslatedLanguage string `json:"translatedLanguage"`
}

// HistoryVoice is the payload of a voice translation record.
// VoiceURI points at a local audio file whose lifetime is tied
// to the record.
type HistoryVoice struct {
	VoiceURI           string `json:"voiceUri"`
	TranslatedText     string `json:"translatedText"`
	TranslatedLanguage string `json:"translatedLanguage"`
}

// HistoryImage is the payload of an image translation record.
// Image holds the same encoded reference that was submitted, so
// history views can redisplay it.
type HistoryImage struct {
	Image              string `json:"image"`
	TranslatedText     string `json:"translatedText"`
	TranslatedLanguage string `json:"translatedLanguage"`
}

// History is one completed translation. Exactly one payload field
// matching Type is populated.
type History struct {
	// ID is a stable, globally unique identifier.
	ID string `json:"id"`
	// UID is the owning user's id. Set only when a signed-in
	// identity existed at the time of the translation.
	UID string `json:"uid,omitempty"`
	// Date is when the translation completed.
	Date time.Time `json:"date"`
	// Type is the input modality of the record.
	Type HistoryType `json:"type"`

	Text  *HistoryText  `json:"text,omitempty"`
	Voice *HistoryVoice `json:"voice,omitempty"`
	Image *HistoryImage `json:"image,omitempty"`
}

// Validate checks the type/payload coupling invariant: the payload
// matching Type is present and no other payload is populated.
func (h History) Validate() error {
	populated := 0
	if h.Text != nil {
		populated++
	}
	if h.Voice != nil {
		populated++
	}
	if h.Image != nil {
		populated++
	}
	if populated != 1 {
		return fmt.Errorf("history %s: expected exactly one payload, got %d", h.ID, populated)
	}

	switch h.Type {
	case TextHistory:
		if h.Text == nil {
			return fmt.Errorf("history %s: type %q without text payload", h.ID, h.Type)
		}
	case VoiceHistory:
		if h.Voice == nil {
			return fmt.Errorf("history %s: type %q without voice payload", h.ID, h.Type)
		}
	case ImageHistory:
		if h.Image == nil {
			return fmt.Errorf("history %s: type %q without image payload", h.ID, h.Type)
		}
	default:
		return fmt.Errorf("history %s: unknown type %q", h.ID, h.Type)
	}
	return nil
}
