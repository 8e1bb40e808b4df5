package models

import (
	"testing"
	"time"
)

func TestValidate_TextRecord(t *testing.T) {
	h := History{
		ID:   "1",
		Date: time.Now(),
		Type: TextHistory,
		Text: &HistoryText{
			SourceText:         "hello",
			SourceLanguage:     "en",
			TranslatedText:     "bonjour",
			TranslatedLanguage: "fr",
		},
	}
	if err := h.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
}

func TestValidate_PayloadMismatch(t *testing.T) {
	h := History{
		ID:    "2",
		Date:  time.Now(),
		Type:  TextHistory,
		Voice: &HistoryVoice{VoiceURI: "a.m4a"},
	}
	if err := h.Validate(); err == nil {
		t.Error("expected error for text record with voice payload")
	}
}

func TestValidate_MultiplePayloads(t *testing.T) {
	h := History{
		ID:    "3",
		Date:  time.Now(),
		Type:  VoiceHistory,
		Voice: &HistoryVoice{VoiceURI: "a.m4a"},
		Text:  &HistoryText{SourceText: "x"},
	}
	if err := h.Validate(); err == nil {
		t.Error("expected error for record with two payloads")
	}
}

func TestValidate_NoPayload(t *testing.T) {
	h := History{ID: "4", Date: time.Now(), Type: ImageHistory}
	if err := h.Validate(); err == nil {
		t.Error("expected error for record without payload")
	}
}

func TestValidate_UnknownType(t *testing.T) {
	h := History{
		ID:   "5",
		Date: time.Now(),
		Type: HistoryType("video"),
		Text: &HistoryText{SourceText: "x"},
	}
	if err := h.Validate(); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestUserSignedIn(t *testing.T) {
	if (User{Username: AnonymousUsername}).SignedIn() {
		t.Error("user without id reported as signed in")
	}
	if !(User{ID: "uid-1", Username: "bob"}).SignedIn() {
		t.Error("user with id reported as not signed in")
	}
}
