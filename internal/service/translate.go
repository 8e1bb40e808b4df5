// Package service provides the translation orchestration layer: it
// drives the remote API for each input modality, records successful
// translations in the bounded history and converts every expected
// failure into a result value instead of an error.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lingopocket/lingopocket/internal/models"
)

// AutoDetect is the source-language sentinel asking the remote engine
// to detect the language itself.
const AutoDetect = "auto"

// ImageUnreadableMessage is the fixed sentinel the remote engine returns
// when no text can be read from a submitted image.
const ImageUnreadableMessage = "Texts in the image could not be read"

// RemoteAPI defines the remote translation capability the orchestration
// layer depends on.
type RemoteAPI interface {
	// Complete runs a text completion with a system instruction.
	Complete(ctx context.Context, system, user string) (string, error)
	// CompleteImage runs a vision completion over a base64 JPEG.
	CompleteImage(ctx context.Context, prompt, imageB64 string) (string, error)
	// TranslateAudio transcribes the audio file at path.
	TranslateAudio(ctx context.Context, path string) (string, error)
	// Speech synthesizes input into audio bytes.
	Speech(ctx context.Context, input string) ([]byte, error)
}

// HistoryStore defines the single history mutation the orchestration
// layer performs.
type HistoryStore interface {
	// AppendWithEviction appends rec, evicting the oldest record at the
	// bound. Returns false when the record was dropped for lacking an
	// owning user id.
	AppendWithEviction(ctx context.Context, rec models.History) (bool, error)
}

// FailureKind classifies a failed result.
type FailureKind string

const (
	// FailureNone marks a successful result.
	FailureNone FailureKind = ""
	// FailureValidation marks bad input caught before any remote call.
	FailureValidation FailureKind = "validation"
	// FailureRemote marks a failed remote exchange.
	FailureRemote FailureKind = "remote"
)

// Result is the outcome of a translation operation. Expected failures
// are reported here, never as a returned error.
type Result struct {
	OK             bool
	Message        string
	TranslatedText string
	// EnglishText is the intermediate transcript of a voice translation,
	// surfaced for reuse. Empty for other modalities.
	EnglishText string
	Kind        FailureKind
	Err         error
}

// SpeechResult is the outcome of a speech synthesis call.
type SpeechResult struct {
	OK      bool
	Message string
	Audio   []byte
	Kind    FailureKind
	Err     error
}

// Translator orchestrates remote calls and history bookkeeping.
type Translator struct {
	api     RemoteAPI
	history HistoryStore
	log     *zap.Logger
}

// NewTranslator constructs a Translator over the given remote API and
// history store.
func NewTranslator(api RemoteAPI, history HistoryStore, log *zap.Logger) *Translator {
	return &Translator{api: api, history: history, log: log}
}

func failure(kind FailureKind, msg string, err error) Result {
	return Result{Message: msg, Kind: kind, Err: err}
}

// record appends a completed translation to the history. Persistence
// problems are logged and swallowed: the translation itself succeeded
// and is still returned to the caller.
func (t *Translator) record(ctx context.Context, rec models.History) {
	added, err := t.history.AppendWithEviction(ctx, rec)
	if err != nil {
		t.log.Error("failed to persist history record",
			zap.String("id", rec.ID), zap.Error(err))
	}
	if !added {
		t.log.Debug("history record dropped, no signed-in user", zap.String("id", rec.ID))
	}
}

// TranslateText translates text into targetLang. sourceLang may be the
// AutoDetect sentinel. Bad input fails before any remote call is made.
func (t *Translator) TranslateText(ctx context.Context, text, sourceLang, targetLang string) Result {
	if text == "" {
		return failure(FailureValidation, "nothing to translate", nil)
	}
	if sourceLang == "" || targetLang == "" {
		return failure(FailureValidation, "source and target languages are required", nil)
	}
	if sourceLang == targetLang {
		return failure(FailureValidation, "source and target languages must differ", nil)
	}

	var system string
	if sourceLang == AutoDetect {
		system = fmt.Sprintf("You are a translator. Detect the language of the text first, then translate it to %s. Only respond with the translated text, nothing else.", targetLang)
	} else {
		system = fmt.Sprintf("You are a translator. Translate the following text from %s to %s. Only respond with the translated text, nothing else.", sourceLang, targetLang)
	}

	translated, err := t.api.Complete(ctx, system, text)
	if err != nil {
		t.log.Error("text translation failed", zap.Error(err))
		return failure(FailureRemote, "Translation error", err)
	}

	t.record(ctx, models.History{
		ID:   uuid.NewString(),
		Date: time.Now(),
		Type: models.TextHistory,
		Text: &models.HistoryText{
			SourceText:         text,
			SourceLanguage:     sourceLang,
			TranslatedText:     translated,
			TranslatedLanguage: targetLang,
		},
	})

	return Result{OK: true, Message: "Translation successful", TranslatedText: translated}
}

// TranslateImage translates the text found in a base64-encoded JPEG into
// targetLang. The remote engine answers with ImageUnreadableMessage when
// it cannot read any text; that still counts as a successful exchange.
func (t *Translator) TranslateImage(ctx context.Context, imageB64, targetLang string) Result {
	if imageB64 == "" {
		return failure(FailureValidation, "no image provided", nil)
	}
	if targetLang == "" {
		return failure(FailureValidation, "target language is required", nil)
	}

	prompt := fmt.Sprintf("Translate the text in this image to %s. Only provide the translated text, nothing else. If the translation cannot be done, return the message %q.", targetLang, ImageUnreadableMessage)

	translated, err := t.api.CompleteImage(ctx, prompt, imageB64)
	if err != nil {
		t.log.Error("image translation failed", zap.Error(err))
		return failure(FailureRemote, "Translation error", err)
	}

	t.record(ctx, models.History{
		ID:   uuid.NewString(),
		Date: time.Now(),
		Type: models.ImageHistory,
		Image: &models.HistoryImage{
			Image:              "data:image/jpeg;base64," + imageB64,
			TranslatedText:     translated,
			TranslatedLanguage: targetLang,
		},
	})

	return Result{OK: true, Message: "Translation successful", TranslatedText: translated}
}

// TranslateAudio transcribes the recording at audioPath, then translates
// the transcript into targetLang. On success the record takes ownership
// of the audio file; on failure the file is left for the caller.
func (t *Translator) TranslateAudio(ctx context.Context, audioPath, targetLang string) Result {
	if audioPath == "" {
		return failure(FailureValidation, "no recording provided", nil)
	}
	if targetLang == "" {
		return failure(FailureValidation, "target language is required", nil)
	}

	englishText, err := t.api.TranslateAudio(ctx, audioPath)
	if err != nil {
		t.log.Error("audio transcription failed", zap.Error(err))
		return failure(FailureRemote, "Translation error", err)
	}

	system := fmt.Sprintf("You are a translator. Translate the following text to %s. Only respond with the translated text, nothing else.", targetLang)
	translated, err := t.api.Complete(ctx, system, englishText)
	if err != nil {
		t.log.Error("transcript translation failed", zap.Error(err))
		return failure(FailureRemote, "Translation error", err)
	}

	t.record(ctx, models.History{
		ID:   uuid.NewString(),
		Date: time.Now(),
		Type: models.VoiceHistory,
		Voice: &models.HistoryVoice{
			VoiceURI:           audioPath,
			TranslatedText:     translated,
			TranslatedLanguage: targetLang,
		},
	})

	return Result{
		OK:             true,
		Message:        "Translation successful",
		TranslatedText: translated,
		EnglishText:    englishText,
	}
}

// TextToSpeech synthesizes text so the user can hear a translation read
// aloud. Pure request/response; history is not touched.
func (t *Translator) TextToSpeech(ctx context.Context, text, lang string) SpeechResult {
	if text == "" {
		return SpeechResult{Message: "nothing to read aloud", Kind: FailureValidation}
	}

	audio, err := t.api.Speech(ctx, text)
	if err != nil {
		t.log.Error("speech synthesis failed", zap.String("lang", lang), zap.Error(err))
		return SpeechResult{Message: "An error occurred while generating the audio", Kind: FailureRemote, Err: err}
	}
	return SpeechResult{OK: true, Message: "Translation successful", Audio: audio}
}
