// Package main runs the interactive pocket translator client: it wires
// configuration, logging, persistence, the state store and the remote
// API client, then drives a command shell.
package main

import (
	"bufio"
	"context"
	"crypto/cipher"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lingopocket/lingopocket/internal/config"
	"github.com/lingopocket/lingopocket/internal/kvstore"
	"github.com/lingopocket/lingopocket/internal/logger"
	"github.com/lingopocket/lingopocket/internal/media"
	"github.com/lingopocket/lingopocket/internal/models"
	"github.com/lingopocket/lingopocket/internal/openai"
	"github.com/lingopocket/lingopocket/internal/service"
	"github.com/lingopocket/lingopocket/internal/store"
)

var (
	version   string
	buildDate string
)

// localeFromEnv approximates device locale detection: the language part
// of LANG ("en_US.UTF-8" → "en").
func localeFromEnv() string {
	lang := os.Getenv("LANG")
	if lang == "" {
		return ""
	}
	if i := strings.IndexAny(lang, "_."); i > 0 {
		lang = lang[:i]
	}
	return strings.ToLower(lang)
}

// repl runs the interactive shell loop, accepting translation and
// account commands.
func repl(ctx context.Context, st *store.Store, translator *service.Translator, rec *media.Store) {
	scanner := bufio.NewScanner(os.Stdin)

	for {
		fmt.Print("lingopocket> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		args := strings.Fields(line)
		if len(args) == 0 {
			continue
		}
		switch args[0] {
		case "help":
			fmt.Println("Available commands: help, login <user> <pass>, google, anon, locale <code>,")
			fmt.Println("  translate <src> <tgt> <text...>, image <file> <tgt>, voice <file> <tgt>,")
			fmt.Println("  speak <lang> <text...>, history, delete <id>, exit")
		case "login":
			if len(args) < 3 {
				fmt.Println("Usage: login <user> <pass>")
				continue
			}
			// The identity provider is external; it hands back an id.
			u := models.User{ID: uuid.NewString(), Username: args[1], Password: args[2]}
			if err := st.SetUser(ctx, u); err != nil {
				fmt.Println("failed to save user:", err)
				continue
			}
			fmt.Println("Signed in as", u.Username)
		case "google":
			u := models.User{
				ID:       uuid.NewString(),
				Username: models.GoogleUsername,
				Password: models.GoogleUsername,
			}
			if err := st.SetUser(ctx, u); err != nil {
				fmt.Println("failed to save user:", err)
				continue
			}
			fmt.Println("Signed in with Google")
		case "anon":
			u := models.User{
				Username: models.AnonymousUsername,
				Password: models.AnonymousUsername,
			}
			if err := st.SetUser(ctx, u); err != nil {
				fmt.Println("failed to save user:", err)
				continue
			}
			fmt.Println("Continuing anonymously (history will not be kept)")
		case "locale":
			if len(args) < 2 {
				fmt.Println("Current locale:", st.Locale())
				continue
			}
			if err := st.SetLocale(ctx, args[1]); err != nil {
				fmt.Println("failed to save locale:", err)
			}
		case "translate":
			if len(args) < 4 {
				fmt.Println("Usage: translate <src|auto> <tgt> <text...>")
				continue
			}
			st.SetLoading(true)
			res := translator.TranslateText(ctx, strings.Join(args[3:], " "), args[1], args[2])
			st.SetLoading(false)
			printResult(res)
		case "image":
			if len(args) < 3 {
				fmt.Println("Usage: image <file> <tgt>")
				continue
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				fmt.Println("failed to read image:", err)
				continue
			}
			st.SetLoading(true)
			res := translator.TranslateImage(ctx, base64.StdEncoding.EncodeToString(data), args[2])
			st.SetLoading(false)
			printResult(res)
		case "voice":
			if len(args) < 3 {
				fmt.Println("Usage: voice <file> <tgt>")
				continue
			}
			data, err := os.ReadFile(args[1])
			if err != nil {
				fmt.Println("failed to read recording:", err)
				continue
			}
			// The recording moves into the app's directory, where its
			// lifetime is tied to the history record.
			path, err := rec.SaveRecording(data)
			if err != nil {
				fmt.Println("failed to store recording:", err)
				continue
			}
			st.SetLoading(true)
			res := translator.TranslateAudio(ctx, path, args[2])
			st.SetLoading(false)
			if res.OK {
				fmt.Println("Transcript:", res.EnglishText)
			}
			printResult(res)
		case "speak":
			if len(args) < 3 {
				fmt.Println("Usage: speak <lang> <text...>")
				continue
			}
			res := translator.TextToSpeech(ctx, strings.Join(args[2:], " "), args[1])
			if !res.OK {
				fmt.Println(res.Message)
				continue
			}
			out := filepath.Join(rec.Dir(), "speech-"+uuid.NewString()+".mp3")
			if err := os.WriteFile(out, res.Audio, 0o644); err != nil {
				fmt.Println("failed to write audio:", err)
				continue
			}
			fmt.Println("Audio written to", out)
		case "history":
			records := st.History()
			if len(records) == 0 {
				fmt.Println("No history yet")
				continue
			}
			for _, h := range records {
				b, _ := json.MarshalIndent(h, "", "  ")
				fmt.Println(string(b))
			}
		case "delete":
			if len(args) < 2 {
				fmt.Println("Usage: delete <id>")
				continue
			}
			removed, err := st.RemoveHistory(ctx, args[1])
			if err != nil {
				fmt.Println("failed to delete record:", err)
				continue
			}
			if removed {
				fmt.Println("Record deleted")
			} else {
				fmt.Println("Record not found")
			}
		case "exit":
			fmt.Println("Bye")
			return
		default:
			fmt.Println("Unknown command. Type 'help' for a list of commands.")
		}
	}
}

func printResult(res service.Result) {
	if !res.OK {
		fmt.Println(res.Message)
		return
	}
	fmt.Println(res.TranslatedText)
}

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", orDefault(version, "N/A"))
	fmt.Printf("Build date: %s\n", orDefault(buildDate, "N/A"))

	lg := logger.New()
	if err := lg.Init(options.LogLevel); err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer func() { _ = lg.Log.Sync() }()
	zapLogger := lg.Log

	ctx := context.Background()

	// Pick the persistence backend: local state file by default, a
	// PostgreSQL kv table when a DSN is configured.
	var kv kvstore.Store
	if options.DatabaseDSN != "" {
		db, err := kvstore.InitPostgres(options.DatabaseDSN)
		if err != nil {
			zapLogger.Fatal("cannot init database", zap.Error(err))
		}
		defer db.Close()
		kv = kvstore.NewPostgresStore(db)
	} else {
		var aead cipher.AEAD
		if options.Passphrase != "" {
			var err error
			aead, err = kvstore.NewAEADFromPassphrase(options.Passphrase)
			if err != nil {
				zapLogger.Fatal("cannot init store encryption", zap.Error(err))
			}
		}
		fileStore, err := kvstore.NewFileStore(options.StorePath, aead, zapLogger)
		if err != nil {
			zapLogger.Fatal("cannot open state file", zap.Error(err))
		}
		kv = fileStore
	}

	recordings, err := media.NewStore(options.RecordingsDir, zapLogger)
	if err != nil {
		zapLogger.Fatal("cannot init recordings dir", zap.Error(err))
	}

	st := store.New(kv, recordings, zapLogger)
	if err := st.Hydrate(ctx); err != nil {
		zapLogger.Fatal("cannot hydrate state", zap.Error(err))
	}

	// Seed the locale from the environment once, if nothing is stored.
	if st.Locale() == "" {
		if loc := localeFromEnv(); loc != "" {
			if err := st.SetLocale(ctx, loc); err != nil {
				zapLogger.Warn("failed to persist detected locale", zap.Error(err))
			}
		}
	}

	recordings.StartOrphanSweeper(ctx, st, time.Hour, 24*time.Hour)

	api := openai.New(openai.Config{
		BaseURL:     options.APIBaseURL,
		APIKey:      options.APIKey,
		TextModel:   options.TextModel,
		VisionModel: options.VisionModel,
		AudioModel:  options.AudioModel,
		SpeechModel: options.SpeechModel,
	}, zapLogger)

	translator := service.NewTranslator(api, st, zapLogger)

	repl(ctx, st, translator, recordings)
}

// orDefault returns x if it is non-empty, otherwise def.
// Same behavior as cmp.Or (Go 1.22+), kept local for Go 1.21 compatibility.
func orDefault(x, def string) string {
	if x != "" {
		return x
	}
	return def
}
