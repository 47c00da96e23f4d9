package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go-casting-scout/internal/classifier"
	"go-casting-scout/internal/digest"
	"go-casting-scout/internal/listing"
	"go-casting-scout/internal/pipeline"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var day = time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

func buildDigest(t *testing.T, n int) digest.Digest {
	t.Helper()
	var ls []listing.Listing
	for i := range n {
		ls = append(ls, listing.Listing{
			Title:       "Lead role " + strings.Repeat("x", i%7),
			Source:      "craigslist",
			URL:         "https://example.com/" + strings.Repeat("y", i+1),
			Location:    "Burbank, CA",
			RoleType:    "principal",
			Description: strings.Repeat("Paid shoot <with> details. ", 8),
		})
	}
	res := &pipeline.Result{Groups: []classifier.Group{{Category: listing.Principal, Listings: ls}}, Listings: ls, Count: n}
	d, err := digest.Build(res, []string{"reddit"}, day)
	require.NoError(t, err)
	return d
}

type stubNotifier struct {
	name string
	err  error
	sent int
}

func (s *stubNotifier) Name() string { return s.name }

func (s *stubNotifier) Send(context.Context, digest.Digest) error {
	s.sent++
	return s.err
}

func TestMulti(t *testing.T) {
	d := buildDigest(t, 1)

	t.Run("one success is enough", func(t *testing.T) {
		bad := &stubNotifier{name: "telegram", err: errors.New("401")}
		good := &stubNotifier{name: "email"}
		m := NewMulti(nil, bad, good)

		assert.NoError(t, m.Send(context.Background(), d))
		assert.Equal(t, 1, bad.sent)
		assert.Equal(t, 1, good.sent)
		assert.Equal(t, "telegram+email", m.Name())
	})

	t.Run("all fail", func(t *testing.T) {
		m := NewMulti(nil, &stubNotifier{name: "a", err: errors.New("down")}, &stubNotifier{name: "b", err: errors.New("timeout")})
		err := m.Send(context.Background(), d)
		assert.ErrorContains(t, err, "a: down")
		assert.ErrorContains(t, err, "b: timeout")
	})

	t.Run("empty", func(t *testing.T) {
		assert.ErrorIs(t, NewMulti(nil).Send(context.Background(), d), ErrNoChannel)
	})
}

func TestChunk(t *testing.T) {
	blocks := []string{"aaaa", "bbbb", "", "cccc"}
	assert.Equal(t, []string{"aaaa\n\nbbbb", "cccc"}, chunk(blocks, "\n\n", 10))
	assert.Equal(t, []string{"aaaa\n\nbbbb\n\ncccc"}, chunk(blocks, "\n\n", 100))

	long := strings.Repeat("é", 10) // 20 bytes
	parts := chunk([]string{long}, "\n", 7)
	for _, p := range parts {
		assert.LessOrEqual(t, len(p), 7)
		assert.True(t, strings.HasPrefix(p, "é"), "splits land on rune boundaries")
	}
	assert.Equal(t, long, strings.Join(parts, ""))
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	d := buildDigest(t, 2)
	require.NoError(t, NewConsole(&buf).Send(context.Background(), d))
	assert.True(t, strings.HasPrefix(buf.String(), "Subject: "+d.Subject+"\n\n"))
	assert.Contains(t, buf.String(), "1. Lead role")
}

func TestDiscord(t *testing.T) {
	var (
		mu    sync.Mutex
		posts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p discordPayload
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		mu.Lock()
		posts = append(posts, p.Content)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	d := buildDigest(t, 25)
	require.NoError(t, NewDiscord(srv.URL).Send(context.Background(), d))

	require.Greater(t, len(posts), 1, "a long digest is split")
	for _, p := range posts {
		assert.LessOrEqual(t, len(p), 2000)
	}
	assert.True(t, strings.HasPrefix(posts[0], "**"+d.Subject+"**"))
	assert.Contains(t, strings.Join(posts, "\n\n"), "**25. Lead role")
}

func TestDiscordError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message": "Unknown Webhook", "code": 10015}`))
	}))
	defer srv.Close()

	err := NewDiscord(srv.URL).Send(context.Background(), buildDigest(t, 1))
	assert.ErrorContains(t, err, "Unknown Webhook")
}

func TestTelegramMessages(t *testing.T) {
	d := buildDigest(t, 40)
	msgs := TelegramMessages(d)

	require.Greater(t, len(msgs), 1)
	for _, m := range msgs {
		assert.LessOrEqual(t, len(m), TelegramLimit)
		assert.Equal(t, strings.Count(m, "<b>"), strings.Count(m, "</b>"), "entries are not cut mid-tag")
	}
	joined := strings.Join(msgs, "\n\n")
	assert.Contains(t, joined, "&lt;with&gt;")
	assert.Contains(t, joined, "Unavailable today: reddit")

	empty, err := digest.Build(&pipeline.Result{}, nil, day)
	require.NoError(t, err)
	msgs = TelegramMessages(empty)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "No new casting opportunities")
}

func TestTelegramSend(t *testing.T) {
	var (
		mu    sync.Mutex
		texts []string
		modes []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasSuffix(r.URL.Path, "/getMe"):
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"Scout","username":"scout_bot"}}`)
		case strings.HasSuffix(r.URL.Path, "/sendMessage"):
			assert.NoError(t, r.ParseForm())
			mu.Lock()
			texts = append(texts, r.PostForm.Get("text"))
			modes = append(modes, r.PostForm.Get("parse_mode"))
			mu.Unlock()
			io.WriteString(w, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":42,"type":"private"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	bot, err := tgbotapi.NewBotAPIWithClient("TOKEN", srv.URL+"/bot%s/%s", srv.Client())
	require.NoError(t, err)

	d := buildDigest(t, 3)
	require.NoError(t, NewTelegramWithBot(bot, 42).Send(context.Background(), d))

	require.Len(t, texts, 1)
	assert.Equal(t, tgbotapi.ModeHTML, modes[0])
	assert.Contains(t, texts[0], d.Subject)
}

func TestEmailRetriesOnce(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/mail/send", r.URL.Path)
		assert.Equal(t, "Bearer SG.key", r.Header.Get("Authorization"))
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	e := NewEmail(EmailConfig{APIKey: "SG.key", From: "scout@example.com", To: "me@example.com", RetryDelay: time.Millisecond, Host: srv.URL}, nil)
	require.NoError(t, e.Send(context.Background(), buildDigest(t, 1)))
	assert.Equal(t, int32(2), calls.Load())
}

func TestEmailGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	e := NewEmail(EmailConfig{APIKey: "bad", From: "a@example.com", To: "b@example.com", RetryDelay: time.Millisecond, Host: srv.URL}, nil)
	err := e.Send(context.Background(), buildDigest(t, 1))
	assert.ErrorContains(t, err, "retry failed")
	assert.Equal(t, int32(2), calls.Load())
}
