package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
)

func TestInit(t *testing.T) {
	defer func() {
		Logger = zerolog.Nop()
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}()

	var buf bytes.Buffer
	Init("warn", &buf)

	Logger.Info().Msg("hidden")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn, got %q", buf.String())
	}

	cl := Component("api")
	cl.Warn().Msg("visible")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("unmarshal log line: %v (%q)", err, buf.String())
	}
	if line["service"] != "agora" {
		t.Errorf("service = %v", line["service"])
	}
	if line["component"] != "api" {
		t.Errorf("component = %v", line["component"])
	}
	if line["message"] != "visible" {
		t.Errorf("message = %v", line["message"])
	}
}

func TestInitUnknownLevel(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.DebugLevel)
	Init("loud", &bytes.Buffer{})
	if zerolog.GlobalLevel() != zerolog.InfoLevel {
		t.Errorf("level = %v, want info", zerolog.GlobalLevel())
	}
	Logger = zerolog.Nop()
}

func TestSanitizePath(t *testing.T) {
	cases := map[string]string{
		"/api/debates/65f1a2b3c4d5e6f7a8b9c0d1/arguments/with-votes": "/api/debates/:debateId/arguments/with-votes",
		"/api/debates/categories":                                   "/api/debates/categories",
		"/api/arguments/65f1a2b3c4d5e6f7a8b9c0d1/vote":               "/api/arguments/:argumentId/vote",
		"/api/users/leaderboard":                                    "/api/users/leaderboard",
		"/api/debates":                                              "/api/debates",
	}
	for in, want := range cases {
		if got := SanitizePath(in); got != want {
			t.Errorf("SanitizePath(%q) = %q, want %q", in, got, want)
		}
	}
}
