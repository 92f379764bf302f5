package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerTextOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Get().Info(context.Background(), "simulation finished", String("season", "2024"), Int("trials", 5000))

	out := buf.String()
	if !strings.Contains(out, "simulation finished") {
		t.Errorf("missing message in %q", out)
	}
	if !strings.Contains(out, "trials=5000") {
		t.Errorf("missing field in %q", out)
	}
	if !strings.Contains(out, "logger_test.go") {
		t.Errorf("missing caller source in %q", out)
	}
}

func TestLoggerJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf), WithFormat(FormatJSON)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}

	Named("rating").Warn(context.Background(), "undefined ratings", Int64("count", 96), Duration("took", time.Second))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("output is not json: %v (%q)", err, buf.String())
	}
	if rec["component"] != "rating" {
		t.Errorf("expected component=rating, got %v", rec["component"])
	}
	if rec["count"] != float64(96) {
		t.Errorf("expected count=96, got %v", rec["count"])
	}
}

func TestLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithWriter(&buf)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	ctx := context.Background()

	Get().Debug(ctx, "hidden")
	if buf.Len() != 0 {
		t.Errorf("debug should be filtered at info level, got %q", buf.String())
	}

	if err := SetLevelString("debug"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Debug(ctx, "visible")
	if !strings.Contains(buf.String(), "visible") {
		t.Errorf("debug should be emitted at debug level, got %q", buf.String())
	}

	if err := SetLevelString("verbose"); err == nil {
		t.Error("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

type failingSink struct{ bytes.Buffer }

func (*failingSink) Sync() error { return errors.New("disk gone") }

func TestSync(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seasonsim.log")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	if err := Init(WithWriter(f)); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	Get().Info(context.Background(), "summary saved", Int64("replaced", 32))
	if err := Sync(); err != nil {
		t.Fatalf("sync file: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "replaced=32") {
		t.Errorf("missing synced entry in %q", data)
	}

	if err := Init(WithWriter(&failingSink{})); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if err := Sync(); err == nil {
		t.Error("expected sync error to surface")
	}

	if err := Init(WithWriter(&bytes.Buffer{})); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if err := Sync(); err != nil {
		t.Errorf("plain writers need no sync: %v", err)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Error(context.Background(), "dropped")
	if l.Named("x") == nil {
		t.Fatal("named nop logger is nil")
	}
}
