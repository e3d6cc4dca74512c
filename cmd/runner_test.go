package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songvote/internal/models"
	"github.com/desertthunder/songvote/internal/repositories"
	"github.com/desertthunder/songvote/internal/shared"
	tu "github.com/desertthunder/songvote/internal/testing"
	"golang.org/x/oauth2"
)

// writeTestConfig saves a config pointing at a database inside dir.
func writeTestConfig(t *testing.T, dir string) string {
	t.Helper()
	config := shared.DefaultConfig()
	config.Database.Path = filepath.Join(dir, "songvote.db")
	path := filepath.Join(dir, "config.toml")
	if err := shared.SaveConfig(path, config); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

// runApp runs the CLI with a fresh runner and returns its stdout.
func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})
	app := newApp(runner)
	app.Writer = io.Discard
	app.ErrWriter = io.Discard
	err := app.Run(context.Background(), append([]string{"songvote"}, args...))
	return output.String(), err
}

func seedLedger(t *testing.T, configPath string) {
	t.Helper()
	config, err := shared.LoadConfig(configPath)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	db, err := shared.OpenDatabase(config.Database)
	if err != nil {
		t.Fatalf("OpenDatabase: %v", err)
	}
	defer db.Close()

	repo := repositories.NewScoreRepository(db)
	ctx := context.Background()
	for i, won := range []bool{true, true, false} {
		err := repo.RecordResolution(ctx, models.Resolution{
			PollID:       "poll-" + string(rune('a'+i)),
			ProposerID:   42,
			ProposerName: "@dj",
			Title:        "Artist - Song " + string(rune('A'+i)),
			Won:          won,
			Report:       models.CommitReport{YouTube: models.StatusAdded, Spotify: models.StatusAdded},
		})
		if err != nil {
			t.Fatalf("RecordResolution: %v", err)
		}
	}
	if err := repo.ApplyOutcome(ctx, 7, "@rookie", false); err != nil {
		t.Fatalf("ApplyOutcome: %v", err)
	}
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			if runner := NewRunner(RunnerOpts{}); runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("Before", func(t *testing.T) {
		t.Run("loads config file", func(t *testing.T) {
			dir := t.TempDir()
			path := writeTestConfig(t, dir)

			out, err := runApp(t, "--config", path, "setup", "database")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			tu.AssertFileExists(t, filepath.Join(dir, "songvote.db"))
			if !strings.Contains(out, "migration versions [0 1]") {
				t.Errorf("unexpected output: %q", out)
			}
		})

		t.Run("invalid config file", func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[database\npath ="), 0600); err != nil {
				t.Fatal(err)
			}

			_, err := runApp(t, "--config", path, "ledger", "top")
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})

		t.Run("log level override", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: io.Discard})
			app := newApp(runner)
			app.Writer = io.Discard

			path := writeTestConfig(t, t.TempDir())
			if err := app.Run(context.Background(), []string{"songvote", "--config", path, "--log-level", "debug", "setup", "database"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if runner.logger.GetLevel() != log.DebugLevel {
				t.Errorf("expected debug level, got %v", runner.logger.GetLevel())
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil || !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil || !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Output: output})

		if err := runner.writePlain("hello %s", "world"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if output.String() != "hello world" {
			t.Errorf("expected 'hello world', got %q", output.String())
		}

		failing := NewRunner(RunnerOpts{Output: &tu.FWriter{}})
		if err := failing.writePlain("test"); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("register", func(t *testing.T) {
		commands := NewRunner(RunnerOpts{}).register()

		names := []string{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names = append(names, cmd.Name)
		}
		if got := strings.Join(names, ","); got != "serve,setup,auth,search,ledger,playlist" {
			t.Errorf("unexpected commands: %s", got)
		}
	})

	t.Run("saveTokens", func(t *testing.T) {
		t.Run("saves refresh token", func(t *testing.T) {
			configPath := filepath.Join(t.TempDir(), "config.toml")
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			token := &oauth2.Token{AccessToken: "access", RefreshToken: "new_refresh_token"}
			if err := runner.saveTokens("spotify", token); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			loaded, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatalf("failed to reload config: %v", err)
			}
			if loaded.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Errorf("expected refresh token to be saved, got %q", loaded.Credentials.Spotify.RefreshToken)
			}
			if loaded.Credentials.YouTube.RefreshToken != "" {
				t.Error("youtube credentials should be untouched")
			}
			if config.Credentials.Spotify.RefreshToken != "new_refresh_token" {
				t.Error("expected in-memory config to be updated")
			}
		})

		t.Run("keeps environment secrets out of the file", func(t *testing.T) {
			configPath := writeTestConfig(t, t.TempDir())
			config, err := shared.LoadConfig(configPath)
			if err != nil {
				t.Fatal(err)
			}
			config.Telegram.Token = "secret-from-env"
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: configPath})

			if err := runner.saveTokens("youtube", &oauth2.Token{RefreshToken: "r"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			contents := tu.MustReadFile(t, configPath)
			if strings.Contains(contents, "secret-from-env") {
				t.Error("environment secret leaked into config file")
			}
			if !strings.Contains(contents, `refresh_token = "r"`) {
				t.Errorf("expected youtube refresh token in file:\n%s", contents)
			}
		})

		t.Run("empty configPath updates in memory only", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config})

			if err := runner.saveTokens("youtube", &oauth2.Token{RefreshToken: "r"}); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if config.Credentials.YouTube.RefreshToken != "r" {
				t.Error("expected config to be updated in memory")
			}
		})

		t.Run("token without refresh token", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens("spotify", &oauth2.Token{AccessToken: "a"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("unknown service", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: shared.DefaultConfig()})

			err := runner.saveTokens("tidal", &oauth2.Token{RefreshToken: "r"})
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})

		t.Run("nil config", func(t *testing.T) {
			err := NewRunner(RunnerOpts{}).saveTokens("spotify", &oauth2.Token{})
			if !errors.Is(err, shared.ErrMissingConfig) {
				t.Errorf("expected ErrMissingConfig, got %v", err)
			}
		})

		t.Run("SaveConfig failure", func(t *testing.T) {
			config := shared.DefaultConfig()
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: filepath.Join(t.TempDir(), "missing", "config.toml")})

			err := runner.saveTokens("spotify", &oauth2.Token{RefreshToken: "r"})
			if err == nil || !strings.Contains(err.Error(), "failed to save config") {
				t.Errorf("expected save config error, got %v", err)
			}
		})
	})
}

func TestCommands(t *testing.T) {
	t.Run("setup config", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")

		out, err := runApp(t, "--config", path, "setup", "config")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(tu.MustReadFile(t, path), "[telegram]") {
			t.Error("expected template to be written")
		}
		if !strings.Contains(out, "songvote auth spotify") {
			t.Errorf("expected next steps, got %q", out)
		}

		if _, err := runApp(t, "--config", path, "setup", "config"); err == nil {
			t.Error("expected error when config already exists")
		}
	})

	t.Run("setup database rollback", func(t *testing.T) {
		path := writeTestConfig(t, t.TempDir())
		if _, err := runApp(t, "--config", path, "setup", "database"); err != nil {
			t.Fatalf("setup: %v", err)
		}

		out, err := runApp(t, "--config", path, "setup", "database", "--rollback")
		if err != nil {
			t.Fatalf("rollback: %v", err)
		}
		if !strings.Contains(out, "migration versions [0]") {
			t.Errorf("expected one remaining migration, got %q", out)
		}
	})

	t.Run("ledger", func(t *testing.T) {
		path := writeTestConfig(t, t.TempDir())
		seedLedger(t, path)

		t.Run("top", func(t *testing.T) {
			out, err := runApp(t, "--config", path, "ledger", "top")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(out, "@dj") || !strings.Contains(out, "18") {
				t.Errorf("expected @dj with 18 reputation, got:\n%s", out)
			}
			if strings.Index(out, "@dj") > strings.Index(out, "@rookie") {
				t.Error("expected @dj ranked above @rookie")
			}
		})

		t.Run("top json", func(t *testing.T) {
			out, err := runApp(t, "--config", path, "ledger", "top", "--json", "--limit", "1")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(out, `"Reputation": 18`) || strings.Contains(out, "@rookie") {
				t.Errorf("unexpected json:\n%s", out)
			}
		})

		t.Run("stats", func(t *testing.T) {
			out, err := runApp(t, "--config", path, "ledger", "stats", "--user", "42")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(out, "Reputation: 18") || !strings.Contains(out, "67%") {
				t.Errorf("unexpected stats:\n%s", out)
			}
		})

		t.Run("stats unknown user", func(t *testing.T) {
			out, err := runApp(t, "--config", path, "ledger", "stats", "--user", "999")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(out, "no record yet") {
				t.Errorf("unexpected output: %q", out)
			}
		})

		t.Run("stats requires user", func(t *testing.T) {
			if _, err := runApp(t, "--config", path, "ledger", "stats"); err == nil {
				t.Error("expected error without --user")
			}
		})

		t.Run("history", func(t *testing.T) {
			out, err := runApp(t, "--config", path, "ledger", "history", "--user", "42")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			for _, title := range []string{"Song A", "Song B", "Song C"} {
				if !strings.Contains(out, title) {
					t.Errorf("history missing %s:\n%s", title, out)
				}
			}
		})

		t.Run("history export", func(t *testing.T) {
			export := filepath.Join(t.TempDir(), "history.csv")
			out, err := runApp(t, "--config", path, "ledger", "history", "--format", "csv", "--output", export)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if !strings.Contains(out, "Exported 3 nominations") {
				t.Errorf("unexpected output: %q", out)
			}
			if !strings.Contains(tu.MustReadFile(t, export), "Artist - Song A") {
				t.Error("expected csv to contain nominations")
			}
		})

		t.Run("history output without format", func(t *testing.T) {
			_, err := runApp(t, "--config", path, "ledger", "history", "--output", "x.csv")
			if !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	})

	t.Run("serve validates config", func(t *testing.T) {
		path := writeTestConfig(t, t.TempDir())
		_, err := runApp(t, "--config", path, "serve")
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("serve refuses a second instance", func(t *testing.T) {
		dir := t.TempDir()
		config := shared.DefaultConfig()
		config.Database.Path = filepath.Join(dir, "songvote.db")
		runner := NewRunner(RunnerOpts{Config: config, Logger: shared.NewLogger(io.Discard), Output: io.Discard})

		first, err := runner.acquireLock()
		if err != nil {
			t.Fatalf("first lock: %v", err)
		}
		defer first.Unlock()

		if _, err := runner.acquireLock(); !errors.Is(err, shared.ErrAlreadyRunning) {
			t.Errorf("expected ErrAlreadyRunning, got %v", err)
		}
	})

	t.Run("playlist add arguments", func(t *testing.T) {
		path := writeTestConfig(t, t.TempDir())

		if _, err := runApp(t, "--config", path, "playlist", "add"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
		if _, err := runApp(t, "--config", path, "playlist", "add", "--track", "https://open.spotify.com/track/x"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("search requires query", func(t *testing.T) {
		path := writeTestConfig(t, t.TempDir())
		if _, err := runApp(t, "--config", path, "search"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}
