package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func useRemotesFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remotes.toml")
	t.Setenv("KADR_REMOTES_FILE", path)
	return path
}

func TestRemoteConfigPath(t *testing.T) {
	t.Setenv("KADR_REMOTES_FILE", "")
	t.Setenv("XDG_STATE_HOME", "/var/state")
	if got, _ := remoteConfigPath(); got != "/var/state/kadr/remotes.toml" {
		t.Errorf("XDG path = %q", got)
	}

	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/clerk")
	if got, _ := remoteConfigPath(); got != "/home/clerk/.local/state/kadr/remotes.toml" {
		t.Errorf("home path = %q", got)
	}

	t.Setenv("KADR_REMOTES_FILE", "/etc/kadr/remotes.toml")
	if got, _ := remoteConfigPath(); got != "/etc/kadr/remotes.toml" {
		t.Errorf("override path = %q", got)
	}
}

func TestRemotesConfig_SaveLoad(t *testing.T) {
	useRemotesFile(t)

	in := RemotesConfig{
		Active: "hq",
		Remotes: map[string]Remote{
			"hq":    {URL: "https://kadr.example.org", GRPCAddr: "kadr.example.org:9090", Transport: "grpc", Token: "tok_abc", NATSURL: "nats://hq:4222"},
			"local": {URL: "http://localhost:8080"},
		},
	}
	if err := saveRemotesConfig(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if got.Active != "hq" || got.Remotes["hq"] != in.Remotes["hq"] || got.Remotes["local"] != in.Remotes["local"] {
		t.Errorf("round trip = %+v, want %+v", got, in)
	}
}

func TestLoadRemotesConfig_Missing(t *testing.T) {
	useRemotesFile(t)

	cfg, err := loadRemotesConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Active != "" || cfg.Remotes == nil || len(cfg.Remotes) != 0 {
		t.Errorf("expected empty config, got %+v", cfg)
	}
}

func TestLoadRemotesConfig_Corrupt(t *testing.T) {
	path := useRemotesFile(t)
	if err := os.WriteFile(path, []byte("active = [unterminated"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := loadRemotesConfig(); err == nil || !strings.Contains(err.Error(), path) {
		t.Fatalf("expected error naming %s, got %v", path, err)
	}
}

func TestSaveRemotesConfig_Permissions(t *testing.T) {
	t.Setenv("KADR_REMOTES_FILE", "")
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	if err := saveRemotesConfig(RemotesConfig{Remotes: map[string]Remote{}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	path, _ := remoteConfigPath()
	for p, want := range map[string]os.FileMode{path: 0o600, filepath.Dir(path): 0o700} {
		info, err := os.Stat(p)
		if err != nil {
			t.Fatalf("stat %s: %v", p, err)
		}
		if got := info.Mode().Perm(); got != want {
			t.Errorf("%s permissions = %04o, want %04o", p, got, want)
		}
	}
	leftovers, _ := filepath.Glob(filepath.Join(filepath.Dir(path), ".remotes-*"))
	if len(leftovers) != 0 {
		t.Errorf("temp files left behind: %v", leftovers)
	}
}

func TestRemote_Validate(t *testing.T) {
	for _, tc := range []struct {
		name    string
		remote  Remote
		wantErr string
	}{
		{"http", Remote{URL: "http://localhost:8080"}, ""},
		{"grpc", Remote{URL: "https://hq", GRPCAddr: "hq:9090", Transport: "grpc"}, ""},
		{"no scheme", Remote{URL: "localhost:8080"}, "http(s)"},
		{"ftp", Remote{URL: "ftp://hq"}, "http(s)"},
		{"grpc without addr", Remote{URL: "https://hq", Transport: "grpc"}, "--grpc"},
		{"bad transport", Remote{URL: "https://hq", Transport: "carrier-pigeon"}, "unknown transport"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.remote.Validate()
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Fatalf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestRemotesConfig_UseRemove(t *testing.T) {
	cfg := RemotesConfig{Remotes: map[string]Remote{"b": {}, "a": {}}}
	if got := cfg.Names(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Names() = %v", got)
	}
	if err := cfg.Use("missing"); err == nil {
		t.Error("Use(missing) should fail")
	}
	if err := cfg.Use("a"); err != nil || cfg.Active != "a" {
		t.Fatalf("Use(a) = %v, active %q", err, cfg.Active)
	}
	if err := cfg.Remove("a"); err != nil || cfg.Active != "" {
		t.Fatalf("Remove(a) = %v, active %q", err, cfg.Active)
	}
	if err := cfg.Remove("a"); err == nil {
		t.Error("second Remove(a) should fail")
	}
}

func TestRemoteLifecycle(t *testing.T) {
	useRemotesFile(t)

	run := func(args ...string) string {
		t.Helper()
		var buf bytes.Buffer
		cmd, rest, err := remoteCmd.Find(args)
		if err != nil {
			t.Fatal(err)
		}
		cmd.SetOut(&buf)
		if err := cmd.RunE(cmd, rest); err != nil {
			t.Fatalf("remote %v: %v", args, err)
		}
		return buf.String()
	}

	run("add", "local", "http://localhost:8080/")
	cfg, _ := loadRemotesConfig()
	if cfg.Active != "local" {
		t.Fatalf("first remote should become active, got %q", cfg.Active)
	}
	if cfg.Remotes["local"].URL != "http://localhost:8080" {
		t.Errorf("trailing slash kept: %q", cfg.Remotes["local"].URL)
	}

	run("add", "hq", "https://kadr.hq.example")
	run("use", "hq")
	if out := run("list"); !strings.Contains(out, "* hq") || !strings.Contains(out, "  local") {
		t.Errorf("list output:\n%s", out)
	}

	run("rm", "hq")
	cfg, _ = loadRemotesConfig()
	if cfg.Active != "" || len(cfg.Remotes) != 1 {
		t.Fatalf("after remove: %+v", cfg)
	}

	if err := remoteAddCmd.RunE(remoteAddCmd, []string{"bad", "not a url"}); err == nil {
		t.Fatal("expected validation error")
	}
	if err := remoteUseCmd.RunE(remoteUseCmd, []string{"missing"}); err == nil {
		t.Fatal("expected error for unknown remote")
	}
}

func TestMaskToken(t *testing.T) {
	for in, want := range map[string]string{
		"":           "-",
		"abc":        "***",
		"tok_secret": "tok_******",
	} {
		if got := maskToken(in); got != want {
			t.Errorf("maskToken(%q) = %q, want %q", in, got, want)
		}
	}
}
