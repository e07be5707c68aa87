package internal

import (
	"strings"
	"testing"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Metadata.Dir != cfg.Content.Path {
		t.Errorf("metadata dir = %q, want content path %q", cfg.Metadata.Dir, cfg.Content.Path)
	}
}

func TestContentConfig_EmptySourceDefaultsLocal(t *testing.T) {
	cfg := ContentConfig{Path: "./tutorials"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Source != SourceLocal {
		t.Errorf("source = %q, want %q", cfg.Source, SourceLocal)
	}
}

func TestContentConfig_LocalNeedsPath(t *testing.T) {
	cfg := ContentConfig{Source: SourceLocal}
	if err := cfg.Validate(); err == nil {
		t.Fatal("local source without path should fail")
	}
}

func TestContentConfig_GitHub(t *testing.T) {
	cfg := ContentConfig{Source: SourceGitHub}
	if err := cfg.Validate(); err == nil {
		t.Fatal("github source without owner/repo should fail")
	}
	cfg.GitHub = GitHubConfig{Owner: "theaibuilders", Repo: "tutorials"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("github source with owner/repo should pass: %v", err)
	}
}

func TestContentConfig_UnknownSource(t *testing.T) {
	cfg := ContentConfig{Source: "s3", Path: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown source should fail")
	}
}

func TestMetadataConfig_GitHubNeedsDir(t *testing.T) {
	content := ContentConfig{Source: SourceGitHub}
	cfg := MetadataConfig{}
	err := cfg.Validate(content)
	if err == nil {
		t.Fatal("github source without metadata dir should fail")
	}
	if !strings.Contains(err.Error(), "github") {
		t.Errorf("unexpected error: %v", err)
	}
	cfg.Dir = "./meta"
	if err := cfg.Validate(content); err != nil {
		t.Fatalf("explicit dir should pass: %v", err)
	}
	if cfg.File == "" {
		t.Error("file name should default")
	}
}

func TestRenderConfig(t *testing.T) {
	cases := []struct {
		name    string
		cfg     RenderConfig
		wantErr bool
	}{
		{"defaults", RenderConfig{}, false},
		{"known style", RenderConfig{Style: "monokai", DefaultLanguage: "python"}, false},
		{"unknown style", RenderConfig{Style: "no-such-style"}, true},
		{"unknown language", RenderConfig{DefaultLanguage: "no-such-language-xyz"}, true},
		{"negative workers", RenderConfig{Workers: -1}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if (err != nil) != tc.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tc.wantErr)
			}
		})
	}
}

func TestHTTPConfig_Address(t *testing.T) {
	cfg := HTTPConfig{Port: 9090}
	if got := cfg.Address(); got != ":9090" {
		t.Errorf("address = %q", got)
	}
	bad := HTTPConfig{Port: 70000}
	if err := bad.Validate(); err == nil {
		t.Error("out of range port should fail")
	}
}
