package cmd

import (
	"bytes"
	"strings"
	"testing"

	"mediagate/config"
	"mediagate/core/auth"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("execute %v: %v", args, err)
	}
	return strings.TrimSpace(buf.String())
}

func TestTokenHashCommand(t *testing.T) {
	hash := execute(t, "token", "hash", "hunter2")
	if !auth.CheckPasswordHash("hunter2", hash) {
		t.Fatalf("output %q is not a hash of the password", hash)
	}
}

func TestTokenCommand(t *testing.T) {
	t.Setenv("SECRET_KEY", "cli-secret")
	token := execute(t, "token", "--ttl", "1h")

	claims, err := auth.ParseToken("cli-secret", token)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if claims.Subject != "admin" {
		t.Fatalf("subject = %q", claims.Subject)
	}
}

func TestTokenCommandRefusesDefaultKey(t *testing.T) {
	t.Setenv("SECRET_KEY", config.DefaultSecretKey)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs([]string{"token"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	if err := rootCmd.Execute(); err == nil || !strings.Contains(err.Error(), "SECRET_KEY") {
		t.Fatalf("err = %v, want SECRET_KEY error", err)
	}
	if strings.Contains(out.String(), "eyJ") {
		t.Fatalf("a token was printed: %q", out.String())
	}
}
