package auth

import (
	"testing"

	"compsbot/internal/config"
)

func cfgWithHost(host string) config.PostgresConfig {
	return config.PostgresConfig{Host: host}
}

func TestTokenCacheLifecycle(t *testing.T) {
	// Fresh state for this test binary run.
	tokens.Lock()
	tokens.cache = nil
	tokens.Unlock()

	if TokensReady() {
		t.Fatalf("token store should not be ready before load")
	}
	if ValidateToken("a") {
		t.Fatalf("no token should validate before load")
	}

	LoadTokensFromMap(map[string]int{"alpha": 60, "beta": 0})

	if !TokensReady() {
		t.Fatalf("token store should be ready after load")
	}
	if !ValidateToken("alpha") || !ValidateToken("beta") {
		t.Fatalf("loaded tokens should validate")
	}
	if ValidateToken("gamma") {
		t.Fatalf("unknown token must not validate")
	}

	if got := GetRateLimit("alpha"); got != 60 {
		t.Fatalf("rate limit = %d, want 60", got)
	}
	if got := GetRateLimit("gamma"); got != 0 {
		t.Fatalf("unknown token rate limit = %d, want 0", got)
	}
}

func TestLoadTokensFromMap_CopiesInput(t *testing.T) {
	m := map[string]int{"tok": 10}
	LoadTokensFromMap(m)
	m["tok"] = 999

	if got := GetRateLimit("tok"); got != 10 {
		t.Fatalf("cache must not alias caller map, got %d", got)
	}
}

func TestLoadTokensFromPostgres_BadConfig(t *testing.T) {
	var err error
	if err = LoadTokensFromPostgres(cfgWithHost("")); err == nil {
		t.Fatalf("expected error for empty postgres config")
	}
}
