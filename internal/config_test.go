package internal

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/time/rate"

	pkgconfig "github.com/starford/folio/pkg/config"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Remote.Enabled {
		t.Error("default config should be static (local-only)")
	}
	if cfg.App.Production() {
		t.Error("default environment should not be production")
	}
}

func TestRemoteConfig_EnabledRequiresEndpointAndBucket(t *testing.T) {
	cfg := RemoteConfig{Enabled: true}
	if err := cfg.Validate(); err == nil {
		t.Fatal("enabled remote without endpoint and bucket should fail")
	}

	cfg.Endpoint = "localhost:9000"
	cfg.Bucket = "blog"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("complete remote config should pass: %v", err)
	}
}

func TestRemoteConfig_DisabledIgnoresMissingFields(t *testing.T) {
	cfg := RemoteConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled remote should pass: %v", err)
	}
}

func TestApplicationConfig_Environment(t *testing.T) {
	cfg := ApplicationConfig{HTTP: HTTPConfig{Port: 80}}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if cfg.Environment != EnvDevelopment {
		t.Errorf("environment = %q, want %q", cfg.Environment, EnvDevelopment)
	}

	cfg.Environment = "staging"
	if err := cfg.Validate(); err == nil {
		t.Error("unknown environment should fail validation")
	}

	cfg.Environment = EnvProduction
	if err := cfg.Validate(); err != nil || !cfg.Production() {
		t.Errorf("production environment: err=%v production=%v", err, cfg.Production())
	}
}

func TestAuthConfig_Limit(t *testing.T) {
	cfg := AuthConfig{LoginRate: 30, LoginBurst: 3}
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}
	if got := cfg.Limit(); got != rate.Limit(0.5) {
		t.Errorf("limit = %v, want 0.5/s", got)
	}

	cfg.LoginBurst = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero burst should fail validation")
	}
}

func TestCacheConfig_TTLRequiredWithRedis(t *testing.T) {
	cfg := CacheConfig{RedisAddr: "localhost:6379"}
	if err := cfg.Validate(); err == nil {
		t.Error("redis without ttl should fail validation")
	}
}

func TestLoadFromYAML(t *testing.T) {
	t.Setenv("FOLIO_TEST_BUCKET", "articles-bucket")

	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
app:
  log_level: debug
  environment: production
  http:
    port: 9090
remote:
  enabled: true
  endpoint: minio:9000
  bucket: ${FOLIO_TEST_BUCKET}
  timeout: 3s
auth:
  password: ${FOLIO_TEST_UNSET_PASSWORD:-fallback}
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.App.HTTP.Address() != ":9090" || !cfg.App.Production() {
		t.Errorf("app = %+v", cfg.App)
	}
	if cfg.Remote.Bucket != "articles-bucket" || cfg.Remote.Timeout != 3*time.Second {
		t.Errorf("remote = %+v", cfg.Remote)
	}
	if cfg.Remote.Prefix != "articles/" {
		t.Errorf("default prefix lost: %q", cfg.Remote.Prefix)
	}
	if cfg.Auth.Password != "fallback" || cfg.Auth.LoginBurst != 5 {
		t.Errorf("auth = %+v", cfg.Auth)
	}
	if cfg.Content.LocalRoot != "./content/articles" {
		t.Errorf("content = %+v", cfg.Content)
	}
}
