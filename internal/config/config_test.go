package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", name, err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeFile(t, "config.json", `{}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	tr := cfg.Transport
	if cfg.Backend != BackendElasticsearch {
		t.Errorf("backend = %q", cfg.Backend)
	}
	if tr.Level != "info" || tr.IndexPrefix != "logs" || tr.IndexSuffixPattern != "YYYY.MM.DD" || tr.MessageType != "log" {
		t.Errorf("unexpected transport defaults: %+v", tr)
	}
	if !tr.EnsureMappingTemplate {
		t.Error("ensureMappingTemplate should default to true")
	}
	if tr.FlushInterval != 2*time.Second {
		t.Errorf("flushInterval = %s, want 2s", tr.FlushInterval)
	}
	if tr.EnqueueTimeout != 100*time.Millisecond {
		t.Errorf("enqueueTimeout = %s, want 100ms", tr.EnqueueTimeout)
	}
	if tr.WaitForActiveShards != "1" {
		t.Errorf("waitForActiveShards = %q, want 1", tr.WaitForActiveShards)
	}
	if len(cfg.Elastic.Addresses) != 1 || cfg.Elastic.Addresses[0] != "http://localhost:9200" {
		t.Errorf("addresses = %v", cfg.Elastic.Addresses)
	}
}

func TestLoadConfigFromJSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
  "backend": "opensearch",
  "elastic": {"addresses": ["https://es-1:9200", "https://es-2:9200"], "username": "elastic", "password": "secret"},
  "transport": {
    "level": "debug",
    "indexPrefix": "app",
    "indexSuffixPattern": "YYYY.MM",
    "flushInterval": "500ms",
    "enqueueTimeout": "20ms",
    "pipeline": "geoip",
    "ensureMappingTemplate": false
  }
}`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Backend != BackendOpenSearch {
		t.Errorf("backend = %q", cfg.Backend)
	}
	if len(cfg.Elastic.Addresses) != 2 || cfg.Elastic.Username != "elastic" {
		t.Errorf("elastic = %+v", cfg.Elastic)
	}
	tr := cfg.Transport
	if tr.Level != "debug" || tr.IndexPrefix != "app" || tr.IndexSuffixPattern != "YYYY.MM" || tr.Pipeline != "geoip" {
		t.Errorf("transport = %+v", tr)
	}
	if tr.FlushInterval != 500*time.Millisecond {
		t.Errorf("flushInterval = %s", tr.FlushInterval)
	}
	if tr.EnqueueTimeout != 20*time.Millisecond {
		t.Errorf("enqueueTimeout = %s", tr.EnqueueTimeout)
	}
	if tr.EnsureMappingTemplate {
		t.Error("ensureMappingTemplate should be false")
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", "transport:\n  index: fixed-index\n  messageType: event\n")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transport.Index != "fixed-index" || cfg.Transport.MessageType != "event" {
		t.Errorf("transport = %+v", cfg.Transport)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	path := writeFile(t, "config.json", `{"transport": {"pipeline": "from-file"}}`)
	t.Setenv("ELOGGER_TRANSPORT_PIPELINE", "from-env")
	t.Setenv("ELOGGER_LOGGER_FORMAT", "text")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Transport.Pipeline != "from-env" {
		t.Errorf("pipeline = %q, want from-env", cfg.Transport.Pipeline)
	}
	if cfg.Logger.Format != "text" {
		t.Errorf("logger format = %q, want text", cfg.Logger.Format)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.json")); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadConfigRejectsUnknownBackend(t *testing.T) {
	path := writeFile(t, "config.json", `{"backend": "solr"}`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}
