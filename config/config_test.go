package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/poiesic/docent/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so no stray .env file is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	dir := chdir(t)

	cfg, err := Load(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, int64(100*1024*1024), cfg.MaxUploadBytes())
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "docent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
listen_addr: ":9000"
ai:
  chat_model: qwen2.5:7b
chunking:
  size: 800
  overlap: 100
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "qwen2.5:7b", cfg.AI.ChatModel)
	assert.Equal(t, "bge-m3", cfg.AI.EmbeddingModel, "unset fields keep defaults")
	assert.Equal(t, 800, cfg.Chunking.Size)
	assert.Equal(t, 100, cfg.Chunking.Overlap)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoad_EnvironmentWins(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "docent.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retrieval:\n  top_k: 3\n"), 0o644))

	t.Setenv("TOP_K", "7")
	t.Setenv("OLLAMA_BASE_URL", "http://gpu-box:11434")
	t.Setenv("LLM_MODEL", "mistral")
	t.Setenv("RESPONSE_LANGUAGE", "Korean")
	t.Setenv("MAX_UPLOAD_SIZE_MB", "20")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Retrieval.TopK)
	assert.Equal(t, "http://gpu-box:11434", cfg.AI.BaseURL)
	assert.Equal(t, "mistral", cfg.AI.ChatModel)
	assert.Equal(t, "Korean", cfg.Retrieval.Language)
	assert.Equal(t, int64(20*1024*1024), cfg.MaxUploadBytes())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CHUNK_SIZE=300\nCHUNK_OVERLAP=30\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("CHUNK_SIZE")
		os.Unsetenv("CHUNK_OVERLAP")
	})

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Chunking.Size)
	assert.Equal(t, 30, cfg.Chunking.Overlap)
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "non-numeric top k", env: map[string]string{"TOP_K": "many"}},
		{name: "overlap not smaller than size", env: map[string]string{"CHUNK_SIZE": "100", "CHUNK_OVERLAP": "100"}},
		{name: "zero upload size", env: map[string]string{"MAX_UPLOAD_SIZE_MB": "0"}},
		{name: "unknown provider", env: map[string]string{"AI_PROVIDER": "bedrock"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load("")
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("chunking: [unterminated"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestSave_RoundTrip(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "nested", "docent.yaml")

	cfg := Default()
	cfg.AI.Provider = ai.ProviderOpenAI
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ai.ProviderOpenAI, loaded.AI.Provider)
}

func TestAIConfig(t *testing.T) {
	cfg := Default()
	aiCfg := cfg.AIConfig()
	assert.Equal(t, ai.ProviderOllama, aiCfg.Provider)
	assert.Equal(t, "http://localhost:11434", aiCfg.ChatHost)
	assert.Equal(t, aiCfg.ChatHost, aiCfg.EmbeddingHost)
	assert.Equal(t, 1024, aiCfg.Dimension)
	assert.Equal(t, 5*time.Minute, aiCfg.RequestTimeout)
	assert.NoError(t, aiCfg.Validate())
}
