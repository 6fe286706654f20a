package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Vault.Extensions == nil {
		cfg.Vault.Extensions = []string{".md", ".txt"}
	}
	if cfg.Index.SnapshotPath == "" {
		cfg.Index.SnapshotPath = ".vaultindex/snapshot.json"
	}
	if cfg.Index.MinContentLength == 0 {
		cfg.Index.MinContentLength = 10
	}
	if cfg.Index.ChunkSize == 0 {
		cfg.Index.ChunkSize = 1000
	}
	if cfg.Index.ChunkOverlap == 0 {
		cfg.Index.ChunkOverlap = 200
	}
	if cfg.Provider.Kind == "" {
		cfg.Provider.Kind = "ollama"
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = "nomic-embed-text"
	}
	if cfg.Provider.Dimensions == 0 {
		cfg.Provider.Dimensions = 768
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = 256
	}
	if cfg.Provider.CacheSize == 0 {
		cfg.Provider.CacheSize = 10000
	}
	if cfg.Search.SimilarityThreshold == 0 {
		cfg.Search.SimilarityThreshold = 0.5
	}
	if cfg.Search.DefaultLimit == 0 {
		cfg.Search.DefaultLimit = 10
	}
	if cfg.Search.MaxLimit == 0 {
		cfg.Search.MaxLimit = 100
	}
	if cfg.Search.TitleBoost == 0 {
		cfg.Search.TitleBoost = 0.3
	}
	if cfg.Search.MaxRecencyBoost == 0 {
		cfg.Search.MaxRecencyBoost = 0.2
	}
	if cfg.Search.RecencyWindowDays == 0 {
		cfg.Search.RecencyWindowDays = 30
	}
	if cfg.Update.Mode == "" {
		cfg.Update.Mode = UpdateModeOnUpdate
	}
	if cfg.Update.FrequencySeconds == 0 {
		cfg.Update.FrequencySeconds = 30
	}
	if cfg.Update.RescanBatchSize == 0 {
		cfg.Update.RescanBatchSize = 10
	}
	// Recursive defaults to true when unset (nil).
	if len(cfg.Vault.Directories) > 0 && cfg.Vault.Recursive == nil {
		t := true
		cfg.Vault.Recursive = &t
	}
}
