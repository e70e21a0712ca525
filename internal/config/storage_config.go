package config

import "strconv"

type StorageConfig interface {
	GetStorageBackend() string
	GetStoragePath() string
	GetStoragePassphrase() string
	GetStorageKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetStorageBackend returns one of "secure", "memory", "redis" or "sqlite"
func (Storage) GetStorageBackend() string {
	return GetEnv("STORAGE_BACKEND", "secure")
}

func (Storage) GetStoragePath() string {
	return GetEnv("STORAGE_PATH", "./data")
}

// GetStoragePassphrase returns the secret used to derive the secure storage key.
// Without it secure storage is unavailable and the memory backend is used.
func (Storage) GetStoragePassphrase() string {
	return GetEnv("STORAGE_PASSPHRASE", "")
}

func (Storage) GetStorageKey() string {
	return GetEnv("STORAGE_KEY", "session")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}
