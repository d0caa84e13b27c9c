package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/EleDiaz/LibSql.Bindings/internal/boundary"
	"github.com/EleDiaz/LibSql.Bindings/internal/handle"
	"github.com/EleDiaz/LibSql.Bindings/internal/value"
)

// profile is a yaml connection profile, e.g.
//
//	db: replica.db
//	url: libsql://example.turso.io
//	auth_token: ${TURSO_TOKEN}
//	sync_interval: 30
type profile struct {
	DB             string `yaml:"db"`
	URL            string `yaml:"url"`
	AuthToken      string `yaml:"auth_token"`
	EncryptionKey  string `yaml:"encryption_key"`
	ReadYourWrites bool   `yaml:"read_your_writes"`
	SyncInterval   int    `yaml:"sync_interval"`
	WebPKI         bool   `yaml:"webpki"`
}

// loadProfile reads a profile, environment variables in values are expanded.
func loadProfile(path string) (profile, error) {
	data, err := os.ReadFile(path) // nolint gosec
	if err != nil {
		return profile{}, fmt.Errorf("can't read profile: %w", err)
	}
	var res profile
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &res); err != nil {
		return profile{}, fmt.Errorf("can't parse profile %s: %w", path, err)
	}
	return res, nil
}

func (p profile) syncConfig() boundary.SyncConfig {
	return boundary.SyncConfig{
		DBPath:         p.DB,
		PrimaryURL:     p.URL,
		AuthToken:      p.AuthToken,
		EncryptionKey:  p.EncryptionKey,
		ReadYourWrites: p.ReadYourWrites,
		SyncInterval:   p.SyncInterval,
		WithWebPKI:     p.WebPKI,
	}
}

// cell renders one value of row for display.
func cell(b *boundary.Bridge, rows, row handle.Token, col int) (string, error) {
	kind, err := b.ColumnType(rows, row, col)
	if err != nil {
		return "", err
	}
	switch kind {
	case value.KindInteger:
		v, err := b.GetInt(row, col)
		return fmt.Sprintf("%d", v), err
	case value.KindFloat:
		v, err := b.GetFloat(row, col)
		return fmt.Sprintf("%g", v), err
	case value.KindText:
		return b.GetString(row, col)
	case value.KindBlob:
		v, err := b.GetBlob(row, col)
		return "x'" + hex.EncodeToString(v) + "'", err
	default:
		return "NULL", nil
	}
}
