package profile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"StockAdviser/internal/model"
)

// LoadUsers reads user profiles from a JSON file. Returns no users if the file doesn't exist.
func LoadUsers(filePath string) ([]*model.User, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var users []*model.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filePath, err)
	}
	return users, nil
}

// SaveUsers writes user profiles to a JSON file.
func SaveUsers(filePath string, users []*model.User) error {
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	return os.WriteFile(filePath, data, 0o644)
}
