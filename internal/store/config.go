package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"hypnotools/internal/model"
)

// 配置键
const (
	ConfigKeyEmpresa   = "empresa"
	ConfigKeyCRMToken  = "crm_token"
	ConfigKeyAuthToken = "auth_token"
	ConfigKeyAuthUser  = "auth_user"
	ConfigKeyBatchSize = "batch_size"
)

// ErrConfigNotFound 配置项不存在
var ErrConfigNotFound = errors.New("config key not found")

// GetConfig 获取配置项
func (s *Store) GetConfig(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM config WHERE key = ?", key).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", fmt.Errorf("%w: %s", ErrConfigNotFound, key)
		}
		return "", err
	}
	return value, nil
}

// GetConfigDefault 获取配置项，不存在时返回 def
func (s *Store) GetConfigDefault(key, def string) string {
	v, err := s.GetConfig(key)
	if err != nil {
		return def
	}
	return v
}

// GetConfigInt 获取整数配置项
func (s *Store) GetConfigInt(key string) (int, error) {
	value, err := s.GetConfig(key)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(value)
}

// SetConfig 设置配置项
func (s *Store) SetConfig(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO config (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = ?, updated_at = CURRENT_TIMESTAMP
	`, key, value, value)
	return err
}

// SetConfigInt 设置整数配置项
func (s *Store) SetConfigInt(key string, value int) error {
	return s.SetConfig(key, strconv.Itoa(value))
}

// DeleteConfig 删除配置项
func (s *Store) DeleteConfig(keys ...string) error {
	for _, key := range keys {
		if _, err := s.db.Exec("DELETE FROM config WHERE key = ?", key); err != nil {
			return fmt.Errorf("failed to delete config %s: %w", key, err)
		}
	}
	return nil
}

// GetAllConfig 获取所有配置项
func (s *Store) GetAllConfig() (map[string]string, error) {
	rows, err := s.db.Query("SELECT key, value FROM config")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	config := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		config[key] = value
	}

	return config, rows.Err()
}

// SaveSession 登录成功后保存令牌、用户与公司
func (s *Store) SaveSession(token string, user *model.UserInfo, empresa string) error {
	if err := s.SetConfig(ConfigKeyAuthToken, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	if user != nil {
		b, err := json.Marshal(user)
		if err != nil {
			return fmt.Errorf("failed to encode user: %w", err)
		}
		if err := s.SetConfig(ConfigKeyAuthUser, string(b)); err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
	}
	if empresa != "" {
		if err := s.SetConfig(ConfigKeyEmpresa, empresa); err != nil {
			return fmt.Errorf("failed to save empresa: %w", err)
		}
	}
	return nil
}

// LoadSession 读取保存的会话，未登录时 token 为空
func (s *Store) LoadSession() (token string, user *model.UserInfo, empresa string) {
	token = s.GetConfigDefault(ConfigKeyAuthToken, "")
	empresa = s.GetConfigDefault(ConfigKeyEmpresa, "")
	if raw := s.GetConfigDefault(ConfigKeyAuthUser, ""); raw != "" {
		var u model.UserInfo
		if err := json.Unmarshal([]byte(raw), &u); err == nil {
			user = &u
		}
	}
	return token, user, empresa
}

// ClearSession 退出登录，保留公司
func (s *Store) ClearSession() error {
	return s.DeleteConfig(ConfigKeyAuthToken, ConfigKeyAuthUser)
}
