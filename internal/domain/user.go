package domain

import "time"

// User represents a registered player account
type User struct {
	ID           int64     `json:"id_usuario"`
	Username     string    `json:"nombre_usuario"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	RegisteredAt time.Time `json:"fecha_registro"`
}

// RegisterRequest represents a request to create a new account
type RegisterRequest struct {
	Username string `json:"nombre_usuario"`
	Email    string `json:"email"`
	Password string `json:"contrasena"`
}

// LoginRequest represents a login attempt
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"contrasena"`
}

// LoginResponse carries the session token issued on successful login
type LoginResponse struct {
	UserID    int64     `json:"id_usuario"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expira_en"`
}

// CredentialCheck is the result of a side-effect-free credential probe
type CredentialCheck struct {
	Valid bool `json:"valido"`
}

// EmailCheck is the result of an email existence probe
type EmailCheck struct {
	Exists bool `json:"existe"`
}

// PasswordUpdateRequest represents a direct credential overwrite
type PasswordUpdateRequest struct {
	Email    string `json:"email"`
	Password string `json:"contrasena"`
}

// PasswordUpdateResult carries the soft success flag of a credential overwrite
type PasswordUpdateResult struct {
	Updated bool `json:"exito"`
}
