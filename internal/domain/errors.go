package domain

import "errors"

// Domain errors
var (
	ErrUserNotFound        = errors.New("usuario no encontrado")
	ErrLevelNotFound       = errors.New("nivel no encontrado")
	ErrAchievementNotFound = errors.New("logro no encontrado")
	ErrEmailTaken          = errors.New("el email ya esta registrado")
	ErrAchievementUnlocked = errors.New("el logro ya fue desbloqueado")
	ErrInvalidCredentials  = errors.New("credenciales invalidas")
	ErrInvalidToken        = errors.New("token invalido o expirado")
	ErrInvalidRequest      = errors.New("solicitud invalida")
	ErrInvalidDifficulty   = errors.New("dificultad invalida")
	ErrInternalError       = errors.New("error interno del servidor")
)

// IsNotFound checks if an error is a not-found type error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrUserNotFound) ||
		errors.Is(err, ErrLevelNotFound) ||
		errors.Is(err, ErrAchievementNotFound)
}

// IsConflict checks if an error is a duplicate-resource type error
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrAchievementUnlocked)
}

// IsValidation checks if an error is a bad-input type error
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInvalidDifficulty)
}

// IsAuth checks if an error is an authentication failure
func IsAuth(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrInvalidToken)
}
