package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

const (
	// PasswordCost - стоимость bcrypt для паролей пользователей.
	PasswordCost = 10
	// maxPasswordBytes - bcrypt учитывает только первые 72 байта пароля.
	maxPasswordBytes = 72
)

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword(passwordBytes(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}

	return string(bytes), nil
}

func CheckPasswordHash(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), passwordBytes(password))
	return err == nil
}

// passwordBytes обрезает пароль до 72 байт, длинный пароль не ошибка.
func passwordBytes(password string) []byte {
	b := []byte(password)
	if len(b) > maxPasswordBytes {
		b = b[:maxPasswordBytes]
	}
	return b
}
