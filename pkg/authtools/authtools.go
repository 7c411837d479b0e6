package authtools

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// VerifyJWT - Проверяет JWT и возвращает строковые поля токена.
// Просроченный токен считается невалидным.
func VerifyJWT(secretKey []byte, signedData string) (map[string]string, bool) {
	data := make(map[string]string)
	token, err := jwt.Parse(signedData, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unknown signing method: %v", token.Header["alg"])
		}
		return secretKey, nil
	})

	if err != nil {
		return data, false
	}

	if claims, ok := token.Claims.(jwt.MapClaims); ok && token.Valid {
		for k, v := range claims {
			if val, ok := v.(string); ok {
				data[k] = val
			}
		}
		return data, token.Valid
	}

	return data, false
}

// CreateJWT - Создает JWT ключ и записывает в него данные пользователя.
// При ttl != 0 в токен добавляется срок действия.
func CreateJWT(secretKey []byte, data map[string]string, ttl time.Duration) (string, error) {
	var payload jwt.MapClaims = make(jwt.MapClaims)
	for k, v := range data {
		payload[k] = v
	}
	now := time.Now()
	payload["iat"] = jwt.NewNumericDate(now)
	if ttl != 0 {
		payload["exp"] = jwt.NewNumericDate(now.Add(ttl))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, payload)
	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("failed signe token: %w", err)
	}

	return tokenString, nil
}
