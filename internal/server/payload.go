// internal/server/payload.go
package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jellydator/validation"
)

const maxRequestBodySize = 4 << 10

// Valid Solana address characters: base58 (no 0, O, I, l)
var base58Address = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]+$`)

// PurchaseRequest is the body of POST /api/purchase_token.
type PurchaseRequest struct {
	UserWalletString string `json:"userWalletString"`
}

func (p PurchaseRequest) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.UserWalletString,
			validation.Required,
			validation.Length(32, 44),
			validation.Match(base58Address),
		),
	)
}

// PurchaseResponse содержит транзакцию в base64, ждущую подписи покупателя.
type PurchaseResponse struct {
	SerializedTransaction string `json:"serializedTransaction"`
}

// ErrorResponse is the only error shape clients ever see.
type ErrorResponse struct {
	Error string `json:"error"`
}

// decodeAndValidate читает не больше maxRequestBodySize байт, отвергает неизвестные поля
// и проверяет payload, если он реализует validation.Validatable.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, object any) error {
	body := http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	defer body.Close()

	decoder := json.NewDecoder(body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(object); err != nil {
		return fmt.Errorf("decoding json payload: %w", err)
	}

	v, ok := object.(validation.Validatable)
	if !ok {
		return nil
	}
	if err := v.Validate(); err != nil {
		return fmt.Errorf("validating payload: %w", err)
	}
	return nil
}
