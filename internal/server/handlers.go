// internal/server/handlers.go
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/token-sale/internal/sale"
	"github.com/rovshanmuradov/token-sale/internal/utils/logger"
)

const (
	requestIDHeader = "X-Request-ID"
	// наружу уходит только это сообщение, детали остаются в логах
	opaqueError = "Something went wrong!"
)

// Purchaser собирает транзакцию покупки для адреса покупателя.
type Purchaser interface {
	Assemble(ctx context.Context, requesterAddress string) (*sale.Assembled, error)
}

// handlePurchaseToken returns a handler that assembles a partially signed purchase transaction.
// POST /api/purchase_token
func handlePurchaseToken(purchaser Purchaser, timeout time.Duration, log *logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set(requestIDHeader, requestID)
		opLog := log.WithCorrelationID("purchase_token", requestID)

		var req PurchaseRequest
		if err := decodeAndValidate(w, r, &req); err != nil {
			opLog.Info("Rejected purchase request", zap.Error(err))
			writeError(w, opaqueError, http.StatusInternalServerError)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		res, err := purchaser.Assemble(ctx, req.UserWalletString)
		if err != nil {
			kind := sale.KindOf(err)
			fields := []zap.Field{
				zap.String("requester", req.UserWalletString),
				zap.Stringer("kind", kind),
				zap.Stringer("class", kind.Class()),
				zap.Error(err),
			}
			if kind.Class() == sale.ClassInvalidInput {
				opLog.Info("Purchase request rejected", fields...)
			} else {
				opLog.Error("Failed to assemble purchase transaction", fields...)
			}
			writeError(w, opaqueError, http.StatusInternalServerError)
			return
		}

		opLog.Info("Purchase transaction assembled",
			zap.String("requester", req.UserWalletString),
			zap.Stringer("requester_token_account", res.RequesterTokenAccount),
			zap.Bool("creates_token_account", res.CreatesTokenAccount),
			zap.Uint64("priority_fee", res.PriorityFee),
			zap.Uint64("last_valid_block_height", res.Checkpoint.LastValidBlockHeight))

		writeJSON(w, PurchaseResponse{SerializedTransaction: res.Base64}, http.StatusOK)
	})
}

// handleHealth is the liveness probe.
func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message}, statusCode)
}
