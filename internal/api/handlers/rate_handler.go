package handlers

import (
	"cbr-rates/internal/api/middlew"
	"cbr-rates/internal/custom_err"
	"cbr-rates/internal/models"
	"cbr-rates/internal/service"
	"cbr-rates/pkg/response"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
)

const maxIngestBodyBytes = 1 << 20

type RateHandler struct {
	service service.Rates
}

func NewRateHandler(service service.Rates) *RateHandler {
	return &RateHandler{
		service: service,
	}
}

// GetRates godoc
// @Summary      Курсы валют за дату
// @Description  Возвращает курсы из базы; если их нет, запрашивает ЦБ РФ и сохраняет. Если ЦБ недоступен, rates = null
// @Tags         rates
// @Produce      json
// @Param        date query string true "Дата в формате YYYY-MM-DD"
// @Success      200 {object} models.RatesResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      429 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /rates [get]
func (h *RateHandler) GetRates(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetRates"
	log := middlew.GetLogger(r.Context())

	date := r.URL.Query().Get("date")
	if date == "" {
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_date", "Query parameter 'date' is required")
		return
	}

	result, err := h.service.GetRates(r.Context(), date)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidDate):
			log.Warn("invalid date", slog.String("op", op), slog.String("date", date))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_date", "Date must be a valid YYYY-MM-DD date")
		case errors.Is(err, custom_err.ErrStorageUnavailable):
			log.Error("storage unavailable", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusServiceUnavailable, "storage_unavailable", "Rate storage is unavailable")
		default:
			log.Error("failed to get rates", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// GetHistory godoc
// @Summary      История сохраненных курсов
// @Description  Последние сохраненные записи, свежие первыми
// @Tags         rates
// @Produce      json
// @Param        limit query int false "Количество записей (1-1000)" default(50)
// @Success      200 {object} models.HistoryResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /history [get]
func (h *RateHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetHistory"
	log := middlew.GetLogger(r.Context())

	limit, ok := positiveIntParam(r, "limit")
	if !ok {
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_limit", "limit must be a positive integer")
		return
	}

	result, err := h.service.GetHistory(r.Context(), limit)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidLimit):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_limit", err.Error())
		case errors.Is(err, custom_err.ErrStorageUnavailable):
			log.Error("storage unavailable", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusServiceUnavailable, "storage_unavailable", "Rate storage is unavailable")
		default:
			log.Error("failed to get history", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// Ingest godoc
// @Summary      Загрузить курсы
// @Description  Сохраняет курсы за дату. Вызывается внешним заданием, требует bearer-токен
// @Tags         rates
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body models.IngestRequest true "Курсы за дату"
// @Success      200 {object} models.IngestResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      401 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /ingest [post]
func (h *RateHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	const op = "handler.Ingest"
	log := middlew.GetLogger(r.Context())

	defer r.Body.Close()

	var req models.IngestRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxIngestBodyBytes)).Decode(&req); err != nil {
		log.Warn("invalid JSON", slog.String("op", op), slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_json", "Invalid JSON body")
		return
	}

	log.Info("запрос на загрузку курсов",
		slog.String("op", op),
		slog.String("subject", middlew.GetSubject(r.Context())),
		slog.String("date", req.Date),
		slog.Int("currencies", len(req.Rates)))

	result, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInvalidDate):
			log.Warn("invalid date", slog.String("op", op), slog.String("date", req.Date))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_date", "Date must be a valid YYYY-MM-DD date")
		case errors.Is(err, custom_err.ErrInvalidInput):
			log.Warn("invalid rates", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_rates", err.Error())
		case errors.Is(err, custom_err.ErrStorageUnavailable):
			log.Error("storage unavailable", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusServiceUnavailable, "storage_unavailable", "Rate storage is unavailable")
		default:
			log.Error("failed to ingest rates", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// GetAnalytics godoc
// @Summary      Статистика по валюте
// @Description  Среднее, стандартное отклонение, минимум, максимум и тренд за последние N дат
// @Tags         analytics
// @Produce      json
// @Param        currency query string false "Код валюты" default(USD)
// @Param        days query int false "Размер окна в днях (1-3650)" default(30)
// @Success      200 {object} models.AnalyticsResponse
// @Failure      400 {object} response.ErrorResponse
// @Failure      404 {object} response.ErrorResponse
// @Failure      503 {object} response.ErrorResponse
// @Router       /analytics [get]
func (h *RateHandler) GetAnalytics(w http.ResponseWriter, r *http.Request) {
	const op = "handler.GetAnalytics"
	log := middlew.GetLogger(r.Context())

	days, ok := positiveIntParam(r, "days")
	if !ok {
		response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_days", "days must be a positive integer")
		return
	}
	currency := r.URL.Query().Get("currency")

	result, err := h.service.GetAnalytics(r.Context(), currency, days)
	if err != nil {
		switch {
		case errors.Is(err, custom_err.ErrInsufficientData):
			log.Info("insufficient data", slog.String("op", op), slog.String("currency", currency))
			response.WriteJSONError(w, log, http.StatusNotFound, "insufficient_data", "Not enough stored rates for this currency")
		case errors.Is(err, custom_err.ErrInvalidCurrency):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_currency", "Currency must be a 3-letter code")
		case errors.Is(err, custom_err.ErrInvalidLimit):
			response.WriteJSONError(w, log, http.StatusBadRequest, "invalid_days", err.Error())
		case errors.Is(err, custom_err.ErrStorageUnavailable):
			log.Error("storage unavailable", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusServiceUnavailable, "storage_unavailable", "Rate storage is unavailable")
		default:
			log.Error("failed to compute analytics", slog.String("op", op), slog.String("error", err.Error()))
			response.WriteJSONError(w, log, http.StatusInternalServerError, "internal_error", "An internal error occurred")
		}
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, result)
}

// Health отвечает 503, пока хранилище недоступно.
func (h *RateHandler) Health(w http.ResponseWriter, r *http.Request) {
	log := middlew.GetLogger(r.Context())

	if err := h.service.Health(r.Context()); err != nil {
		log.Error("health check failed", slog.String("error", err.Error()))
		response.WriteJSONError(w, log, http.StatusServiceUnavailable, "storage_unavailable", "Rate storage is unavailable")
		return
	}

	response.WriteJSONSuccess(w, log, http.StatusOK, map[string]string{"status": "ok"})
}

// positiveIntParam returns 0 when the parameter is absent.
func positiveIntParam(r *http.Request, name string) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}
