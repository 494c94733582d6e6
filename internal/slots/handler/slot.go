package handler

import (
	"net/http"
	"slotbook/internal/slots/service"
	httputil "slotbook/pkg/http"
	"slotbook/pkg/logger"
	"slotbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

const Greeting = "Hello, Book your slots!"

type SlotHandler struct {
	service service.SlotService
	log     *logger.Logger
}

func NewSlotHandler(service service.SlotService, log *logger.Logger) *SlotHandler {
	return &SlotHandler{
		service: service,
		log:     log,
	}
}

func (h *SlotHandler) Root(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(Greeting)); err != nil {
		h.log.Error("failed to write greeting", "handler", "Root", "error", err)
	}
}

func (h *SlotHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	appointments, err := h.service.List(r.Context(), r.URL.Query().Get("date"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, appointments)
}

func (h *SlotHandler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointment, err := h.service.Get(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, appointment)
}

func (h *SlotHandler) Book(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	appointment, err := h.service.Book(r.Context(), &req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteCreated(w, appointment)
}

func (h *SlotHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var details model.CustomerDetails
	if err := httputil.DecodeJSON(r, &details); err != nil {
		httputil.WriteError(w, err)
		return
	}

	appointment, err := h.service.Update(r.Context(), ps.ByName("id"), &details)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteSuccess(w, appointment)
}

func (h *SlotHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	appointment, err := h.service.Cancel(r.Context(), ps.ByName("id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Success: true,
		Data:    appointment,
		Message: service.MsgCancelled,
	})
}

func (h *SlotHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/", h.Root)
	router.GET("/slot", h.List)
	router.GET("/slot/:id", h.Get)
	router.POST("/slot", h.Book)
	router.PUT("/slot/:id", h.Update)
	router.DELETE("/slot/:id", h.Cancel)
}
