package recommend

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/2beens/traintrack/internal/overload/profile"
	"github.com/2beens/traintrack/internal/overload/sessions"
	"github.com/2beens/traintrack/internal/telemetry/tracing"
	"github.com/2beens/traintrack/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

// userIDHeader names the user whose data a request operates on. Auth
// (who may call at all) is handled by the auth middleware, this header
// only scopes the data.
const userIDHeader = "X-TRAINTRACK-USER"

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service: service,
	}
}

func userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(userIDHeader)
	if id == "" {
		http.Error(w, "user id header missing", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func (handler *Handler) HandleGetRecommendation(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.get-recommendation")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	exercise := vars["exercise"]
	if exercise == "" {
		http.Error(w, "exercise missing", http.StatusBadRequest)
		return
	}

	snapshot, err := handler.service.GetRecommendation(ctx, id, exercise)
	if err != nil {
		log.Errorf("get recommendation [%s] for [%s]: %s", exercise, id, err)
		http.Error(w, "failed to get recommendation", http.StatusInternalServerError)
		return
	}

	writeJSON(w, snapshot)
}

func (handler *Handler) HandleSubmitSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.submit-session")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var session sessions.Session
	if err := json.NewDecoder(r.Body).Decode(&session); err != nil {
		log.Tracef("submit session, unmarshal json params: %s", err)
		http.Error(w, "submit session failed", http.StatusBadRequest)
		return
	}

	result, err := handler.service.SubmitSession(ctx, id, session)
	if err != nil {
		if errors.Is(err, ErrInvalidFeedback) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("submit session for [%s]: %s", id, err)
		http.Error(w, "failed to submit session", http.StatusInternalServerError)
		return
	}

	writeJSONStatus(w, result, http.StatusCreated)
}

func (handler *Handler) HandleGetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.get-session")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	sessionID, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := handler.service.GetSession(ctx, id, sessionID)
	if err != nil {
		if errors.Is(err, sessions.ErrSessionNotFound) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		log.Errorf("get session [%d] for [%s]: %s", sessionID, id, err)
		http.Error(w, "failed to get session", http.StatusInternalServerError)
		return
	}

	writeJSON(w, session)
}

func (handler *Handler) HandleListSessions(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.list-sessions")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}

	list, err := handler.service.ListSessions(ctx, id, from, to)
	if err != nil {
		log.Errorf("list sessions for [%s]: %s", id, err)
		http.Error(w, "failed to list sessions", http.StatusInternalServerError)
		return
	}

	writeJSON(w, list)
}

func (handler *Handler) HandleGetAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.get-analytics")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	vars := mux.Vars(r)
	exercise := vars["exercise"]
	if exercise == "" {
		http.Error(w, "exercise missing", http.StatusBadRequest)
		return
	}

	from, ok := parseDateParam(w, r, "from")
	if !ok {
		return
	}
	to, ok := parseDateParam(w, r, "to")
	if !ok {
		return
	}

	analytics, err := handler.service.GetAnalytics(ctx, id, exercise, from, to)
	if err != nil {
		log.Errorf("get analytics [%s] for [%s]: %s", exercise, id, err)
		http.Error(w, "failed to get analytics", http.StatusInternalServerError)
		return
	}

	writeJSON(w, analytics)
}

func (handler *Handler) HandleGetStreak(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.get-streak")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	update, err := handler.service.GetStreak(ctx, id, time.Now())
	if err != nil {
		log.Errorf("get streak for [%s]: %s", id, err)
		http.Error(w, "failed to get streak", http.StatusInternalServerError)
		return
	}

	writeJSON(w, update)
}

func (handler *Handler) HandleSkipDay(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.skip-day")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	day, err := time.Parse(time.DateOnly, mux.Vars(r)["date"])
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}

	if err := handler.service.SkipDay(ctx, id, day); err != nil {
		log.Errorf("skip day for [%s]: %s", id, err)
		http.Error(w, "failed to skip day", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, pkg.ContentType.Text, "marked skipped", http.StatusOK)
}

func (handler *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.get-profile")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	resp, err := handler.service.GetProfile(ctx, id)
	if err != nil {
		log.Errorf("get profile for [%s]: %s", id, err)
		http.Error(w, "failed to get profile", http.StatusInternalServerError)
		return
	}

	writeJSON(w, resp)
}

func (handler *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.overload.update-profile")
	defer span.End()

	id, ok := userID(w, r)
	if !ok {
		return
	}

	if r.Header.Get("Content-Type") != "application/json" {
		http.Error(w, "invalid content type", http.StatusBadRequest)
		return
	}

	var p profile.Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		log.Tracef("update profile, unmarshal json params: %s", err)
		http.Error(w, "update profile failed", http.StatusBadRequest)
		return
	}

	if err := handler.service.PutProfile(ctx, id, p); err != nil {
		if errors.Is(err, ErrInvalidProfile) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		log.Errorf("update profile for [%s]: %s", id, err)
		http.Error(w, "failed to update profile", http.StatusInternalServerError)
		return
	}

	pkg.WriteResponse(w, pkg.ContentType.Text, "updated", http.StatusOK)
}

func parseDateParam(w http.ResponseWriter, r *http.Request, name string) (time.Time, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, true
	}
	// accept both a date and a unix timestamp
	if ts, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(ts, 0), true
	}
	day, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		http.Error(w, "invalid "+name+" param", http.StatusBadRequest)
		return time.Time{}, false
	}
	return day, true
}

func writeJSON(w http.ResponseWriter, payload any) {
	writeJSONStatus(w, payload, http.StatusOK)
}

func writeJSONStatus(w http.ResponseWriter, payload any, status int) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		log.Errorf("marshal response: %s", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	pkg.WriteResponseBytes(w, pkg.ContentType.JSON, encoded, status)
}
