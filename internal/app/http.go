package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sharelist/api/internal/activity"
	"sharelist/api/internal/auth"
	"sharelist/api/internal/authpw"
	"sharelist/api/internal/export"
	"sharelist/api/internal/search"
	"sharelist/api/internal/util"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
	// heartbeat is the idle interval between SSE keep-alive comments.
	heartbeat time.Duration
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin, heartbeat: 25 * time.Second}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		s.handleReady(w, r)
		return
	}

	// Auth routes (no session required)
	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/register" {
		s.handleRegister(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/login" {
		s.handleLogin(w, r)
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/auth/refresh" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		session, err := s.service.Refresh(r.Context(), strings.TrimSpace(body.RefreshToken))
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, tokenResponse(session))
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) == 0 || parts[0] != "api" {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}

	session, ok := s.requireSession(w, r)
	if !ok {
		return
	}

	parts = parts[1:]
	switch parts[0] {
	case "auth":
		s.handleAuth(w, r, session, parts)
	case "lists":
		s.handleLists(w, r, session, parts)
	case "tags":
		s.handleTags(w, r, session, parts)
	case "activity":
		s.handleActivity(w, r, session, parts)
	case "search":
		if len(parts) == 1 && r.Method == http.MethodGet {
			s.handleSearch(w, r, session)
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	statusCode := http.StatusOK
	checks := map[string]any{
		"database": map[string]any{"status": "ok"},
	}

	if err := s.service.Ping(ctx); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		checks["database"] = map[string]any{"status": "error", "error": err.Error()}
	}
	if configured, err := s.service.PingRedis(ctx); configured {
		checks["redis"] = map[string]any{"status": "ok"}
		if err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["redis"] = map[string]any{"status": "error", "error": err.Error()}
		}
	}

	writeJSON(w, statusCode, map[string]any{
		"ok":     status == "ready",
		"status": status,
		"checks": checks,
	})
}

func tokenResponse(session Session) map[string]any {
	return map[string]any{
		"access_token":  session.Token,
		"refresh_token": session.RefreshToken,
		"token_type":    "bearer",
		"expires_at":    session.ExpiresAt.Unix(),
		"user":          userView(session.User),
	}
}

func (s *HTTPServer) handleRegister(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string  `json:"email"`
		Username string  `json:"username"`
		Password string  `json:"password"`
		FullName *string `json:"full_name"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	user, err := s.service.Register(r.Context(), authpw.RegisterRequest{
		Email:    body.Email,
		Username: body.Username,
		Password: body.Password,
		FullName: body.FullName,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body struct {
		// Username accepts a username or an email.
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
		return
	}
	session, err := s.service.Login(r.Context(), body.Username, body.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse(session))
}

func (s *HTTPServer) handleAuth(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	switch {
	case parts[1] == "logout" && r.Method == http.MethodPost:
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		// The refresh token is optional; only a malformed body is rejected.
		if err := decodeBody(r, &body); err != nil && !errors.Is(err, errEmptyBody) {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		if err := s.service.Logout(r.Context(), session, strings.TrimSpace(body.RefreshToken)); err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"message": "Successfully logged out"})
	case parts[1] == "me" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, userView(session.User))
	case parts[1] == "me" && r.Method == http.MethodPut:
		var body struct {
			Email    *string `json:"email"`
			Username *string `json:"username"`
			FullName *string `json:"full_name"`
			Password *string `json:"password"`
			IsActive *bool   `json:"is_active"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		user, err := s.service.UpdateProfile(r.Context(), session, authpw.ProfileUpdate{
			Email:    body.Email,
			Username: body.Username,
			FullName: body.FullName,
			Password: body.Password,
			IsActive: body.IsActive,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	case parts[1] == "verify" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"valid": true, "user_id": session.UserID, "username": session.UserName})
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleLists serves /api/lists and everything nested under a list.
func (s *HTTPServer) handleLists(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	ctx := r.Context()

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			skip, limit, ok := pagination(w, r)
			if !ok {
				return
			}
			payload, err := s.service.ListLists(ctx, session.UserID, skip, limit)
			respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body ListInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateList(ctx, session.UserID, body)
			respond(w, http.StatusCreated, payload, err)
		default:
			methodNotAllowed(w)
		}
		return
	}

	listID, ok := pathID(w, parts[1])
	if !ok {
		return
	}

	if len(parts) == 2 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.GetList(ctx, session.UserID, listID)
			respond(w, http.StatusOK, payload, err)
		case http.MethodPut:
			var body ListPatch
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.UpdateList(ctx, session.UserID, listID, body)
			respond(w, http.StatusOK, payload, err)
		case http.MethodDelete:
			noContent(w, s.service.DeleteList(ctx, session.UserID, listID))
		default:
			methodNotAllowed(w)
		}
		return
	}

	switch parts[2] {
	case "todos":
		s.handleTodos(w, r, session, listID, parts[3:])
	case "permissions":
		s.handlePermissions(w, r, session, listID, parts[3:])
	case "events":
		if len(parts) == 3 && r.Method == http.MethodGet {
			s.handleEvents(w, r, session, listID)
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	case "export":
		if len(parts) == 3 && r.Method == http.MethodGet {
			s.handleExport(w, r, session, listID)
			return
		}
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleTodos(w http.ResponseWriter, r *http.Request, session Session, listID int64, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			skip, limit, ok := pagination(w, r)
			if !ok {
				return
			}
			payload, err := s.service.ListTasks(ctx, session.UserID, listID, skip, limit)
			respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body TaskInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateTask(ctx, session.UserID, listID, body)
			respond(w, http.StatusCreated, payload, err)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	taskID, ok := pathID(w, rest[0])
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		payload, err := s.service.GetTask(ctx, session.UserID, listID, taskID)
		respond(w, http.StatusOK, payload, err)
	case http.MethodPut:
		var body TaskPatch
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateTask(ctx, session.UserID, listID, taskID, body)
		respond(w, http.StatusOK, payload, err)
	case http.MethodDelete:
		noContent(w, s.service.DeleteTask(ctx, session.UserID, listID, taskID))
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handlePermissions(w http.ResponseWriter, r *http.Request, session Session, listID int64, rest []string) {
	ctx := r.Context()

	if len(rest) == 0 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListGrants(ctx, session.UserID, listID)
			respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body ShareInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.ShareList(ctx, session.UserID, listID, body)
			respond(w, http.StatusCreated, payload, err)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(rest) != 1 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	grantID, ok := pathID(w, rest[0])
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body struct {
			PermissionLevel string `json:"permission_level"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateGrant(ctx, session.UserID, listID, grantID, body.PermissionLevel)
		respond(w, http.StatusOK, payload, err)
	case http.MethodDelete:
		noContent(w, s.service.RevokeGrant(ctx, session.UserID, listID, grantID))
	default:
		methodNotAllowed(w)
	}
}

func (s *HTTPServer) handleTags(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	ctx := r.Context()

	if len(parts) == 1 {
		switch r.Method {
		case http.MethodGet:
			payload, err := s.service.ListTags(ctx, session.UserID)
			respond(w, http.StatusOK, payload, err)
		case http.MethodPost:
			var body TagInput
			if err := decodeBody(r, &body); err != nil {
				writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
				return
			}
			payload, err := s.service.CreateTag(ctx, session.UserID, body)
			respond(w, http.StatusCreated, payload, err)
		default:
			methodNotAllowed(w)
		}
		return
	}

	if len(parts) != 2 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	tagID, ok := pathID(w, parts[1])
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodPut:
		var body TagPatch
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		payload, err := s.service.UpdateTag(ctx, session.UserID, tagID, body)
		respond(w, http.StatusOK, payload, err)
	case http.MethodDelete:
		noContent(w, s.service.DeleteTag(ctx, session.UserID, tagID))
	default:
		methodNotAllowed(w)
	}
}

// handleActivity serves /api/activity, /api/activity/list/{id} and
// /api/activity/all.
func (s *HTTPServer) handleActivity(w http.ResponseWriter, r *http.Request, session Session, parts []string) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	skip, limit, ok := pagination(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	switch {
	case len(parts) == 1:
		payload, err := s.service.MyActivity(ctx, session.UserID, skip, limit)
		respond(w, http.StatusOK, payload, err)
	case len(parts) == 3 && parts[1] == "list":
		listID, ok := pathID(w, parts[2])
		if !ok {
			return
		}
		payload, err := s.service.ListActivity(ctx, session.UserID, listID, skip, limit)
		respond(w, http.StatusOK, payload, err)
	case len(parts) == 2 && parts[1] == "all":
		filter := activity.Filter{Skip: skip, Limit: limit}
		if filter.ActorID, ok = optionalQueryID(w, r, "actor"); !ok {
			return
		}
		if filter.ListID, ok = optionalQueryID(w, r, "list"); !ok {
			return
		}
		payload, err := s.service.AllActivity(ctx, session.UserID, filter)
		respond(w, http.StatusOK, payload, err)
	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

func (s *HTTPServer) handleSearch(w http.ResponseWriter, r *http.Request, session Session) {
	query := r.URL.Query()
	resultType, ok := search.ParseResultType(strings.TrimSpace(query.Get("type")))
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "type must be list or todo", nil)
		return
	}
	limit, ok := queryInt(w, r, "limit", 20)
	if !ok {
		return
	}
	offset, ok := queryInt(w, r, "offset", 0)
	if !ok {
		return
	}
	payload, err := s.service.Search(r.Context(), session.UserID, search.Query{
		Text:       strings.TrimSpace(query.Get("q")),
		FilterType: resultType,
		Limit:      limit,
		Offset:     offset,
	})
	respond(w, http.StatusOK, payload, err)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request, session Session, listID int64) {
	format, err := export.ParseFormat(strings.TrimSpace(r.URL.Query().Get("format")))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "format must be html, pdf or docx", nil)
		return
	}
	activityLimit, ok := queryInt(w, r, "activity_limit", 0)
	if !ok {
		return
	}
	result, err := s.service.ExportList(r.Context(), session.UserID, export.Request{
		ListID:          listID,
		Format:          format,
		IncludeActivity: r.URL.Query().Get("include_activity") != "false",
		ActivityLimit:   activityLimit,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	disposition := "attachment"
	if format == export.FormatHTML {
		disposition = "inline"
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, result.Filename))
	w.Header().Set("Content-Type", result.MimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}

// eventStreamClosed is the last event of a stream whose subscriber lost
// access to the list.
const eventStreamClosed = "stream:closed"

// handleEvents streams a list's new activity as Server-Sent Events until the
// client disconnects or loses access to the list.
func (s *HTTPServer) handleEvents(w http.ResponseWriter, r *http.Request, session Session, listID int64) {
	sub, err := s.service.SubscribeList(r.Context(), session.UserID, listID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer sub.Close()

	rc := http.NewResponseController(w)
	// The server's write timeout would otherwise cut the stream.
	_ = rc.SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, ": subscribed to list %d\n\n", listID)
	if err := rc.Flush(); err != nil {
		return
	}

	ticker := time.NewTicker(s.heartbeat)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
		case msg, open := <-sub.C:
			if !open {
				return
			}
			if err := sub.Authorize(r.Context()); err != nil {
				fmt.Fprintf(w, "event: %s\ndata: {\"list_id\":%d}\n\n", eventStreamClosed, listID)
				_ = rc.Flush()
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Event, msg.Data); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (s *HTTPServer) requireSession(w http.ResponseWriter, r *http.Request) (Session, bool) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return Session{}, false
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredToken) || errors.Is(err, auth.ErrInvalidToken) {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
			return Session{}, false
		}
		var domainErr *DomainError
		if errors.As(err, &domainErr) {
			writeError(w, domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details)
			return Session{}, false
		}
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Session lookup failed", nil)
		return Session{}, false
	}
	return session, true
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = util.NewID("req")
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func writeServiceError(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	if status == http.StatusInternalServerError {
		log.Printf("request failed: %v", err)
	}
	writeError(w, status, code, message, details)
}

// respond writes payload with status, or the mapped error.
func respond(w http.ResponseWriter, status int, payload any, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, status, payload)
}

func noContent(w http.ResponseWriter, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
}

// errEmptyBody is returned by decodeBody when the request has no body.
var errEmptyBody = errors.New("request body is empty")

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errEmptyBody
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

// pathID parses a numeric path segment. Anything else cannot name a row.
func pathID(w http.ResponseWriter, raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return 0, false
	}
	return id, true
}

func queryInt(w http.ResponseWriter, r *http.Request, name string, fallback int) (int, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return fallback, true
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be an integer", nil)
		return 0, false
	}
	return parsed, true
}

func optionalQueryID(w http.ResponseWriter, r *http.Request, name string) (*int64, bool) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, true
	}
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", name+" must be an integer", nil)
		return nil, false
	}
	return &parsed, true
}

func pagination(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	if skip, ok = queryInt(w, r, "skip", 0); !ok {
		return 0, 0, false
	}
	if limit, ok = queryInt(w, r, "limit", 0); !ok {
		return 0, 0, false
	}
	return skip, limit, true
}
