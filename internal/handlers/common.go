package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/librahub/backend/internal/services"
)

// requester returns the authenticated caller, answering 401 when absent.
func requester(w http.ResponseWriter, r *http.Request) (services.Requester, bool) {
	req, ok := services.RequesterFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return req, ok
}

// pathID parses a numeric chi URL parameter, answering 400 when malformed.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		services.SendErrorResponse(w, "Invalid "+name, http.StatusBadRequest, nil)
		return 0, false
	}
	return id, true
}

// queryID reads an optional numeric query parameter.
func queryID(r *http.Request, name string) (*int64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func queryPage(r *http.Request) services.Page {
	var p services.Page
	if n, err := strconv.ParseUint(r.URL.Query().Get("limit"), 10, 32); err == nil {
		p.Limit = uint(n)
	}
	if n, err := strconv.ParseUint(r.URL.Query().Get("offset"), 10, 32); err == nil {
		p.Offset = uint(n)
	}
	return p
}

// decodeAndValidate reads a JSON body into req and runs its validate tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *services.ValidationHelper, req any) bool {
	if err := services.DecodeJSONBody(w, r, req); err != nil {
		log.Printf("[HTTP] %s %s - Decode error: %v", r.Method, r.URL.Path, err)
		services.SendErrorResponse(w, "Invalid request body", http.StatusBadRequest, nil)
		return false
	}
	if err := v.ValidateStruct(req); err != nil {
		services.SendErrorResponse(w, "Validation failed", http.StatusBadRequest, err)
		return false
	}
	return true
}

// memberScope resolves which member a listing covers. Members only ever see
// their own records; staff may name anyone or nobody.
func memberScope(w http.ResponseWriter, r *http.Request, caller services.Requester) (*int64, bool) {
	memberID, err := queryID(r, "member_id")
	if err != nil {
		services.SendErrorResponse(w, "Invalid member_id", http.StatusBadRequest, nil)
		return nil, false
	}
	if caller.IsStaff() {
		return memberID, true
	}
	if memberID != nil && *memberID != caller.MemberID {
		services.SendErrorResponse(w, "Members may only list their own records", http.StatusForbidden, nil)
		return nil, false
	}
	own := caller.MemberID
	return &own, true
}

// actingFor picks the member an operation is performed for. Only staff may
// act on behalf of somebody else.
func actingFor(w http.ResponseWriter, caller services.Requester, memberID *int64) (int64, bool) {
	if memberID == nil || *memberID == caller.MemberID {
		return caller.MemberID, true
	}
	if !caller.IsStaff() {
		services.SendErrorResponse(w, "Only staff may act for another member", http.StatusForbidden, nil)
		return 0, false
	}
	return *memberID, true
}
